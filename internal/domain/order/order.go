package order

import (
	"context"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the fulfilment state of an order.
type Status string

// Fulfilment states. StatusPending is assigned to every freshly placed order;
// the rest are set by back-office tooling.
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var statusLabels = map[Status]string{
	StatusPending:   "Beklemede",
	StatusConfirmed: "Onaylandı",
	StatusShipped:   "Kargoya Verildi",
	StatusDelivered: "Teslim Edildi",
	StatusCancelled: "İptal Edildi",
}

// Valid reports whether s is one of the known fulfilment states.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the customer-facing Turkish name of the status. Unknown
// statuses are shown as stored, with the first letter capitalized.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	r, size := utf8.DecodeRuneInString(string(s))
	if r == utf8.RuneError {
		return string(s)
	}
	return string(unicode.ToUpper(r)) + string(s)[size:]
}

// PaymentMethod identifies how the customer pays.
type PaymentMethod string

// PaymentCashOnDelivery is the only supported method.
const PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"

// PaymentStatus tracks collection of the payment.
type PaymentStatus string

// PaymentPending means the courier has not collected the cash yet.
const PaymentPending PaymentStatus = "pending"

// ShippingAddress is the structured delivery address stored on the order.
type ShippingAddress struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
}

// Header holds the top-level order fields, excluding line items.
type Header struct {
	UserID        string
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	Status        Status
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Shipping      ShippingAddress
	Notes         string
}

// Record is a persisted order header together with the identifiers assigned
// by the store. Items is only populated by read queries.
type Record struct {
	ID        string
	Number    string
	CreatedAt time.Time
	Header
	Items []Item
}

// Item is one order line. Product name, image and seller are copied from the
// cart snapshot so the order stays readable after catalog changes.
type Item struct {
	OrderID      string
	ProductID    string
	ProductName  string
	ProductImage *string
	SellerID     *string
	Quantity     int
	UnitPrice    decimal.Decimal
	Total        decimal.Decimal
}

// Repository defines persistence operations for orders. The store offers no
// multi-statement transaction to callers: Insert and InsertItems are
// independent writes.
type Repository interface {
	// Insert persists the header and returns it with its id and order number.
	Insert(ctx context.Context, h Header) (*Record, error)
	// InsertItems persists all items in a single batch write.
	InsertItems(ctx context.Context, items []Item) error
	// Delete removes an order header and any items referencing it.
	Delete(ctx context.Context, id string) error
	// ListByUser returns the user's orders matching f, newest first, with
	// their items.
	ListByUser(ctx context.Context, userID string, f ListFilter) ([]Record, error)
	// GetByNumber returns one of the user's orders with its items, or
	// ErrNotFound when the number is unknown or belongs to someone else.
	GetByNumber(ctx context.Context, userID, number string) (*Record, error)
}

// ListFilter narrows an order history query. Zero fields do not filter.
type ListFilter struct {
	Status Status
	// Since and Before bound created_at; Since is inclusive, Before exclusive.
	Since  time.Time
	Before time.Time
	// MinTotal and MaxTotal bound the order total, both inclusive.
	MinTotal *decimal.Decimal
	MaxTotal *decimal.Decimal
	// Search matches the order number or any item's product name,
	// case-insensitively.
	Search string
	Limit  int
}

