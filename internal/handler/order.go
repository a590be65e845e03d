package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/recregt/e-kktc/internal/domain/order"
	"github.com/recregt/e-kktc/internal/identity"
)

const (
	defaultOrderLimit = 20
	maxOrderLimit     = 100
	maxSearchLength   = 100

	dateLayout = "2006-01-02"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	f, err := parseOrderFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.orders.ListByUser(r.Context(), user.ID, f)
	if err != nil {
		zctx.From(r.Context()).Error("List orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, rec := range records {
			encodeOrder(e, rec)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rec, err := h.orders.GetByNumber(r.Context(), user.ID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("Get order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, *rec)
	})
}

// parseOrderFilter reads the order history query parameters. Dates are
// calendar days in UTC and dateTo includes the whole day.
func parseOrderFilter(q url.Values) (order.ListFilter, error) {
	f := order.ListFilter{Limit: defaultOrderLimit}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, errors.New("limit must be a positive integer")
		}
		f.Limit = min(n, maxOrderLimit)
	}
	if raw := q.Get("status"); raw != "" {
		s := order.Status(raw)
		if !s.Valid() {
			return f, errors.Errorf("unknown status %q", raw)
		}
		f.Status = s
	}
	if raw := q.Get("dateFrom"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.New("dateFrom must be YYYY-MM-DD")
		}
		f.Since = d
	}
	if raw := q.Get("dateTo"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.New("dateTo must be YYYY-MM-DD")
		}
		f.Before = d.AddDate(0, 0, 1)
	}

	var err error
	if f.MinTotal, err = parseAmount(q, "minAmount"); err != nil {
		return f, err
	}
	if f.MaxTotal, err = parseAmount(q, "maxAmount"); err != nil {
		return f, err
	}

	f.Search = strings.TrimSpace(q.Get("search"))
	if utf8.RuneCountInString(f.Search) > maxSearchLength {
		return f, errors.New("search is too long")
	}
	return f, nil
}

func parseAmount(q url.Values, key string) (*decimal.Decimal, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, errors.Errorf("%s must be a non-negative amount", key)
	}
	return &d, nil
}

func encodeOrder(e *jx.Encoder, rec order.Record) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(rec.ID)
	e.FieldStart("orderNumber")
	e.Str(rec.Number)
	e.FieldStart("status")
	e.Str(string(rec.Status))
	e.FieldStart("statusLabel")
	e.Str(rec.Status.Label())
	e.FieldStart("paymentMethod")
	e.Str(string(rec.PaymentMethod))
	e.FieldStart("paymentStatus")
	e.Str(string(rec.PaymentStatus))
	e.FieldStart("subtotal")
	money(e, rec.Subtotal)
	e.FieldStart("totalAmount")
	money(e, rec.Total)
	e.FieldStart("customerName")
	e.Str(rec.ContactName)
	e.FieldStart("customerEmail")
	e.Str(rec.ContactEmail)
	e.FieldStart("customerPhone")
	e.Str(rec.ContactPhone)
	e.FieldStart("shippingAddress")
	e.ObjStart()
	e.FieldStart("fullName")
	e.Str(rec.Shipping.FullName)
	e.FieldStart("phone")
	e.Str(rec.Shipping.Phone)
	e.FieldStart("address")
	e.Str(rec.Shipping.Address)
	e.FieldStart("city")
	e.Str(rec.Shipping.City)
	e.ObjEnd()
	e.FieldStart("notes")
	e.Str(rec.Notes)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range rec.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("productName")
		e.Str(it.ProductName)
		e.FieldStart("productImage")
		optStr(e, it.ProductImage)
		e.FieldStart("sellerId")
		optStr(e, it.SellerID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		money(e, it.UnitPrice)
		e.FieldStart("total")
		money(e, it.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("createdAt")
	e.Str(rec.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func optStr(e *jx.Encoder, s *string) {
	if s == nil {
		e.Null()
		return
	}
	e.Str(*s)
}
