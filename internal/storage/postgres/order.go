package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recregt/e-kktc/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
			id, user_id, status, payment_method, payment_status, subtotal, total_amount,
			customer_name, customer_email, customer_phone, shipping_address, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING order_number, created_at`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	selectOrderSQL = `SELECT id::text, order_number, created_at, user_id, status, payment_method,
			payment_status, subtotal, total_amount, customer_name, customer_email, customer_phone,
			shipping_address, notes
		FROM orders`

	selectOrderItemsSQL = `SELECT order_id::text, product_id, seller_id, product_name, product_image,
			quantity, price, total
		FROM order_items WHERE order_id = ANY($1::uuid[])
		ORDER BY id`
)

var orderItemColumns = []string{
	"order_id", "product_id", "seller_id", "product_name", "product_image", "quantity", "price", "total",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert persists an order header. The id is generated here; the order
// number comes from the order_number_seq default.
func (r *OrderRepository) Insert(ctx context.Context, h order.Header) (*order.Record, error) {
	shipping, err := json.Marshal(h.Shipping)
	if err != nil {
		return nil, fmt.Errorf("marshaling shipping address: %w", err)
	}

	rec := &order.Record{ID: uuid.NewString(), Header: h}
	err = r.pool.QueryRow(ctx, insertOrderSQL,
		rec.ID, h.UserID, string(h.Status), string(h.PaymentMethod), string(h.PaymentStatus),
		h.Subtotal, h.Total, h.ContactName, h.ContactEmail, h.ContactPhone, shipping, h.Notes,
	).Scan(&rec.Number, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting order for user %q: %w", h.UserID, err)
	}
	return rec, nil
}

// InsertItems writes all items with a single COPY, so either every row is
// stored or none is.
func (r *OrderRepository) InsertItems(ctx context.Context, items []order.Item) error {
	if len(items) == 0 {
		return nil
	}
	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		orderItemColumns,
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			orderID, err := uuid.Parse(it.OrderID)
			if err != nil {
				return nil, fmt.Errorf("parsing order id %q: %w", it.OrderID, err)
			}
			return []any{
				orderID, it.ProductID, it.SellerID, it.ProductName, it.ProductImage,
				it.Quantity, it.UnitPrice, it.Total,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copying %d order items: %w", len(items), err)
	}
	if int(n) != len(items) {
		return fmt.Errorf("copying order items: wrote %d of %d rows", n, len(items))
	}
	return nil
}

// Delete removes an order header; its items go with it through the foreign
// key cascade. Deleting a missing order returns order.ErrNotFound.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ListByUser returns the user's orders matching f, newest first, each with
// its items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, f order.ListFilter) ([]order.Record, error) {
	query, args := listOrdersQuery(userID, f)
	rows, err := r.pool.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	records, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	if err := r.attachItems(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByNumber returns the user's order with the given number.
func (r *OrderRepository) GetByNumber(ctx context.Context, userID, number string) (*order.Record, error) {
	rows, err := r.pool.Query(ctx, selectOrderSQL+` WHERE user_id = $1 AND order_number = $2`, userID, number)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	records := []order.Record{rec}
	if err := r.attachItems(ctx, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// attachItems loads the items of all records with one query.
func (r *OrderRepository) attachItems(ctx context.Context, records []order.Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	byID := make(map[string]int, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		byID[rec.ID] = i
	}
	rows, err := r.pool.Query(ctx, selectOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading items of %d orders: %w", len(ids), err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("loading items of %d orders: %w", len(ids), err)
	}
	for _, it := range items {
		i := byID[it.OrderID]
		records[i].Items = append(records[i].Items, it)
	}
	return nil
}

// listOrdersQuery renders the order history query for f.
func listOrdersQuery(userID string, f order.ListFilter) (string, pgx.NamedArgs) {
	args := pgx.NamedArgs{"user_id": userID}
	where := []string{"user_id = @user_id"}

	if f.Status != "" {
		where = append(where, "status = @status")
		args["status"] = string(f.Status)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= @since")
		args["since"] = f.Since
	}
	if !f.Before.IsZero() {
		where = append(where, "created_at < @before")
		args["before"] = f.Before
	}
	if f.MinTotal != nil {
		where = append(where, "total_amount >= @min_total")
		args["min_total"] = *f.MinTotal
	}
	if f.MaxTotal != nil {
		where = append(where, "total_amount <= @max_total")
		args["max_total"] = *f.MaxTotal
	}
	if f.Search != "" {
		where = append(where, `(order_number ILIKE @search ESCAPE '\' OR EXISTS (
			SELECT 1 FROM order_items oi
			WHERE oi.order_id = orders.id AND oi.product_name ILIKE @search ESCAPE '\'))`)
		args["search"] = "%" + escapeLike(f.Search) + "%"
	}

	var b strings.Builder
	b.WriteString(selectOrderSQL)
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	b.WriteString(" ORDER BY created_at DESC, order_number DESC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT @limit")
		args["limit"] = f.Limit
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanOrder(row pgx.CollectableRow) (order.Record, error) {
	var rec order.Record
	var status, method, paymentStatus string
	var shipping []byte
	err := row.Scan(
		&rec.ID, &rec.Number, &rec.CreatedAt, &rec.UserID, &status, &method,
		&paymentStatus, &rec.Subtotal, &rec.Total, &rec.ContactName, &rec.ContactEmail, &rec.ContactPhone,
		&shipping, &rec.Notes,
	)
	if err != nil {
		return rec, err
	}
	rec.Status = order.Status(status)
	rec.PaymentMethod = order.PaymentMethod(method)
	rec.PaymentStatus = order.PaymentStatus(paymentStatus)
	if err := json.Unmarshal(shipping, &rec.Shipping); err != nil {
		return rec, fmt.Errorf("unmarshaling shipping address of order %q: %w", rec.ID, err)
	}
	return rec, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.OrderID, &it.ProductID, &it.SellerID, &it.ProductName, &it.ProductImage,
		&it.Quantity, &it.UnitPrice, &it.Total,
	)
	return it, err
}
