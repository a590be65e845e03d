package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recregt/e-kktc/internal/domain/cart"
	"github.com/recregt/e-kktc/internal/domain/checkout"
	"github.com/recregt/e-kktc/internal/domain/product"
)

type mockCmdable struct {
	data    map[string]string
	ttls    map[string]time.Duration
	sets    int
	failErr error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.failErr)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if m.failErr != nil {
		return redis.NewStatusResult("", m.failErr)
	}
	m.sets++
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	if m.failErr != nil {
		return redis.NewStringResult("", m.failErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func testLines() []cart.Line {
	seller := "seller-1"
	s := cart.NewStore()
	s.AddToCart(product.Snapshot{
		ID:       "hellim",
		Name:     "Hellim",
		Price:    decimal.RequireFromString("145.50"),
		Images:   []string{"hellim.jpg"},
		SellerID: &seller,
	}, 2)
	return s.State().Lines()
}

func testForm() checkout.Form {
	return checkout.Form{
		FullName: "Ayşe Yılmaz",
		Phone:    "+90 533 000 00 00",
		Email:    "ayse@example.com",
		Address:  "Atatürk Cad. 12",
		City:     "Lefkoşa",
	}
}

func TestPendingStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	store := newPendingStore(mock, time.Hour)

	require.NoError(t, store.SaveForm(ctx, "s1", testForm()))
	require.NoError(t, store.SaveLines(ctx, "s1", testLines()))

	assert.Equal(t, 2, mock.sets)
	assert.Contains(t, mock.data, "kktc:pending:s1:form")
	assert.Contains(t, mock.data, "kktc:pending:s1:lines")
	assert.Equal(t, time.Hour, mock.ttls["kktc:pending:s1:form"])

	p, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, testForm(), p.Form)
	require.Len(t, p.Lines, 1)
	assert.Equal(t, "hellim", p.Lines[0].Product.ID)
	assert.Equal(t, 2, p.Lines[0].Quantity)
	assert.Equal(t, "145.50", p.Lines[0].Product.Price.StringFixed(2))

	require.NoError(t, store.Clear(ctx, "s1"))
	assert.Empty(t, mock.data)

	_, err = store.Load(ctx, "s1")
	require.ErrorIs(t, err, checkout.ErrNoPending)
}

func TestPendingStore_PartialStashIsMissing(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	store := newPendingStore(mock, time.Hour)

	require.NoError(t, store.SaveForm(ctx, "s1", testForm()))

	_, err := store.Load(ctx, "s1")
	require.ErrorIs(t, err, checkout.ErrNoPending)
}

func TestPendingStore_Errors(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	mock.failErr = errors.New("connection refused")
	store := newPendingStore(mock, time.Hour)

	require.ErrorIs(t, store.SaveForm(ctx, "s1", testForm()), mock.failErr)
	require.ErrorIs(t, store.SaveLines(ctx, "s1", testLines()), mock.failErr)

	_, err := store.Load(ctx, "s1")
	require.ErrorIs(t, err, mock.failErr)
	assert.NotErrorIs(t, err, checkout.ErrNoPending)

	require.Error(t, store.Ping(ctx))
}

func TestPendingStore_CorruptPayload(t *testing.T) {
	mock := newMockCmdable()
	mock.data[FormKey("s1")] = `{"fullName":`
	mock.data[LinesKey("s1")] = `[]`
	store := newPendingStore(mock, 0)

	assert.Equal(t, DefaultPendingTTL, store.ttl)
	_, err := store.Load(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, checkout.ErrNoPending)
}
