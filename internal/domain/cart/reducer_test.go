package cart

import (
	"math"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recregt/e-kktc/internal/domain/product"
)

// --- Helpers ---

func newTestProduct(id, price string) product.Snapshot {
	return product.Snapshot{
		ID:     id,
		Name:   "Product " + id,
		Price:  decimal.RequireFromString(price),
		Images: []string{id + ".jpg"},
	}
}

func reduceAll(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func assertFolded(t *testing.T, s State) {
	t.Helper()
	items := 0
	price := decimal.Zero
	seen := make(map[string]bool)
	for _, l := range s.Lines() {
		assert.Positive(t, l.Quantity, "line %s has non-positive quantity", l.Product.ID)
		assert.False(t, seen[l.Product.ID], "duplicate line for %s", l.Product.ID)
		seen[l.Product.ID] = true
		items += l.Quantity
		price = price.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	assert.Equal(t, items, s.TotalItems())
	assert.True(t, price.Equal(s.TotalPrice()), "expected total %s, got %s", price, s.TotalPrice())
}

// --- Tests ---

func TestReduce_AddNewLine(t *testing.T) {
	p := newTestProduct("p1", "12.50")

	s := Reduce(Empty(), Add{Product: p, Quantity: 2})

	require.Len(t, s.Lines(), 1)
	assert.Equal(t, 2, s.TotalItems())
	assert.True(t, decimal.RequireFromString("25.00").Equal(s.TotalPrice()))
}

func TestReduce_AddSameProductMerges(t *testing.T) {
	p := newTestProduct("p1", "10")

	s := reduceAll(Empty(),
		Add{Product: p, Quantity: 2},
		Add{Product: p, Quantity: 3},
	)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].Product.ID)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, 5, s.TotalItems())
}

func TestReduce_AddKeepsInsertionOrder(t *testing.T) {
	s := reduceAll(Empty(),
		Add{Product: newTestProduct("b", "1"), Quantity: 1},
		Add{Product: newTestProduct("a", "1"), Quantity: 1},
		Add{Product: newTestProduct("b", "1"), Quantity: 1},
	)

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "b", lines[0].Product.ID)
	assert.Equal(t, "a", lines[1].Product.ID)
}

func TestReduce_AddNonPositiveQuantityIgnored(t *testing.T) {
	p := newTestProduct("p1", "10")

	for _, qty := range []int{0, -3} {
		s := Reduce(Empty(), Add{Product: p, Quantity: qty})
		assert.True(t, s.IsEmpty(), "quantity %d", qty)
	}
}

func TestReduce_AddOverflowIgnored(t *testing.T) {
	p := newTestProduct("p1", "1")
	s := Reduce(Empty(), Add{Product: p, Quantity: math.MaxInt})

	next := Reduce(s, Add{Product: p, Quantity: 1})

	require.Len(t, next.Lines(), 1)
	assert.Equal(t, math.MaxInt, next.Lines()[0].Quantity)
	assert.True(t, next.Equal(s))
}

func TestReduce_RestoreOverflowKeepsFirst(t *testing.T) {
	p := newTestProduct("p1", "1")

	s := Reduce(Empty(), Restore{Lines: []Line{
		{Product: p, Quantity: math.MaxInt - 1},
		{Product: p, Quantity: 5},
	}})

	require.Len(t, s.Lines(), 1)
	assert.Equal(t, math.MaxInt-1, s.Lines()[0].Quantity)
}

func TestReduce_TotalItemsSaturates(t *testing.T) {
	s := reduceAll(Empty(),
		Add{Product: newTestProduct("a", "1"), Quantity: math.MaxInt},
		Add{Product: newTestProduct("b", "1"), Quantity: math.MaxInt},
	)

	require.Len(t, s.Lines(), 2)
	assert.Equal(t, math.MaxInt, s.TotalItems())
}

func TestReduce_RemoveAbsentIsNoop(t *testing.T) {
	s := Reduce(Empty(), Add{Product: newTestProduct("p1", "3"), Quantity: 1})

	got := Reduce(s, Remove{ProductID: "missing"})

	assert.True(t, got.Equal(s))
}

func TestReduce_UpdateQuantityNonPositiveRemoves(t *testing.T) {
	p1 := newTestProduct("p1", "3")
	p2 := newTestProduct("p2", "4")
	base := reduceAll(Empty(),
		Add{Product: p1, Quantity: 2},
		Add{Product: p2, Quantity: 1},
	)
	removed := Reduce(base, Remove{ProductID: "p1"})

	for _, qty := range []int{0, -1} {
		got := Reduce(base, UpdateQuantity{ProductID: "p1", Quantity: qty})
		assert.True(t, got.Equal(removed), "quantity %d", qty)
		_, ok := got.Line("p1")
		assert.False(t, ok)
	}
}

func TestReduce_UpdateQuantityIsAbsolute(t *testing.T) {
	p := newTestProduct("p1", "2.25")
	s := Reduce(Empty(), Add{Product: p, Quantity: 5})

	s = Reduce(s, UpdateQuantity{ProductID: "p1", Quantity: 2})

	l, ok := s.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 2, l.Quantity)
	assert.True(t, decimal.RequireFromString("4.50").Equal(s.TotalPrice()))
}

func TestReduce_UpdateQuantityAbsentIsNoop(t *testing.T) {
	s := Reduce(Empty(), Add{Product: newTestProduct("p1", "1"), Quantity: 1})

	got := Reduce(s, UpdateQuantity{ProductID: "missing", Quantity: 4})

	assert.True(t, got.Equal(s))
}

func TestReduce_Clear(t *testing.T) {
	s := reduceAll(Empty(),
		Add{Product: newTestProduct("p1", "9.99"), Quantity: 3},
		Add{Product: newTestProduct("p2", "1.01"), Quantity: 1},
	)

	s = Reduce(s, Clear{})

	assert.Empty(t, s.Lines())
	assert.Zero(t, s.TotalItems())
	assert.True(t, decimal.Zero.Equal(s.TotalPrice()))
}

func TestReduce_RestoreMergesAndDrops(t *testing.T) {
	p1 := newTestProduct("p1", "5")
	p2 := newTestProduct("p2", "7")
	s := Reduce(Empty(), Add{Product: newTestProduct("old", "1"), Quantity: 1})

	s = Reduce(s, Restore{Lines: []Line{
		{Product: p1, Quantity: 1},
		{Product: p2, Quantity: 0},
		{Product: p1, Quantity: 2},
	}})

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].Product.ID)
	assert.Equal(t, 3, lines[0].Quantity)
	assertFolded(t, s)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	p := newTestProduct("p1", "1")
	s := Reduce(Empty(), Add{Product: p, Quantity: 1})

	_ = Reduce(s, Add{Product: p, Quantity: 4})
	_ = Reduce(s, UpdateQuantity{ProductID: "p1", Quantity: 9})

	l, _ := s.Line("p1")
	assert.Equal(t, 1, l.Quantity)
}

func TestReduce_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	catalog := make([]product.Snapshot, 5)
	for i := range catalog {
		catalog[i] = newTestProduct("p"+strconv.Itoa(i), strconv.Itoa(i+1)+".35")
	}

	s := Empty()
	for range 2000 {
		p := catalog[rng.IntN(len(catalog))]
		switch rng.IntN(4) {
		case 0, 1:
			s = Reduce(s, Add{Product: p, Quantity: rng.IntN(4) + 1})
		case 2:
			s = Reduce(s, UpdateQuantity{ProductID: p.ID, Quantity: rng.IntN(5) - 1})
		case 3:
			s = Reduce(s, Remove{ProductID: p.ID})
		}
		assertFolded(t, s)
	}

	s = Reduce(s, Clear{})
	assert.True(t, s.IsEmpty())
	assert.Zero(t, s.TotalItems())
	assert.True(t, s.TotalPrice().IsZero())
}
