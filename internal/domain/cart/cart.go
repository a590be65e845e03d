// Package cart holds the shopping cart state container.
//
// All mutations go through Reduce, a pure function of (State, Action). Store
// wraps Reduce with a small observable surface for the rest of the
// application; Registry keeps one Store per cart session.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/recregt/e-kktc/internal/domain/product"
)

// Line pairs a product snapshot with a positive quantity.
type Line struct {
	Product  product.Snapshot
	Quantity int
}

// State is the cart contents plus the aggregates derived from it.
//
// Fields are unexported so that totals can only be produced by folding the
// lines; the zero value is the empty cart.
type State struct {
	lines      []Line
	totalItems int
	totalPrice decimal.Decimal
}

// Empty returns the empty cart state.
func Empty() State {
	return State{totalPrice: decimal.Zero}
}

// newState builds a State from lines, recomputing both totals.
func newState(lines []Line) State {
	items, price := fold(lines)
	return State{
		lines:      lines,
		totalItems: items,
		totalPrice: price,
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (s State) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// TotalItems is the sum of all line quantities.
func (s State) TotalItems() int {
	return s.totalItems
}

// TotalPrice is the sum of quantity × unit price over all lines.
func (s State) TotalPrice() decimal.Decimal {
	return s.totalPrice
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.lines) == 0
}

// Line returns the line for productID, if present.
func (s State) Line(productID string) (Line, bool) {
	if i := s.indexOf(productID); i >= 0 {
		return s.lines[i], true
	}
	return Line{}, false
}

// Equal reports whether two states hold the same products with the same
// quantities in the same order.
func (s State) Equal(o State) bool {
	if len(s.lines) != len(o.lines) {
		return false
	}
	for i := range s.lines {
		if s.lines[i].Product.ID != o.lines[i].Product.ID ||
			s.lines[i].Quantity != o.lines[i].Quantity {
			return false
		}
	}
	return s.totalItems == o.totalItems && s.totalPrice.Equal(o.totalPrice)
}

func (s State) indexOf(productID string) int {
	for i, l := range s.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}
