package cart

import (
	"math"

	"github.com/recregt/e-kktc/internal/domain/product"
)

// Action is a named cart mutation. The set of actions is closed: only the
// types in this package implement it.
type Action interface {
	apply(s State) State
}

// Add appends a product or increases the quantity of its existing line.
// Quantities below 1 are ignored, as is an increase that would overflow int.
type Add struct {
	Product  product.Snapshot
	Quantity int
}

// Remove deletes the line for ProductID. Removing an absent product is a no-op.
type Remove struct {
	ProductID string
}

// UpdateQuantity sets the absolute quantity of an existing line. A quantity
// of zero or less removes the line.
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

// Clear empties the cart.
type Clear struct{}

// Restore replaces the cart contents with previously captured lines, such as
// a checkout stashed before sign-up. Duplicate product ids are merged and
// non-positive quantities dropped.
type Restore struct {
	Lines []Line
}

// Reduce returns the state that results from applying a to s. It never
// modifies s.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

func (a Add) apply(s State) State {
	if a.Quantity < 1 {
		return s
	}
	lines := s.Lines()
	if i := s.indexOf(a.Product.ID); i >= 0 {
		if lines[i].Quantity > math.MaxInt-a.Quantity {
			return s
		}
		lines[i].Quantity += a.Quantity
	} else {
		lines = append(lines, Line{Product: a.Product, Quantity: a.Quantity})
	}
	return newState(lines)
}

func (a Remove) apply(s State) State {
	i := s.indexOf(a.ProductID)
	if i < 0 {
		return s
	}
	lines := make([]Line, 0, len(s.lines)-1)
	lines = append(lines, s.lines[:i]...)
	lines = append(lines, s.lines[i+1:]...)
	return newState(lines)
}

func (a UpdateQuantity) apply(s State) State {
	if a.Quantity <= 0 {
		return Remove{ProductID: a.ProductID}.apply(s)
	}
	i := s.indexOf(a.ProductID)
	if i < 0 {
		return s
	}
	lines := s.Lines()
	lines[i].Quantity = a.Quantity
	return newState(lines)
}

func (Clear) apply(State) State {
	return Empty()
}

func (a Restore) apply(State) State {
	s := Empty()
	for _, l := range a.Lines {
		s = Add{Product: l.Product, Quantity: l.Quantity}.apply(s)
	}
	return s
}
