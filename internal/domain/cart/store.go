package cart

import (
	"sync"

	"github.com/recregt/e-kktc/internal/domain/product"
)

// Listener receives the new state after every dispatch that changed it.
type Listener func(State)

// Store is the single source of truth for one cart. It exposes the current
// state and a fixed set of named mutations, all routed through Reduce.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[uint64]Listener
	nextID    uint64
}

// NewStore returns a Store holding an empty cart.
func NewStore() *Store {
	return &Store{
		state:     Empty(),
		listeners: make(map[uint64]Listener),
	}
}

// State returns a snapshot of the current cart state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies the action and returns the resulting state. Listeners are
// notified outside the lock, and only when the state changed.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	prev := s.state
	next := Reduce(prev, a)
	s.state = next
	var notify []Listener
	if !next.Equal(prev) {
		notify = make([]Listener, 0, len(s.listeners))
		for _, l := range s.listeners {
			notify = append(notify, l)
		}
	}
	s.mu.Unlock()

	for _, l := range notify {
		l(next)
	}
	return next
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// AddToCart adds quantity units of p.
func (s *Store) AddToCart(p product.Snapshot, quantity int) State {
	return s.Dispatch(Add{Product: p, Quantity: quantity})
}

// RemoveFromCart drops the line for productID.
func (s *Store) RemoveFromCart(productID string) State {
	return s.Dispatch(Remove{ProductID: productID})
}

// UpdateQuantity sets the quantity for productID; zero or less removes it.
func (s *Store) UpdateQuantity(productID string, quantity int) State {
	return s.Dispatch(UpdateQuantity{ProductID: productID, Quantity: quantity})
}

// ClearCart resets the cart to empty.
func (s *Store) ClearCart() {
	s.Dispatch(Clear{})
}
