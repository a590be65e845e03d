package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotAuthenticated is returned when resuming a deferred checkout
	// without a signed-in user.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrNoPending is returned when no deferred checkout is stashed for the
	// cart session.
	ErrNoPending = errors.New("no pending checkout")
)

// GenericFailureMessage is the only failure text shown to shoppers. Details
// stay in the logs.
const GenericFailureMessage = "Your order could not be placed. Please try again."

// Stage names the checkout step that failed.
type Stage string

const (
	StageIdentity    Stage = "identity"
	StageStash       Stage = "stash"
	StageCreateOrder Stage = "create_order"
	StageCreateItems Stage = "create_items"
	StageUnexpected  Stage = "unexpected"
)

// FailureError reports a checkout run that did not complete. Err carries the
// diagnostic cause; PublicMessage is safe to show to the shopper.
type FailureError struct {
	Stage Stage
	Err   error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("checkout %s: %v", e.Stage, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// PublicMessage returns the generic user-facing message.
func (e *FailureError) PublicMessage() string {
	return GenericFailureMessage
}
