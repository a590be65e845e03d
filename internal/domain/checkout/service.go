// Package checkout turns a cart and a shipping form into a persisted
// cash-on-delivery order, or defers the run until a guest signs up.
package checkout

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/recregt/e-kktc/internal/domain/cart"
	"github.com/recregt/e-kktc/internal/domain/order"
	"github.com/recregt/e-kktc/internal/identity"
)

// WorkflowState is the position of a checkout run in
// Draft -> Deferred -> Committed.
type WorkflowState string

const (
	StateDraft     WorkflowState = "draft"
	StateDeferred  WorkflowState = "deferred"
	StateCommitted WorkflowState = "committed"
)

// ContinueMarker is appended to the sign-up URL so the front end knows to
// resume checkout afterwards.
const ContinueMarker = "checkout"

// Cart is the part of a cart store the checkout needs.
type Cart interface {
	State() cart.State
	ClearCart()
}

// EventPublisher announces committed orders.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, rec order.Record, items []order.Item) error
}

// Result is the outcome of a checkout run that did not fail.
type Result struct {
	State       WorkflowState
	OrderID     string
	OrderNumber string
	// Redirect is set for deferred runs.
	Redirect string
}

// Config holds optional collaborators and settings of a Service.
type Config struct {
	// SignupURL is where guests are sent to create an account.
	SignupURL      string
	Events         EventPublisher
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Service runs checkouts.
type Service struct {
	identity identity.Provider
	orders   order.Repository
	pending  PendingStore
	events   EventPublisher
	redirect string
	tracer   trace.Tracer
	metrics  *metrics
}

// NewService creates a checkout service.
func NewService(ident identity.Provider, orders order.Repository, pending PendingStore, cfg Config) (*Service, error) {
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	m, err := newMetrics(cfg.MeterProvider)
	if err != nil {
		return nil, errors.Wrap(err, "checkout metrics")
	}
	redirect, err := signupRedirect(cfg.SignupURL)
	if err != nil {
		return nil, err
	}
	return &Service{
		identity: ident,
		orders:   orders,
		pending:  pending,
		events:   cfg.Events,
		redirect: redirect,
		tracer:   cfg.TracerProvider.Tracer(instrumentationName),
		metrics:  m,
	}, nil
}

func signupRedirect(raw string) (string, error) {
	if raw == "" {
		raw = "/signup"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "parse signup url")
	}
	q := u.Query()
	q.Set("redirect", ContinueMarker)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Submit places an order for the current contents of c.
//
// Guests get a Deferred result: the form and cart lines are stashed under
// session and the cart is left as is. Signed-in users get a Committed result
// once the order header and its items are stored, after which the cart is
// cleared. The cart is never cleared on failure.
func (s *Service) Submit(ctx context.Context, session string, c Cart, form Form) (res *Result, err error) {
	defer s.recoverRun(ctx, &res, &err)

	snapshot, form, err := s.prepare(ctx, c.State(), form)
	if err != nil {
		return nil, err
	}

	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, &FailureError{Stage: StageIdentity, Err: err})
	}
	if user == nil {
		return s.deferRun(ctx, session, snapshot, form)
	}
	return s.commit(context.WithoutCancel(ctx), c, snapshot, *user, form)
}

// Resume completes a checkout stashed by a guest who has since signed in.
//
// The order is built from the stashed lines, not from c. On success c is
// cleared; on any failure it is left untouched.
func (s *Service) Resume(ctx context.Context, session string, c Cart) (res *Result, err error) {
	defer s.recoverRun(ctx, &res, &err)

	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, &FailureError{Stage: StageIdentity, Err: err})
	}
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	p, err := s.pending.Load(ctx, session)
	if err != nil {
		if errors.Is(err, ErrNoPending) {
			return nil, ErrNoPending
		}
		return nil, s.fail(ctx, &FailureError{Stage: StageStash, Err: errors.Wrap(err, "load pending checkout")})
	}
	restored := cart.Reduce(cart.Empty(), cart.Restore{Lines: p.Lines})

	snapshot, form, err := s.prepare(ctx, restored, p.Form)
	if err != nil {
		return nil, err
	}
	res, err = s.commit(context.WithoutCancel(ctx), c, snapshot, *user, form)
	if err != nil {
		return nil, err
	}
	if err := s.pending.Clear(ctx, session); err != nil {
		zctx.From(ctx).Warn("Failed to clear pending checkout", zap.Error(err))
	}
	return res, nil
}

// Prefill suggests checkout form values. Signed-in users get their account
// email plus the contact and shipping details of their latest order; guests
// get an empty form.
func (s *Service) Prefill(ctx context.Context) (Form, error) {
	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return Form{}, errors.Wrap(err, "current user")
	}
	if user == nil {
		return Form{}, nil
	}

	form := Form{Email: user.Email}
	latest, err := s.orders.ListByUser(ctx, user.ID, order.ListFilter{Limit: 1})
	if err != nil {
		return Form{}, errors.Wrap(err, "latest order")
	}
	if len(latest) == 0 {
		return form, nil
	}
	rec := latest[0]
	form.FullName = rec.Shipping.FullName
	if form.FullName == "" {
		form.FullName = rec.ContactName
	}
	form.Phone = rec.Shipping.Phone
	if form.Phone == "" {
		form.Phone = rec.ContactPhone
	}
	if form.Email == "" {
		form.Email = rec.ContactEmail
	}
	form.Address = rec.Shipping.Address
	form.City = rec.Shipping.City
	return form.Normalize(), nil
}

// prepare guards against an empty cart and validates the trimmed form.
func (s *Service) prepare(ctx context.Context, snapshot cart.State, form Form) (cart.State, Form, error) {
	if snapshot.IsEmpty() {
		s.metrics.outcome(ctx, "empty_cart")
		return cart.State{}, Form{}, ErrEmptyCart
	}
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		s.metrics.outcome(ctx, "invalid")
		return cart.State{}, Form{}, err
	}
	return snapshot, form, nil
}

func (s *Service) deferRun(ctx context.Context, session string, snapshot cart.State, form Form) (*Result, error) {
	if err := s.pending.SaveForm(ctx, session, form); err != nil {
		return nil, s.fail(ctx, &FailureError{Stage: StageStash, Err: errors.Wrap(err, "save pending form")})
	}
	if err := s.pending.SaveLines(ctx, session, snapshot.Lines()); err != nil {
		return nil, s.fail(ctx, &FailureError{Stage: StageStash, Err: errors.Wrap(err, "save pending lines")})
	}

	zctx.From(ctx).Info("Checkout deferred until sign-up",
		zap.Int("lines", len(snapshot.Lines())),
	)
	s.metrics.outcome(ctx, string(StateDeferred))
	return &Result{State: StateDeferred, Redirect: s.redirect}, nil
}

func (s *Service) commit(ctx context.Context, c Cart, snapshot cart.State, user identity.User, form Form) (*Result, error) {
	var (
		rec   *order.Record
		items []order.Item
	)
	sg := newSaga(s.tracer, s.metrics)
	err := sg.execute(ctx,
		step{
			stage: StageCreateOrder,
			run: func(ctx context.Context) error {
				r, err := s.orders.Insert(ctx, buildHeader(user, snapshot, form))
				if err != nil {
					return errors.Wrap(err, "create order")
				}
				if r == nil {
					return errors.New("create order: no record returned")
				}
				rec = r
				return nil
			},
			undo: func(ctx context.Context) error {
				return s.orders.Delete(ctx, rec.ID)
			},
		},
		step{
			stage: StageCreateItems,
			run: func(ctx context.Context) error {
				items = buildItems(rec.ID, snapshot.Lines())
				if err := s.orders.InsertItems(ctx, items); err != nil {
					return errors.Wrapf(err, "create items for order %s", rec.ID)
				}
				return nil
			},
		},
	)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	c.ClearCart()

	lg := zctx.From(ctx).With(
		zap.String("order_id", rec.ID),
		zap.String("order_number", rec.Number),
	)
	lg.Info("Order placed",
		zap.Int("items", len(items)),
		zap.String("total", rec.Total.StringFixed(2)),
	)
	s.metrics.outcome(ctx, string(StateCommitted))

	s.publish(ctx, lg, *rec, items)

	return &Result{
		State:       StateCommitted,
		OrderID:     rec.ID,
		OrderNumber: rec.Number,
	}, nil
}

// publish announces a committed order. The order is already stored and the
// cart cleared, so neither an error nor a panic here fails the run.
func (s *Service) publish(ctx context.Context, lg *zap.Logger, rec order.Record, items []order.Item) {
	if s.events == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			lg.Error("Order placed event publisher panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	if err := s.events.PublishOrderPlaced(ctx, rec, items); err != nil {
		lg.Warn("Failed to publish order placed event", zap.Error(err))
	}
}

// fail logs a run failure with its stage and counts it.
func (s *Service) fail(ctx context.Context, err error) error {
	stage := StageUnexpected
	var fe *FailureError
	if errors.As(err, &fe) {
		stage = fe.Stage
	}
	zctx.From(ctx).Error("Checkout failed",
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
	s.metrics.outcome(ctx, "failed_"+string(stage))
	return err
}

func (s *Service) recoverRun(ctx context.Context, res **Result, err *error) {
	r := recover()
	if r == nil {
		return
	}
	zctx.From(ctx).Error("Checkout panicked",
		zap.Any("panic", r),
		zap.Stack("stack"),
	)
	s.metrics.outcome(ctx, "failed_"+string(StageUnexpected))
	*res = nil
	*err = &FailureError{Stage: StageUnexpected, Err: fmt.Errorf("panic: %v", r)}
}

func buildHeader(user identity.User, snapshot cart.State, form Form) order.Header {
	total := snapshot.TotalPrice()
	return order.Header{
		UserID:        user.ID,
		Subtotal:      total,
		Total:         total,
		Status:        order.StatusPending,
		PaymentMethod: order.PaymentCashOnDelivery,
		PaymentStatus: order.PaymentPending,
		ContactName:   form.FullName,
		ContactEmail:  form.Email,
		ContactPhone:  form.Phone,
		Shipping: order.ShippingAddress{
			FullName: form.FullName,
			Phone:    form.Phone,
			Address:  form.Address,
			City:     form.City,
		},
		Notes: form.Notes,
	}
}

func buildItems(orderID string, lines []cart.Line) []order.Item {
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			OrderID:      orderID,
			ProductID:    l.Product.ID,
			ProductName:  l.Product.Name,
			ProductImage: l.Product.FirstImage(),
			SellerID:     l.Product.SellerID,
			Quantity:     l.Quantity,
			UnitPrice:    l.Product.Price,
			Total:        l.Total(),
		})
	}
	return items
}
