// Package handler exposes the catalog, cart, checkout and order history over
// a chi router with jx-encoded JSON bodies.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/recregt/e-kktc/internal/domain/cart"
	"github.com/recregt/e-kktc/internal/domain/checkout"
	"github.com/recregt/e-kktc/internal/domain/order"
	"github.com/recregt/e-kktc/internal/domain/product"
)

// CheckoutService runs checkouts for a cart session.
type CheckoutService interface {
	Submit(ctx context.Context, session string, c checkout.Cart, form checkout.Form) (*checkout.Result, error)
	Resume(ctx context.Context, session string, c checkout.Cart) (*checkout.Result, error)
	Prefill(ctx context.Context) (checkout.Form, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// SecureCookie marks the cart session cookie Secure.
	SecureCookie bool
	// SessionTTL is the lifetime of the cart session cookie.
	SessionTTL time.Duration
}

// Handler serves the storefront API.
type Handler struct {
	products product.Repository
	orders   order.Repository
	carts    *cart.Registry
	checkout CheckoutService

	imageBaseURL string
	secureCookie bool
	sessionTTL   time.Duration

	// inflight collapses concurrent checkout submissions of one cart session.
	inflight singleflight.Group
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	orders order.Repository,
	carts *cart.Registry,
	svc CheckoutService,
) *Handler {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	return &Handler{
		products:     products,
		orders:       orders,
		carts:        carts,
		checkout:     svc,
		imageBaseURL: cfg.ImageBaseURL,
		secureCookie: cfg.SecureCookie,
		sessionTTL:   cfg.SessionTTL,
	}
}

// Routes returns the /api router. Identity middleware, when used, must run
// before it.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{productID}", h.getProduct)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.cartSession)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addCartItem)
			r.Patch("/items/{productID}", h.updateCartItem)
			r.Delete("/items/{productID}", h.removeCartItem)
		})

		r.Post("/checkout", h.submitCheckout)
		r.Post("/checkout/resume", h.resumeCheckout)
	})

	r.Get("/checkout/prefill", h.prefillCheckout)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{orderNumber}", h.getOrder)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
