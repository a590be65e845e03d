package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/recregt/e-kktc/internal/domain/cart"
	"github.com/recregt/e-kktc/internal/domain/product"
)

// maxQuantity bounds a single cart line so it fits the order_items column.
const maxQuantity = 9999

// store returns the session's cart, creating it.
func (h *Handler) store(r *http.Request) *cart.Store {
	return h.carts.Get(sessionFrom(r.Context()))
}

// existing returns the session's cart only if one was already created.
func (h *Handler) existing(r *http.Request) (*cart.Store, bool) {
	return h.carts.Lookup(sessionFrom(r.Context()))
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.existing(r)
	if !ok {
		h.writeCart(w, http.StatusOK, cart.Empty())
		return
	}
	h.writeCart(w, http.StatusOK, s.State())
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.existing(r)
	if !ok {
		h.writeCart(w, http.StatusOK, cart.Empty())
		return
	}
	s.ClearCart()
	h.writeCart(w, http.StatusOK, s.State())
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	productID, quantity, hasQuantity, err := decodeQuantity(data, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if !hasQuantity {
		quantity = 1
	}
	if quantity < 1 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if quantity > maxQuantity {
		writeError(w, http.StatusBadRequest, "quantity must not exceed 9999")
		return
	}

	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("Get product for cart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s := h.store(r)
	if l, ok := s.State().Line(p.ID); ok && l.Quantity > maxQuantity-quantity {
		writeError(w, http.StatusBadRequest, "quantity must not exceed 9999")
		return
	}
	h.writeCart(w, http.StatusOK, s.AddToCart(*p, quantity))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, quantity, hasQuantity, err := decodeQuantity(data, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !hasQuantity {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	if quantity > maxQuantity {
		writeError(w, http.StatusBadRequest, "quantity must not exceed 9999")
		return
	}
	s, ok := h.existing(r)
	if !ok {
		h.writeCart(w, http.StatusOK, cart.Empty())
		return
	}
	h.writeCart(w, http.StatusOK, s.UpdateQuantity(chi.URLParam(r, "productID"), quantity))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.existing(r)
	if !ok {
		h.writeCart(w, http.StatusOK, cart.Empty())
		return
	}
	h.writeCart(w, http.StatusOK, s.RemoveFromCart(chi.URLParam(r, "productID")))
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, s cart.State) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("lines")
		e.ArrStart()
		for _, l := range s.Lines() {
			e.ObjStart()
			e.FieldStart("product")
			h.encodeProduct(e, l.Product)
			e.FieldStart("quantity")
			e.Int(l.Quantity)
			e.FieldStart("lineTotal")
			money(e, l.Total())
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("totalItems")
		e.Int(s.TotalItems())
		e.FieldStart("totalPrice")
		money(e, s.TotalPrice())
		e.ObjEnd()
	})
}
