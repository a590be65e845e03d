package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/recregt/e-kktc/internal/domain/cart"
	"github.com/recregt/e-kktc/internal/domain/checkout"
)

func (h *Handler) submitCheckout(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	form, err := checkout.DecodeForm(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session := sessionFrom(r.Context())
	c, ok := h.existing(r)
	if !ok {
		c = cart.NewStore()
	}
	v, err, shared := h.inflight.Do("submit:"+session, func() (any, error) {
		return h.checkout.Submit(r.Context(), session, c, form)
	})
	if shared {
		zctx.From(r.Context()).Debug("Collapsed duplicate checkout submission")
	}
	h.writeCheckout(w, r, v, err)
}

func (h *Handler) resumeCheckout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	v, err, _ := h.inflight.Do("resume:"+session, func() (any, error) {
		return h.checkout.Resume(r.Context(), session, h.store(r))
	})
	h.writeCheckout(w, r, v, err)
}

func (h *Handler) prefillCheckout(w http.ResponseWriter, r *http.Request) {
	form, err := h.checkout.Prefill(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("Prefill checkout", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		for _, field := range []struct{ name, value string }{
			{"fullName", form.FullName},
			{"phone", form.Phone},
			{"email", form.Email},
			{"address", form.Address},
			{"city", form.City},
		} {
			e.FieldStart(field.name)
			e.Str(field.value)
		}
		e.ObjEnd()
	})
}

func (h *Handler) writeCheckout(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		mapCheckoutError(w, r, err)
		return
	}
	res, _ := v.(*checkout.Result)
	if res == nil {
		mapCheckoutError(w, r, errors.New("checkout returned no result"))
		return
	}

	switch res.State {
	case checkout.StateDeferred:
		writeJSON(w, http.StatusAccepted, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("state")
			e.Str(string(res.State))
			e.FieldStart("redirect")
			e.Str(res.Redirect)
			e.ObjEnd()
		})
	default:
		writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("state")
			e.Str(string(res.State))
			e.FieldStart("orderId")
			e.Str(res.OrderID)
			e.FieldStart("orderNumber")
			e.Str(res.OrderNumber)
			e.ObjEnd()
		})
	}
}

// mapCheckoutError translates checkout errors to HTTP responses. Failure
// details never reach the client.
func mapCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *checkout.ValidationError
		ferr *checkout.FailureError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, checkout.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, checkout.ErrNoPending):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ferr):
		writeError(w, http.StatusInternalServerError, ferr.PublicMessage())
	default:
		zctx.From(r.Context()).Error("Checkout error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, checkout.GenericFailureMessage)
	}
}
