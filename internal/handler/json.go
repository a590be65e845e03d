package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/recregt/e-kktc/internal/domain/checkout"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError renders {"code": status, "message": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

func writeValidationError(w http.ResponseWriter, verr *checkout.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(http.StatusUnprocessableEntity)
		e.FieldStart("message")
		e.Str("Please fill in all required fields.")
		e.FieldStart("fields")
		e.ArrStart()
		for _, f := range verr.Fields {
			e.ObjStart()
			e.FieldStart("field")
			e.Str(f.Field)
			e.FieldStart("message")
			e.Str(f.Message)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

// money writes an exact two-decimal JSON number.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}
	return data, nil
}

// decodeQuantity reads {"productId": "...", "quantity": n}. Missing fields
// keep their zero values; productId is ignored when wantProduct is false.
func decodeQuantity(data []byte, wantProduct bool) (productID string, quantity int, hasQuantity bool, err error) {
	err = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch {
		case key == "productId" && wantProduct:
			v, err := d.Str()
			productID = v
			return err
		case key == "quantity":
			v, err := d.Int()
			quantity, hasQuantity = v, err == nil
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return "", 0, false, errors.Wrap(err, "decode body")
	}
	return productID, quantity, hasQuantity, nil
}
