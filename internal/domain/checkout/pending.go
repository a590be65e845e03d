package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/recregt/e-kktc/internal/domain/cart"
	"github.com/recregt/e-kktc/internal/domain/product"
)

// Pending is a guest checkout stashed until the shopper signs up.
type Pending struct {
	Form  Form
	Lines []cart.Line
}

// PendingStore persists deferred checkouts under two slots per cart session:
// one for the form and one for the cart lines. Implementations return
// ErrNoPending from Load when either slot is missing.
type PendingStore interface {
	SaveForm(ctx context.Context, session string, f Form) error
	SaveLines(ctx context.Context, session string, lines []cart.Line) error
	Load(ctx context.Context, session string) (*Pending, error)
	Clear(ctx context.Context, session string) error
}

// EncodeForm serializes a checkout form for the pending store.
func EncodeForm(f Form) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("fullName")
	e.Str(f.FullName)
	e.FieldStart("phone")
	e.Str(f.Phone)
	e.FieldStart("email")
	e.Str(f.Email)
	e.FieldStart("address")
	e.Str(f.Address)
	e.FieldStart("city")
	e.Str(f.City)
	e.FieldStart("notes")
	e.Str(f.Notes)
	e.ObjEnd()
	return e.Bytes()
}

// DecodeForm is the inverse of EncodeForm. Unknown keys are ignored.
func DecodeForm(data []byte) (Form, error) {
	var f Form
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "fullName":
			dst = &f.FullName
		case "phone":
			dst = &f.Phone
		case "email":
			dst = &f.Email
		case "address":
			dst = &f.Address
		case "city":
			dst = &f.City
		case "notes":
			dst = &f.Notes
		default:
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return errors.Wrap(err, key)
		}
		*dst = v
		return nil
	})
	if err != nil {
		return Form{}, errors.Wrap(err, "decode pending form")
	}
	return f, nil
}

// EncodeLines serializes cart lines, including the product snapshot each
// line was added with.
func EncodeLines(lines []cart.Line) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, l := range lines {
		p := l.Product
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("price")
		e.Str(p.Price.String())
		e.FieldStart("category")
		e.Str(p.Category)
		e.FieldStart("images")
		e.ArrStart()
		for _, img := range p.Images {
			e.Str(img)
		}
		e.ArrEnd()
		e.FieldStart("sellerId")
		if p.SellerID != nil {
			e.Str(*p.SellerID)
		} else {
			e.Null()
		}
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeLines is the inverse of EncodeLines.
func DecodeLines(data []byte) ([]cart.Line, error) {
	var lines []cart.Line
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		l, err := decodeLine(d)
		if err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode pending lines")
	}
	return lines, nil
}

func decodeLine(d *jx.Decoder) (cart.Line, error) {
	var (
		l cart.Line
		p product.Snapshot
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			var raw string
			if raw, err = d.Str(); err != nil {
				return err
			}
			p.Price, err = decimal.NewFromString(raw)
		case "images":
			err = d.Arr(func(d *jx.Decoder) error {
				img, err := d.Str()
				if err != nil {
					return err
				}
				p.Images = append(p.Images, img)
				return nil
			})
		case "sellerId":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var seller string
			if seller, err = d.Str(); err == nil {
				p.SellerID = &seller
			}
		case "quantity":
			l.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	l.Product = p
	return l, err
}
