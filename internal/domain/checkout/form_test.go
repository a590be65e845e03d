package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recregt/e-kktc/internal/domain/cart"
)

func TestForm_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validForm().Validate())
	})

	t.Run("notes optional", func(t *testing.T) {
		f := validForm()
		f.Notes = ""
		require.NoError(t, f.Validate())
	})

	t.Run("all blank reports fields in order", func(t *testing.T) {
		err := Form{FullName: " ", Notes: "hello"}.Validate()

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		fields := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, f.Field)
		}
		assert.Equal(t, []string{"fullName", "phone", "email", "address", "city"}, fields)
		assert.Equal(t, "Full name is required", verr.Fields[0].Message)
		assert.Equal(t, "City is required", verr.Fields[4].Message)
		assert.Equal(t, "invalid checkout form: fullName, phone, email, address, city", err.Error())
	})
}

func TestForm_Normalize(t *testing.T) {
	got := Form{
		FullName: "  Mehmet  ",
		Phone:    "\t0533\n",
		Email:    " m@example.com",
		Address:  "Sokak 1 ",
		City:     " Gazimağusa ",
		Notes:    "  ",
	}.Normalize()

	assert.Equal(t, Form{
		FullName: "Mehmet",
		Phone:    "0533",
		Email:    "m@example.com",
		Address:  "Sokak 1",
		City:     "Gazimağusa",
	}, got)
}

func TestFormCodec(t *testing.T) {
	f := validForm()
	got, err := DecodeForm(EncodeForm(f))
	require.NoError(t, err)
	assert.Equal(t, f, got)

	t.Run("ignores unknown keys", func(t *testing.T) {
		got, err := DecodeForm([]byte(`{"city":"Girne","legacy":{"a":[1,2]}}`))
		require.NoError(t, err)
		assert.Equal(t, Form{City: "Girne"}, got)
	})

	t.Run("rejects malformed", func(t *testing.T) {
		_, err := DecodeForm([]byte(`{"city":42}`))
		require.Error(t, err)
	})
}

func TestLinesCodec(t *testing.T) {
	c := cart.NewStore()
	c.AddToCart(newTestProduct("p1", "12.50"), 2)
	noSeller := newTestProduct("p2", "0.99")
	noSeller.SellerID = nil
	noSeller.Images = nil
	c.AddToCart(noSeller, 4)
	lines := c.State().Lines()

	got, err := DecodeLines(EncodeLines(lines))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "p1", got[0].Product.ID)
	assert.Equal(t, 2, got[0].Quantity)
	assert.True(t, got[0].Product.Price.Equal(lines[0].Product.Price))
	assert.Equal(t, lines[0].Product.Images, got[0].Product.Images)
	require.NotNil(t, got[0].Product.SellerID)
	assert.Equal(t, "seller-p1", *got[0].Product.SellerID)

	assert.Nil(t, got[1].Product.SellerID)
	assert.Nil(t, got[1].Product.FirstImage())
	assert.Equal(t, 4, got[1].Quantity)

	restored := cart.Reduce(cart.Empty(), cart.Restore{Lines: got})
	assert.True(t, restored.TotalPrice().Equal(c.State().TotalPrice()))
	assert.Equal(t, 6, restored.TotalItems())

	t.Run("empty", func(t *testing.T) {
		got, err := DecodeLines(EncodeLines(nil))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("bad price", func(t *testing.T) {
		_, err := DecodeLines([]byte(`[{"productId":"x","price":"abc","quantity":1}]`))
		require.Error(t, err)
	})
}
