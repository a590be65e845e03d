package cart

import (
	"math"

	"github.com/shopspring/decimal"
)

// LineTotal returns price × quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total returns the line's quantity × unit price.
func (l Line) Total() decimal.Decimal {
	return LineTotal(l.Product.Price, l.Quantity)
}

// fold derives the cart aggregates from its lines. The item count saturates
// at math.MaxInt.
func fold(lines []Line) (int, decimal.Decimal) {
	items := 0
	price := decimal.Zero
	for _, l := range lines {
		if items > math.MaxInt-l.Quantity {
			items = math.MaxInt
		} else {
			items += l.Quantity
		}
		price = price.Add(l.Total())
	}
	return items, price
}
