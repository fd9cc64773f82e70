package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/shopfront/internal/domain"
)

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineSubtotal returns quantity * unitPrice rounded to cents.
func LineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// RecomputeTotals refreshes every line subtotal and the cart total.
func RecomputeTotals(c *domain.Cart) {
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].Subtotal = LineSubtotal(c.Items[i].Quantity, c.Items[i].UnitPrice)
		total = total.Add(c.Items[i].Subtotal)
	}
	c.TotalAmount = RoundMoney(total)
}

// AddItem merges quantity into the existing line for skuID, or appends a new
// line priced at unitPrice. Line quantities saturate at MaxItemQuantity.
// The unit price of an existing line is kept.
func AddItem(c *domain.Cart, skuID uuid.UUID, quantity int, unitPrice decimal.Decimal) {
	if i := indexOf(c, skuID); i >= 0 {
		c.Items[i].Quantity = min(c.Items[i].Quantity+quantity, domain.MaxItemQuantity)
	} else {
		c.Items = append(c.Items, domain.CartItem{
			SKUID:     skuID,
			Quantity:  min(quantity, domain.MaxItemQuantity),
			UnitPrice: unitPrice,
		})
	}
	RecomputeTotals(c)
}

// UpdateItem sets the quantity of the line for skuID. A quantity of zero or
// less removes the line. Returns ErrCartItemNotFound when there is no line.
func UpdateItem(c *domain.Cart, skuID uuid.UUID, quantity int) error {
	i := indexOf(c, skuID)
	if i < 0 {
		return domain.ErrCartItemNotFound
	}

	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = min(quantity, domain.MaxItemQuantity)
	}
	RecomputeTotals(c)
	return nil
}

// RemoveItem deletes the line for skuID. Returns ErrCartItemNotFound when there is no line.
func RemoveItem(c *domain.Cart, skuID uuid.UUID) error {
	i := indexOf(c, skuID)
	if i < 0 {
		return domain.ErrCartItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	RecomputeTotals(c)
	return nil
}

// ClearItems empties the cart.
func ClearItems(c *domain.Cart) {
	c.Items = []domain.CartItem{}
	c.TotalAmount = decimal.Zero
}

// ItemCount sums line quantities.
func ItemCount(c *domain.Cart) int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// HasItem reports whether the cart holds a line for skuID.
func HasItem(c *domain.Cart, skuID uuid.UUID) bool {
	return indexOf(c, skuID) >= 0
}

// GetItem returns the line for skuID.
func GetItem(c *domain.Cart, skuID uuid.UUID) (domain.CartItem, bool) {
	if i := indexOf(c, skuID); i >= 0 {
		return c.Items[i], true
	}
	return domain.CartItem{}, false
}

func indexOf(c *domain.Cart, skuID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].SKUID == skuID {
			return i
		}
	}
	return -1
}
