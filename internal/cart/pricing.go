package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloxcommerce/velox-backend/pkg/db/models"
)

// QuoteLine is one priced basket line as presented to the customer.
type QuoteLine struct {
	ItemID        uuid.UUID       `json:"item_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	LineDiscount  decimal.Decimal `json:"line_discount"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Unavailable   bool            `json:"unavailable,omitempty"`
}

// Quote is the derived pricing view of a cart. Nothing here is stored; it is
// recomputed from the lines and the promo snapshot on every read.
type Quote struct {
	CartID         uuid.UUID        `json:"cart_id"`
	CustomerID     uuid.UUID        `json:"customer_id"`
	Lines          []QuoteLine      `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	PromoCode      string           `json:"promo_code,omitempty"`
	PromoPercent   *decimal.Decimal `json:"promo_percent,omitempty"`
	PromoDiscount  decimal.Decimal  `json:"promo_discount"`
	EstimatedTotal decimal.Decimal  `json:"estimated_total"`
}

// BuildQuote derives customer-facing pricing from a cart. Lines whose product
// no longer exists keep their captured price and are flagged unavailable.
// The promo discount applies the cart's percent snapshot to the subtotal and
// rounds to currency scale.
func BuildQuote(cart *models.Cart, catalog map[uuid.UUID]models.Product, promoCode string) Quote {
	quote := Quote{
		CartID:         cart.ID,
		CustomerID:     cart.CustomerID,
		Lines:          make([]QuoteLine, 0, len(cart.Items)),
		Subtotal:       decimal.Zero,
		PromoDiscount:  decimal.Zero,
		EstimatedTotal: decimal.Zero,
	}

	for _, item := range cart.Items {
		line := QuoteLine{
			ItemID:        item.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			OriginalPrice: item.UnitPrice,
			LineTotal:     item.LineTotal(),
		}
		if product, ok := catalog[item.ProductID]; ok {
			line.Name = product.Name
			line.SKU = product.SKU
			line.OriginalPrice = product.Price
		} else {
			line.Unavailable = true
		}
		line.LineDiscount = line.OriginalPrice.Sub(line.UnitPrice).
			Mul(decimal.NewFromInt(int64(line.Quantity)))
		if line.LineDiscount.IsNegative() {
			line.LineDiscount = decimal.Zero
		}

		quote.Subtotal = quote.Subtotal.Add(line.LineTotal)
		quote.Lines = append(quote.Lines, line)
	}

	if cart.AppliedPromoID != nil && cart.PromoPercent != nil {
		quote.PromoCode = promoCode
		quote.PromoPercent = cart.PromoPercent
		quote.PromoDiscount = PromoDiscount(quote.Subtotal, *cart.PromoPercent)
	}

	quote.EstimatedTotal = quote.Subtotal.Sub(quote.PromoDiscount)
	return quote
}

// PromoDiscount computes a percentage discount on an amount, rounded to
// currency scale.
func PromoDiscount(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}
