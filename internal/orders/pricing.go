package orders

import "github.com/shopspring/decimal"

var (
	// CertificateCost is the price of one certified copy.
	CertificateCost = decimal.RequireFromString("14.00")

	fixedCardFee      = decimal.RequireFromString("0.25")
	percentageCardFee = decimal.RequireFromString("0.0215")
)

// Cost breaks down what a cart of certificates costs.
type Cost struct {
	Subtotal   decimal.Decimal
	ServiceFee decimal.Decimal
	Total      decimal.Decimal
}

// CalculateCost prices quantity certificates. The card processor's fee is
// grossed up so that the amount left after its cut covers the subtotal, and
// rounded up to the cent.
func CalculateCost(quantity int) Cost {
	if quantity <= 0 {
		return Cost{Subtotal: decimal.Zero, ServiceFee: decimal.Zero, Total: decimal.Zero}
	}
	subtotal := CertificateCost.Mul(decimal.NewFromInt(int64(quantity)))
	total := subtotal.Add(fixedCardFee).
		Div(decimal.NewFromInt(1).Sub(percentageCardFee)).
		RoundCeil(2)
	return Cost{
		Subtotal:   subtotal,
		ServiceFee: total.Sub(subtotal),
		Total:      total,
	}
}

// TotalQuantity sums the quantities of items.
func TotalQuantity(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// FormatAmount renders d as a fixed-point string with two fraction digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
