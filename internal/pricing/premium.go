package pricing

import (
	"math"
	"math/big"

	"github.com/alexanderramin/insurer/internal/domain"
)

// multiplierScale is the fixed-point precision of a multiplier: four
// decimal places.
const multiplierScale = 10_000

// Premium returns base × multiplier rounded half-up to the minor unit. The
// multiplier is taken to four decimal places and the product is computed in
// integers, so an exact half always rounds up. Results beyond the Money
// range saturate.
func Premium(base domain.Money, multiplier float64) domain.Money {
	bp := int64(math.Round(multiplier * multiplierScale))
	b := int64(base)
	neg := (b < 0) != (bp < 0)
	if b < 0 {
		b = -b
	}
	if bp < 0 {
		bp = -bp
	}

	var abs int64
	if bp == 0 || b <= (math.MaxInt64-multiplierScale/2)/bp {
		abs = (b*bp + multiplierScale/2) / multiplierScale
	} else {
		q := new(big.Int).Mul(big.NewInt(b), big.NewInt(bp))
		q.Add(q, big.NewInt(multiplierScale/2))
		q.Quo(q, big.NewInt(multiplierScale))
		if !q.IsInt64() {
			if neg {
				return domain.Money(math.MinInt64)
			}
			return domain.Money(math.MaxInt64)
		}
		abs = q.Int64()
	}
	if neg {
		return domain.Money(-abs)
	}
	return domain.Money(abs)
}

// Quote is the premium offered for one plan category.
type Quote struct {
	Category domain.PlanCategory
	Base     domain.Money
	Premium  domain.Money
}

// QuoteTable prices every category in prices at the given multiplier, in tier
// order.
func QuoteTable(prices domain.BasePrices, multiplier float64) []Quote {
	cats := prices.Categories()
	quotes := make([]Quote, 0, len(cats))
	for _, c := range cats {
		base := prices[c]
		quotes = append(quotes, Quote{Category: c, Base: base, Premium: Premium(base, multiplier)})
	}
	return quotes
}
