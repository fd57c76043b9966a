package valuation

import "math"

// Undefined-model reasons. A fair value is undefined when the perpetual
// growth model diverges (required return not above growth) or when the
// growth rate itself cannot be computed from the reported figures.
const (
	ReasonRequiredBelowGrowth = "required return does not exceed growth rate"
	ReasonNoBaseProfit        = "no base-year net profit to compute growth"
	ReasonNegativeProfitRatio = "negative profit ratio has no real growth rate"
)

// FairValue is the result of a valuation model: either a defined value or
// an explicit undefined marker with a reason. Downstream comparisons must
// check Defined; an undefined value never participates in arithmetic.
type FairValue struct {
	Value   float64 `json:"value,omitempty"`
	Defined bool    `json:"defined"`
	Reason  string  `json:"reason,omitempty"`
}

// Defined wraps a computed fair value.
func Defined(v float64) FairValue {
	return FairValue{Value: v, Defined: true}
}

// Undefined marks a model as undefined for the given reason.
func Undefined(reason string) FairValue {
	return FairValue{Reason: reason}
}

// DividendGrowth computes the one-year dividend growth rate. A company
// with no prior dividend is treated as having just started paying, with
// zero growth.
func DividendGrowth(dps, dpsPrev float64) float64 {
	if dpsPrev > 0 {
		return dps/dpsPrev - 1
	}
	return 0.0
}

// GGMFairValue prices a stock with the Gordon Growth Model:
//
//	fair = dps * (1 + g) / (r - g)
//
// The model is economically invalid when r <= g and returns the explicit
// undefined marker in that case.
func GGMFairValue(recentDPS, growth, required float64) FairValue {
	if required <= growth {
		return Undefined(ReasonRequiredBelowGrowth)
	}
	return Defined(recentDPS * (1 + growth) / (required - growth))
}

// ResidualIncomeValue estimates company value from book capital and a
// two-year geometric net-profit growth rate:
//
//	g  = sqrt(netProfit / netProfit3yAgo) - 1
//	NI = netProfit * g
//	V  = capital + (NI - r*capital) / (r - g)
//
// The growth rate is undefined when the base-year profit is zero or the
// profit ratio is negative, and the model shares the r <= g precondition
// with GGM. The comparison against market capitalization is the caller's
// concern.
func ResidualIncomeValue(netProfit, netProfit3yAgo, capital int64, required float64) FairValue {
	if netProfit3yAgo == 0 {
		return Undefined(ReasonNoBaseProfit)
	}

	ratio := float64(netProfit) / float64(netProfit3yAgo)
	if ratio < 0 {
		return Undefined(ReasonNegativeProfitRatio)
	}

	growth := math.Sqrt(ratio) - 1
	if required <= growth {
		return Undefined(ReasonRequiredBelowGrowth)
	}

	expectedNetIncome := float64(netProfit) * growth
	book := float64(capital)
	return Defined(book + (expectedNetIncome-required*book)/(required-growth))
}
