package screening

import (
	"github.com/minwoo-dev/krx-screener/internal/modules/valuation"
)

// Verdict is the per-asset screening outcome with the underlying figures
// that produced it.
type Verdict struct {
	StockCode      string              `json:"stock_code"`
	Name           string              `json:"name"`
	CurrentPrice   float64             `json:"current_price"`
	MarketCap      *float64            `json:"market_cap,omitempty"`
	Beta           float64             `json:"beta"`
	RequiredReturn float64             `json:"required_return"`
	DPS            float64             `json:"dps"`
	DividendGrowth float64             `json:"dividend_growth"`
	DividendTier   string              `json:"dividend_tier"`
	GGMFairValue   valuation.FairValue `json:"ggm_fair_value"`
	ResidualValue  valuation.FairValue `json:"residual_value"`
	Undervalued    bool                `json:"undervalued"`

	// Advisory technical context, not part of the verdict.
	RSI        *float64 `json:"rsi,omitempty"`
	Volatility float64  `json:"volatility"`
}

// Exclusion records an asset dropped from the screen and why.
type Exclusion struct {
	StockCode string `json:"stock_code"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// Report is the full batch outcome: verdicts in input order plus every
// per-asset exclusion, so callers can inspect failure causes instead of
// only seeing survivors.
type Report struct {
	AsOf       string      `json:"as_of"`
	Verdicts   []Verdict   `json:"verdicts"`
	Exclusions []Exclusion `json:"exclusions"`
}

// Undervalued returns only the verdicts flagged undervalued, preserving
// input order.
func (r *Report) Undervalued() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if v.Undervalued {
			out = append(out, v)
		}
	}
	return out
}
