package capm

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/minwoo-dev/krx-screener/internal/domain"
	"github.com/minwoo-dev/krx-screener/pkg/formulas"
)

// ErrZeroBenchmarkVariance indicates the benchmark return series has no
// variance over the estimation window. That is an upstream data integrity
// problem; it must never be masked by a beta of 0 or infinity.
var ErrZeroBenchmarkVariance = errors.New("benchmark return series has zero variance")

// Result holds the CAPM estimate for one asset.
type Result struct {
	StockCode      string  `json:"stock_code"`
	Beta           float64 `json:"beta"`
	MarketReturn   float64 `json:"market_return"`   // annualized
	RequiredReturn float64 `json:"required_return"` // rf + beta * (market - rf)
	SampleSize     int     `json:"sample_size"`     // aligned daily observations
}

// Exclusion records an asset dropped from a batch estimate and why.
type Exclusion struct {
	StockCode string `json:"stock_code"`
	Reason    string `json:"reason"`
}

// Estimator computes per-asset required returns from historical prices.
type Estimator struct {
	riskFree float64
	log      zerolog.Logger
}

// NewEstimator creates a new CAPM estimator.
func NewEstimator(riskFree float64, log zerolog.Logger) *Estimator {
	return &Estimator{
		riskFree: riskFree,
		log:      log.With().Str("component", "capm").Logger(),
	}
}

// RiskFree returns the risk-free rate the estimator was built with.
func (e *Estimator) RiskFree() float64 {
	return e.riskFree
}

// Estimate computes beta and required return for one asset against the
// benchmark. Asset and benchmark returns are aligned on the intersection of
// their dates; dates present in only one series are dropped. A nil result
// with a nil error means the aligned sample was empty and the asset should
// be excluded rather than failed.
func (e *Estimator) Estimate(stockCode string, assetPrices, benchmarkPrices []domain.PricePoint) (*Result, error) {
	assetRet := DailyReturns(assetPrices)
	benchRet := DailyReturns(benchmarkPrices)

	benchByDate := make(map[string]float64, len(benchRet))
	for _, rp := range benchRet {
		benchByDate[rp.Date] = rp.Value
	}

	var asset, market []float64
	for _, rp := range assetRet {
		if mv, ok := benchByDate[rp.Date]; ok {
			asset = append(asset, rp.Value)
			market = append(market, mv)
		}
	}

	if len(asset) == 0 {
		return nil, nil
	}

	marketVariance := stat.Variance(market, nil)
	if marketVariance == 0 {
		return nil, fmt.Errorf("%w: %d aligned observations for %s", ErrZeroBenchmarkVariance, len(market), stockCode)
	}

	marketAnnual := formulas.AnnualizedReturn(market)
	beta := stat.Covariance(asset, market, nil) / marketVariance
	required := e.riskFree + beta*(marketAnnual-e.riskFree)

	return &Result{
		StockCode:      stockCode,
		Beta:           beta,
		MarketReturn:   marketAnnual,
		RequiredReturn: required,
		SampleSize:     len(asset),
	}, nil
}

// EstimateBatch estimates every asset independently and collects both the
// successes and the per-asset exclusions, so callers can inspect failure
// causes instead of only seeing survivors. A zero-variance benchmark aborts
// the whole batch.
func (e *Estimator) EstimateBatch(order []string, assetPrices map[string][]domain.PricePoint, benchmarkPrices []domain.PricePoint) ([]Result, []Exclusion, error) {
	var results []Result
	var exclusions []Exclusion

	for _, stockCode := range order {
		prices, ok := assetPrices[stockCode]
		if !ok || len(prices) == 0 {
			exclusions = append(exclusions, Exclusion{StockCode: stockCode, Reason: "no price history"})
			continue
		}

		res, err := e.Estimate(stockCode, prices, benchmarkPrices)
		if err != nil {
			return nil, nil, err
		}
		if res == nil {
			e.log.Warn().Str("stock_code", stockCode).Msg("No overlapping benchmark dates, excluding")
			exclusions = append(exclusions, Exclusion{StockCode: stockCode, Reason: "no overlapping benchmark dates"})
			continue
		}

		results = append(results, *res)
	}

	return results, exclusions, nil
}

// DailyReturns converts a chronological price series into dated simple
// returns between consecutive available dates. The first date has no prior
// value and is dropped; intervals starting from a zero price are skipped.
func DailyReturns(points []domain.PricePoint) []domain.ReturnPoint {
	if len(points) < 2 {
		return nil
	}

	returns := make([]domain.ReturnPoint, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, domain.ReturnPoint{
			Date:  points[i].Date,
			Value: (points[i].Close - prev) / prev,
		})
	}

	return returns
}
