package screening

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/minwoo-dev/krx-screener/internal/domain"
	"github.com/minwoo-dev/krx-screener/internal/modules/capm"
	"github.com/minwoo-dev/krx-screener/internal/modules/valuation"
	"github.com/minwoo-dev/krx-screener/pkg/formulas"
)

// DateFormat is the wire format for trading dates.
const DateFormat = "20060102"

const rsiPeriod = 14

// DataSource supplies the external series the screen consumes. The main
// database repository satisfies it; tests use in-memory fakes.
type DataSource interface {
	ClosePrices(stockCode, start, end string) ([]domain.PricePoint, error)
	IndexPrices(start, end string) ([]domain.PricePoint, error)
	Fundamentals(stockCode string, year int) (*domain.FundamentalRecord, error)
	DividendRecords(stockCode string, year int) ([]domain.DividendRecord, error)
	Snapshot(stockCode, date string) (*domain.Snapshot, error)
}

// Service screens a universe of companies for undervaluation.
type Service struct {
	data        DataSource
	estimator   *capm.Estimator
	windowYears int
	log         zerolog.Logger
}

// NewService creates a new screening service.
func NewService(data DataSource, estimator *capm.Estimator, windowYears int, log zerolog.Logger) *Service {
	return &Service{
		data:        data,
		estimator:   estimator,
		windowYears: windowYears,
		log:         log.With().Str("component", "screening").Logger(),
	}
}

// Screen evaluates every candidate over the trailing window ending at asOf.
// An asset is undervalued when its current price is below the GGM fair
// value OR its residual-income value exceeds its market capitalization;
// an asset with both signals undefined is never flagged. Candidates whose
// required data cannot be resolved are excluded with a warning, never
// failing the batch; only a missing benchmark or a zero-variance benchmark
// aborts the screen.
func (s *Service) Screen(candidates []domain.Company, asOf time.Time) (*Report, error) {
	end := asOf.Format(DateFormat)
	start := asOf.AddDate(-s.windowYears, 0, 0).Format(DateFormat)

	benchmark, err := s.data.IndexPrices(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmark prices: %w", err)
	}
	if len(benchmark) == 0 {
		return nil, fmt.Errorf("benchmark index has no data between %s and %s", start, end)
	}

	report := &Report{AsOf: end}
	year := asOf.Year()

	for _, company := range candidates {
		verdict, reason, err := s.screenOne(company, benchmark, start, end, year)
		if err != nil {
			return nil, err
		}
		if verdict == nil {
			s.log.Warn().
				Str("stock_code", company.StockCode).
				Str("name", company.Name).
				Str("reason", reason).
				Msg("Excluding candidate from screen")
			report.Exclusions = append(report.Exclusions, Exclusion{
				StockCode: company.StockCode,
				Name:      company.Name,
				Reason:    reason,
			})
			continue
		}
		report.Verdicts = append(report.Verdicts, *verdict)
	}

	s.log.Info().
		Str("as_of", end).
		Int("screened", len(report.Verdicts)).
		Int("excluded", len(report.Exclusions)).
		Int("undervalued", len(report.Undervalued())).
		Msg("Screen complete")

	return report, nil
}

// screenOne evaluates a single candidate. A nil verdict with a non-empty
// reason means the candidate is excluded; an error aborts the batch.
func (s *Service) screenOne(company domain.Company, benchmark []domain.PricePoint, start, end string, year int) (*Verdict, string, error) {
	prices, err := s.data.ClosePrices(company.StockCode, start, end)
	if err != nil {
		return nil, fmt.Sprintf("price history unavailable: %v", err), nil
	}
	if len(prices) == 0 {
		return nil, "no price history in window", nil
	}

	capmRes, err := s.estimator.Estimate(company.StockCode, prices, benchmark)
	if err != nil {
		// Zero benchmark variance is a data integrity problem upstream.
		return nil, "", err
	}
	if capmRes == nil {
		return nil, "no overlapping benchmark dates", nil
	}

	// A missing dividend is zero, not an exclusion: the dividend model then
	// prices the stock at zero and can never flag it, but the residual-income
	// signal below still can.
	dps, dpsTier, hasDividend := s.resolveDividend(company.StockCode, year-1)
	tierLabel := "none"
	if hasDividend {
		tierLabel = dpsTier.String()
		if dpsTier == valuation.TierPreferred {
			s.log.Warn().
				Str("stock_code", company.StockCode).
				Int("year", year-1).
				Msg("Only preferred-share dividend record available")
		}
	}

	dpsPrev, _, prevOK := s.resolveDividend(company.StockCode, year-2)
	if !prevOK {
		dpsPrev = 0 // missing data is zero, not an error
	}
	growth := valuation.DividendGrowth(dps, dpsPrev)
	ggm := valuation.GGMFairValue(dps, growth, capmRes.RequiredReturn)

	snapshot, err := s.data.Snapshot(company.StockCode, end)
	if err != nil {
		return nil, fmt.Sprintf("snapshot unavailable: %v", err), nil
	}
	if snapshot == nil {
		return nil, "no price snapshot for as-of date", nil
	}

	residual := s.residualValue(company.StockCode, year)

	undervalued := false
	if ggm.Defined && snapshot.Price < ggm.Value {
		undervalued = true
	}
	if residual.Defined && snapshot.MarketCap != nil && residual.Value > *snapshot.MarketCap {
		undervalued = true
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}
	dailyReturns := formulas.CalculateReturns(closes)

	return &Verdict{
		StockCode:      company.StockCode,
		Name:           company.Name,
		CurrentPrice:   snapshot.Price,
		MarketCap:      snapshot.MarketCap,
		Beta:           capmRes.Beta,
		RequiredReturn: capmRes.RequiredReturn,
		DPS:            dps,
		DividendGrowth: growth,
		DividendTier:   tierLabel,
		GGMFairValue:   ggm,
		ResidualValue:  residual,
		Undervalued:    undervalued,
		RSI:            formulas.CalculateRSI(closes, rsiPeriod),
		Volatility:     formulas.AnnualizedVolatility(dailyReturns),
	}, "", nil
}

// resolveDividend looks up the per-share dividend for a fiscal year using
// the explicit share-class preference order.
func (s *Service) resolveDividend(stockCode string, year int) (float64, valuation.DPSTier, bool) {
	records, err := s.data.DividendRecords(stockCode, year)
	if err != nil {
		s.log.Warn().Err(err).Str("stock_code", stockCode).Int("year", year).Msg("Failed to load dividend records")
		return 0, 0, false
	}
	return valuation.ResolveDPS(records)
}

// residualValue computes the residual-income value using last year's net
// profit and book capital against the profit from three years back.
// Missing fundamentals count as zero, which the model reports as an
// undefined growth base rather than an error. The discount rate is the
// risk-free rate, not the per-asset CAPM rate.
func (s *Service) residualValue(stockCode string, year int) valuation.FairValue {
	var netProfit, capital, netProfit3yAgo int64

	if rec, err := s.data.Fundamentals(stockCode, year-1); err == nil && rec != nil {
		netProfit = rec.NetProfit
		capital = rec.Capital
	}
	if rec, err := s.data.Fundamentals(stockCode, year-3); err == nil && rec != nil {
		netProfit3yAgo = rec.NetProfit
	}

	return valuation.ResidualIncomeValue(netProfit, netProfit3yAgo, capital, s.estimator.RiskFree())
}
