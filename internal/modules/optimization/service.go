package optimization

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/minwoo-dev/krx-screener/internal/domain"
	"github.com/minwoo-dev/krx-screener/pkg/formulas"
)

// DateFormat is the wire format for trading dates.
const DateFormat = "20060102"

// covRegularization is added to the covariance diagonal before any solve,
// guarding against near-singular covariance from collinear or short series.
const covRegularization = 1e-8

// PriceProvider supplies historical close prices per asset.
type PriceProvider interface {
	ClosePrices(stockCode, start, end string) ([]domain.PricePoint, error)
}

// Service solves constrained portfolio optimization problems over a
// candidate asset set: a mean-variance family swept over risk-aversion
// lambdas and a single maximum-Sharpe solution. Each call is stateless.
type Service struct {
	prices   PriceProvider
	riskFree float64
	log      zerolog.Logger
}

// NewService creates a new portfolio optimization service.
func NewService(prices PriceProvider, riskFree float64, log zerolog.Logger) *Service {
	return &Service{
		prices:   prices,
		riskFree: riskFree,
		log:      log.With().Str("component", "optimization").Logger(),
	}
}

// Optimize runs the full optimization over [start, end]. Assets without
// usable data are dropped and reported; an empty aligned matrix is a fatal
// error for the call. A lambda whose solve does not converge is skipped;
// a non-converged Sharpe solve is returned flagged.
func (s *Service) Optimize(stockCodes []string, lambdas []float64, start, end time.Time) (*Result, error) {
	startStr := start.Format(DateFormat)
	endStr := end.Format(DateFormat)

	series := make(map[string][]domain.PricePoint, len(stockCodes))
	for _, stockCode := range stockCodes {
		prices, err := s.prices.ClosePrices(stockCode, startStr, endStr)
		if err != nil {
			s.log.Warn().Err(err).Str("stock_code", stockCode).Msg("Failed to load prices, dropping asset")
			continue
		}
		series[stockCode] = prices
	}

	matrix, droppedCodes, err := BuildReturnsMatrix(stockCodes, series)
	if err != nil {
		return nil, err
	}
	for _, stockCode := range droppedCodes {
		s.log.Warn().Str("stock_code", stockCode).Msg("Asset dropped from optimization for missing or non-overlapping data")
	}

	mu, sigma := s.estimateModel(matrix)
	n := len(matrix.StockCodes)

	result := &Result{
		StockCodes: matrix.StockCodes,
		Dropped:    droppedCodes,
	}

	for _, lambda := range lambdas {
		outcome := minimizeOnSimplex(n, meanVarianceObjective(mu, sigma, lambda, s.riskFree))
		if !outcome.converged {
			s.log.Warn().Float64("lambda", lambda).Msg("Mean-variance solve did not converge, skipping lambda")
			result.SkippedLambdas = append(result.SkippedLambdas, lambda)
			continue
		}

		ret, variance, sd := s.portfolioStats(outcome.weights, mu, sigma)
		result.Solutions = append(result.Solutions, Solution{
			Lambda:         lambda,
			Weights:        outcome.weights,
			ExpectedReturn: ret,
			StdDev:         sd,
			Utility:        (ret - s.riskFree) - lambda*variance,
		})
	}

	sharpe := minimizeOnSimplex(n, sharpeObjective(mu, sigma, s.riskFree))
	if !sharpe.converged {
		s.log.Warn().Msg("Sharpe solve did not converge, returning flagged partial result")
	}
	ret, _, sd := s.portfolioStats(sharpe.weights, mu, sigma)
	result.Sharpe = SharpeSolution{
		Weights:        sharpe.weights,
		ExpectedReturn: ret,
		StdDev:         sd,
		Sharpe:         formulas.SharpeRatio(ret, s.riskFree, sd),
		Converged:      sharpe.converged,
	}

	s.log.Info().
		Int("assets", n).
		Int("aligned_days", len(matrix.Dates)).
		Int("solutions", len(result.Solutions)).
		Int("skipped", len(result.SkippedLambdas)).
		Msg("Optimization complete")

	return result, nil
}

// estimateModel computes the annualized mean vector and regularized
// annualized covariance matrix from the aligned daily return matrix.
func (s *Service) estimateModel(matrix *ReturnsMatrix) ([]float64, *mat.SymDense) {
	n := len(matrix.StockCodes)

	columns := make([][]float64, n)
	mu := make([]float64, n)
	for i := 0; i < n; i++ {
		columns[i] = matrix.Column(i)
		mu[i] = formulas.AnnualizedReturn(columns[i])
	}

	sigma := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := stat.Covariance(columns[i], columns[j], nil) * formulas.TradingDaysPerYear
			if i == j {
				cov += covRegularization
			}
			sigma.SetSym(i, j, cov)
		}
	}

	return mu, sigma
}

// portfolioStats computes annual return, variance and standard deviation
// for a weight vector. Variance is clamped at zero before the square root;
// floating-point noise can push it slightly negative at the optimum.
func (s *Service) portfolioStats(w, mu []float64, sigma *mat.SymDense) (ret, variance, sd float64) {
	ret = floats.Dot(w, mu)
	variance = math.Max(floats.Dot(w, symMulVec(sigma, w)), 0)
	sd = math.Sqrt(variance)
	return ret, variance, sd
}
