package optimization

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minwoo-dev/krx-screener/internal/domain"
)

type fakePrices struct {
	series map[string][]domain.PricePoint
	errs   map[string]error
}

func (f *fakePrices) ClosePrices(stockCode, start, end string) ([]domain.PricePoint, error) {
	if err, ok := f.errs[stockCode]; ok {
		return nil, err
	}
	return f.series[stockCode], nil
}

// fromReturns builds a price series realizing the given daily returns.
func fromReturns(dates []string, returns []float64) []domain.PricePoint {
	pts := make([]domain.PricePoint, len(dates))
	price := 100.0
	pts[0] = domain.PricePoint{Date: dates[0], Close: price}
	for i, r := range returns {
		price *= 1 + r
		pts[i+1] = domain.PricePoint{Date: dates[i+1], Close: price}
	}
	return pts
}

func testWindow() (time.Time, time.Time) {
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	return end.AddDate(-3, 0, 0), end
}

func TestOptimizeLambdaSweep(t *testing.T) {
	dates := []string{"20240102", "20240103", "20240104", "20240105"}
	provider := &fakePrices{series: map[string][]domain.PricePoint{
		"005930": fromReturns(dates, []float64{0.01, -0.01, 0.02}),
		"000660": fromReturns(dates, []float64{0.00, 0.01, -0.01}),
	}}

	svc := NewService(provider, 0.03, zerolog.Nop())
	start, end := testWindow()

	result, err := svc.Optimize([]string{"005930", "000660"}, []float64{1, 5}, start, end)
	require.NoError(t, err)

	assert.Equal(t, []string{"005930", "000660"}, result.StockCodes)
	assert.Empty(t, result.Dropped)
	assert.Empty(t, result.SkippedLambdas)
	require.Len(t, result.Solutions, 2)

	for _, sol := range result.Solutions {
		assertOnSimplex(t, sol.Weights)
		assert.Len(t, sol.Weights, 2)
		assert.GreaterOrEqual(t, sol.StdDev, 0.0)
	}

	// More risk aversion never buys more risk.
	assert.Equal(t, 1.0, result.Solutions[0].Lambda)
	assert.Equal(t, 5.0, result.Solutions[1].Lambda)
	assert.LessOrEqual(t, result.Solutions[1].StdDev, result.Solutions[0].StdDev+1e-6)

	assertOnSimplex(t, result.Sharpe.Weights)
	assert.True(t, result.Sharpe.Converged)
}

func TestOptimizeIsDeterministic(t *testing.T) {
	dates := []string{"20240102", "20240103", "20240104", "20240105"}
	provider := &fakePrices{series: map[string][]domain.PricePoint{
		"005930": fromReturns(dates, []float64{0.01, -0.01, 0.02}),
		"000660": fromReturns(dates, []float64{0.00, 0.01, -0.01}),
	}}

	svc := NewService(provider, 0.03, zerolog.Nop())
	start, end := testWindow()
	stockCodes := []string{"005930", "000660"}
	lambdas := []float64{0.5, 2}

	first, err := svc.Optimize(stockCodes, lambdas, start, end)
	require.NoError(t, err)
	second, err := svc.Optimize(stockCodes, lambdas, start, end)
	require.NoError(t, err)

	require.Len(t, second.Solutions, len(first.Solutions))
	for i := range first.Solutions {
		assert.InDeltaSlice(t, first.Solutions[i].Weights, second.Solutions[i].Weights, 1e-12)
		assert.InDelta(t, first.Solutions[i].ExpectedReturn, second.Solutions[i].ExpectedReturn, 1e-12)
	}
	assert.InDeltaSlice(t, first.Sharpe.Weights, second.Sharpe.Weights, 1e-12)
}

func TestOptimizeDropsFailingAndDisjointAssets(t *testing.T) {
	dates := []string{"20240102", "20240103", "20240104", "20240105"}
	provider := &fakePrices{
		series: map[string][]domain.PricePoint{
			"005930": fromReturns(dates, []float64{0.01, -0.01, 0.02}),
			"000660": fromReturns(dates, []float64{0.00, 0.01, -0.01}),
			"035420": fromReturns([]string{"20240201", "20240202", "20240203", "20240204"}, []float64{0.01, 0.01, 0.01}),
		},
		errs: map[string]error{
			"051910": errors.New("query timeout"),
		},
	}

	svc := NewService(provider, 0.03, zerolog.Nop())
	start, end := testWindow()

	result, err := svc.Optimize([]string{"005930", "000660", "035420", "051910"}, []float64{1}, start, end)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"035420", "051910"}, result.Dropped)
	assert.ElementsMatch(t, []string{"005930", "000660"}, result.StockCodes)
	require.Len(t, result.Solutions, 1)
	assert.Len(t, result.Solutions[0].Weights, 2)
}

func TestOptimizeEmptyUniverse(t *testing.T) {
	svc := NewService(&fakePrices{}, 0.03, zerolog.Nop())
	start, end := testWindow()

	_, err := svc.Optimize([]string{"005930"}, []float64{1}, start, end)
	assert.ErrorIs(t, err, ErrEmptyReturns)
}

func TestOptimizeSingleAsset(t *testing.T) {
	dates := []string{"20240102", "20240103", "20240104"}
	provider := &fakePrices{series: map[string][]domain.PricePoint{
		"005930": fromReturns(dates, []float64{0.01, 0.02}),
	}}

	svc := NewService(provider, 0.03, zerolog.Nop())
	start, end := testWindow()

	result, err := svc.Optimize([]string{"005930"}, []float64{1, 5}, start, end)
	require.NoError(t, err)

	require.Len(t, result.Solutions, 2)
	for _, sol := range result.Solutions {
		assert.InDeltaSlice(t, []float64{1}, sol.Weights, 1e-12)
	}
	assert.InDeltaSlice(t, []float64{1}, result.Sharpe.Weights, 1e-12)
	assert.True(t, result.Sharpe.Converged)
}
