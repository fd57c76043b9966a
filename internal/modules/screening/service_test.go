package screening

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minwoo-dev/krx-screener/internal/domain"
	"github.com/minwoo-dev/krx-screener/internal/modules/capm"
)

type fakeData struct {
	prices    map[string][]domain.PricePoint
	priceErrs map[string]error
	index     []domain.PricePoint
	indexErr  error
	funds     map[string]map[int]*domain.FundamentalRecord
	divs      map[string]map[int][]domain.DividendRecord
	snapshots map[string]*domain.Snapshot
	snapErrs  map[string]error
}

func (f *fakeData) ClosePrices(stockCode, start, end string) ([]domain.PricePoint, error) {
	if err, ok := f.priceErrs[stockCode]; ok {
		return nil, err
	}
	return f.prices[stockCode], nil
}

func (f *fakeData) IndexPrices(start, end string) ([]domain.PricePoint, error) {
	return f.index, f.indexErr
}

func (f *fakeData) Fundamentals(stockCode string, year int) (*domain.FundamentalRecord, error) {
	return f.funds[stockCode][year], nil
}

func (f *fakeData) DividendRecords(stockCode string, year int) ([]domain.DividendRecord, error) {
	return f.divs[stockCode][year], nil
}

func (f *fakeData) Snapshot(stockCode, date string) (*domain.Snapshot, error) {
	if err, ok := f.snapErrs[stockCode]; ok {
		return nil, err
	}
	snap := f.snapshots[stockCode]
	if snap == nil || snap.Date != date {
		return nil, nil
	}
	return snap, nil
}

var screenDates = []string{"20240621", "20240624", "20240625", "20240626", "20240627", "20240628"}

func screenPrices(closes []float64) []domain.PricePoint {
	pts := make([]domain.PricePoint, len(closes))
	for i := range closes {
		pts[i] = domain.PricePoint{Date: screenDates[i], Close: closes[i]}
	}
	return pts
}

func benchmarkSeries() []domain.PricePoint {
	return screenPrices([]float64{100, 101, 100, 102, 101, 103})
}

func floatPtr(v float64) *float64 { return &v }

func newFakeData() *fakeData {
	return &fakeData{
		prices:    map[string][]domain.PricePoint{},
		priceErrs: map[string]error{},
		index:     benchmarkSeries(),
		funds:     map[string]map[int]*domain.FundamentalRecord{},
		divs:      map[string]map[int][]domain.DividendRecord{},
		snapshots: map[string]*domain.Snapshot{},
		snapErrs:  map[string]error{},
	}
}

func (f *fakeData) addCompany(stockCode string, closes []float64, dps2023, dps2022 float64, snap *domain.Snapshot) {
	f.prices[stockCode] = screenPrices(closes)
	divs := map[int][]domain.DividendRecord{}
	if dps2023 > 0 {
		divs[2023] = []domain.DividendRecord{{StockCode: stockCode, Year: 2023, ShareClass: domain.ShareClassCommon, DPS: dps2023}}
	}
	if dps2022 > 0 {
		divs[2022] = []domain.DividendRecord{{StockCode: stockCode, Year: 2022, ShareClass: domain.ShareClassCommon, DPS: dps2022}}
	}
	f.divs[stockCode] = divs
	f.snapshots[stockCode] = snap
}

func newTestService(data *fakeData) *Service {
	estimator := capm.NewEstimator(0.03, zerolog.Nop())
	return NewService(data, estimator, 3, zerolog.Nop())
}

var asOf = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

func TestScreenUndervaluedByDividendModel(t *testing.T) {
	data := newFakeData()
	// Moves with the benchmark; snapshot price far below any plausible fair
	// value for a 1000-won dividend.
	data.addCompany("005930", []float64{100, 101, 100, 102, 101, 103}, 1000, 1000,
		&domain.Snapshot{StockCode: "005930", Date: "20240628", Price: 0.5})

	svc := newTestService(data)
	report, err := svc.Screen([]domain.Company{{StockCode: "005930", Name: "Samsung Electronics"}}, asOf)
	require.NoError(t, err)

	require.Len(t, report.Verdicts, 1)
	v := report.Verdicts[0]
	assert.InDelta(t, 1.0, v.Beta, 1e-9)
	assert.InDelta(t, 0.0, v.DividendGrowth, 1e-12)
	assert.True(t, v.GGMFairValue.Defined)
	assert.Greater(t, v.GGMFairValue.Value, 0.5)
	assert.True(t, v.Undervalued)
	assert.Equal(t, "common", v.DividendTier)
	assert.Nil(t, v.RSI) // six closes is below the RSI lookback
	assert.Len(t, report.Undervalued(), 1)
}

func TestScreenUndervaluedByResidualIncome(t *testing.T) {
	data := newFakeData()
	// Snapshot price enormous so the dividend model cannot flag it; the
	// residual-income value (discounted at the 3% risk-free rate) exceeds
	// the market cap.
	data.addCompany("000660", []float64{100, 101, 100, 102, 101, 103}, 1000, 1000,
		&domain.Snapshot{StockCode: "000660", Date: "20240628", Price: 1e12, MarketCap: floatPtr(20000)})
	data.funds["000660"] = map[int]*domain.FundamentalRecord{
		2023: {StockCode: "000660", Year: 2023, NetProfit: 102010, Capital: 10000},
		2021: {StockCode: "000660", Year: 2021, NetProfit: 100000},
	}

	svc := newTestService(data)
	report, err := svc.Screen([]domain.Company{{StockCode: "000660", Name: "SK Hynix"}}, asOf)
	require.NoError(t, err)

	require.Len(t, report.Verdicts, 1)
	v := report.Verdicts[0]
	require.True(t, v.ResidualValue.Defined)
	// g = sqrt(1.0201)-1 = 1%, NI = 1020.1, V = 10000 + (1020.1-300)/0.02
	assert.InDelta(t, 10000+(1020.1-300)/0.02, v.ResidualValue.Value, 1e-6)
	assert.True(t, v.Undervalued)
}

func TestScreenBothModelsUndefinedNeverFlags(t *testing.T) {
	data := newFakeData()
	// Fivefold dividend growth makes the perpetual growth model diverge,
	// and there are no fundamentals for the residual model.
	data.addCompany("035420", []float64{100, 101, 100, 102, 101, 103}, 5000, 1000,
		&domain.Snapshot{StockCode: "035420", Date: "20240628", Price: 0.01})

	svc := newTestService(data)
	report, err := svc.Screen([]domain.Company{{StockCode: "035420", Name: "Naver"}}, asOf)
	require.NoError(t, err)

	require.Len(t, report.Verdicts, 1)
	v := report.Verdicts[0]
	assert.False(t, v.GGMFairValue.Defined)
	assert.False(t, v.ResidualValue.Defined)
	assert.False(t, v.Undervalued)
	assert.Empty(t, report.Undervalued())
}

func TestScreenExclusions(t *testing.T) {
	data := newFakeData()

	// Dividend payer with no snapshot row for the as-of date.
	data.addCompany("051910", []float64{100, 101, 100, 102, 101, 103}, 1000, 0, nil)
	// Trades on dates the benchmark never saw.
	data.prices["068270"] = []domain.PricePoint{
		{Date: "20230102", Close: 100},
		{Date: "20230103", Close: 101},
	}
	data.divs["068270"] = map[int][]domain.DividendRecord{
		2023: {{StockCode: "068270", Year: 2023, ShareClass: domain.ShareClassCommon, DPS: 500}},
	}
	// Broken price query.
	data.priceErrs["373220"] = errors.New("disk I/O error")

	svc := newTestService(data)
	report, err := svc.Screen([]domain.Company{
		{StockCode: "051910", Name: "LG Chem"},
		{StockCode: "068270", Name: "Celltrion"},
		{StockCode: "373220", Name: "LG Energy Solution"},
		{StockCode: "005380", Name: "Hyundai Motor"}, // no data at all
	}, asOf)
	require.NoError(t, err)

	assert.Empty(t, report.Verdicts)
	require.Len(t, report.Exclusions, 4)

	reasons := map[string]string{}
	for _, ex := range report.Exclusions {
		reasons[ex.StockCode] = ex.Reason
	}
	assert.Equal(t, "no price snapshot for as-of date", reasons["051910"])
	assert.Equal(t, "no overlapping benchmark dates", reasons["068270"])
	assert.Contains(t, reasons["373220"], "price history unavailable")
	assert.Equal(t, "no price history in window", reasons["005380"])
}

func TestScreenNoDividendStillScreensOnResidualIncome(t *testing.T) {
	data := newFakeData()
	// No dividend records at all; the residual-income value (46005) exceeds
	// the market cap, which alone must flag the stock.
	data.addCompany("207940", []float64{100, 101, 100, 102, 101, 103}, 0, 0,
		&domain.Snapshot{StockCode: "207940", Date: "20240628", Price: 100, MarketCap: floatPtr(20000)})
	data.funds["207940"] = map[int]*domain.FundamentalRecord{
		2023: {StockCode: "207940", Year: 2023, NetProfit: 102010, Capital: 10000},
		2021: {StockCode: "207940", Year: 2021, NetProfit: 100000},
	}

	svc := newTestService(data)
	report, err := svc.Screen([]domain.Company{{StockCode: "207940", Name: "Samsung Biologics"}}, asOf)
	require.NoError(t, err)

	require.Len(t, report.Verdicts, 1)
	v := report.Verdicts[0]
	assert.Equal(t, 0.0, v.DPS)
	assert.Equal(t, "none", v.DividendTier)
	// A zero dividend prices the stock at zero under the dividend model, so
	// that signal can never trigger on its own.
	require.True(t, v.GGMFairValue.Defined)
	assert.Equal(t, 0.0, v.GGMFairValue.Value)
	require.True(t, v.ResidualValue.Defined)
	assert.True(t, v.Undervalued)
}

func TestScreenNoDividendNoFundamentalsNotFlagged(t *testing.T) {
	data := newFakeData()
	data.addCompany("207940", []float64{100, 101, 100, 102, 101, 103}, 0, 0,
		&domain.Snapshot{StockCode: "207940", Date: "20240628", Price: 100})

	svc := newTestService(data)
	report, err := svc.Screen([]domain.Company{{StockCode: "207940", Name: "Samsung Biologics"}}, asOf)
	require.NoError(t, err)

	require.Len(t, report.Verdicts, 1)
	assert.False(t, report.Verdicts[0].Undervalued)
	assert.Empty(t, report.Exclusions)
}

func TestScreenPreferredOnlyDividendStillScreens(t *testing.T) {
	data := newFakeData()
	data.prices["005935"] = screenPrices([]float64{100, 101, 100, 102, 101, 103})
	data.divs["005935"] = map[int][]domain.DividendRecord{
		2023: {{StockCode: "005935", Year: 2023, ShareClass: domain.ShareClassPreferred, DPS: 1100}},
	}
	data.snapshots["005935"] = &domain.Snapshot{StockCode: "005935", Date: "20240628", Price: 0.5}

	svc := newTestService(data)
	report, err := svc.Screen([]domain.Company{{StockCode: "005935", Name: "Samsung Electronics Pref"}}, asOf)
	require.NoError(t, err)

	require.Len(t, report.Verdicts, 1)
	assert.Equal(t, "preferred", report.Verdicts[0].DividendTier)
	assert.Equal(t, 1100.0, report.Verdicts[0].DPS)
}

func TestScreenMissingBenchmarkFails(t *testing.T) {
	data := newFakeData()
	data.index = nil

	svc := newTestService(data)
	_, err := svc.Screen([]domain.Company{{StockCode: "005930"}}, asOf)
	assert.Error(t, err)

	data.index = nil
	data.indexErr = errors.New("disk I/O error")
	_, err = svc.Screen([]domain.Company{{StockCode: "005930"}}, asOf)
	assert.Error(t, err)
}

func TestScreenZeroVarianceBenchmarkAborts(t *testing.T) {
	data := newFakeData()
	// A flat index has exactly zero daily returns, hence zero variance.
	data.index = screenPrices([]float64{100, 100, 100, 100, 100, 100})
	data.addCompany("005930", []float64{100, 101, 100, 102, 101, 103}, 1000, 1000,
		&domain.Snapshot{StockCode: "005930", Date: "20240628", Price: 100})

	svc := newTestService(data)
	_, err := svc.Screen([]domain.Company{{StockCode: "005930", Name: "Samsung Electronics"}}, asOf)
	assert.ErrorIs(t, err, capm.ErrZeroBenchmarkVariance)
}
