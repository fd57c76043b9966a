package optimization

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/minwoo-dev/krx-screener/internal/domain"
	"github.com/minwoo-dev/krx-screener/internal/modules/capm"
)

// ErrEmptyReturns indicates that no assets or no aligned return rows
// survived matrix construction. Optimization must never proceed on empty
// input or return a degenerate zero-length weight vector.
var ErrEmptyReturns = errors.New("no aligned return data for optimization")

// ReturnsMatrix is an aligned daily-return matrix: one row per common
// trading date, one column per surviving asset.
type ReturnsMatrix struct {
	StockCodes []string
	Dates      []string
	Data       *mat.Dense
}

// Column returns the return series of the i-th asset.
func (m *ReturnsMatrix) Column(i int) []float64 {
	col := make([]float64, len(m.Dates))
	mat.Col(col, i, m.Data)
	return col
}

// BuildReturnsMatrix converts per-asset price series into an aligned
// return matrix. Per-asset returns are computed between each asset's own
// consecutive available dates; assets with no usable returns are dropped,
// and only dates where every surviving asset has a return are retained.
// When the candidate set has no common dates, the asset sharing the fewest
// dates with the rest is dropped and alignment is retried, so one
// non-overlapping asset cannot empty the whole matrix. The second return
// value lists dropped stock codes in drop order.
func BuildReturnsMatrix(order []string, series map[string][]domain.PricePoint) (*ReturnsMatrix, []string, error) {
	type assetReturns struct {
		stockCode string
		byDate    map[string]float64
	}

	var kept []assetReturns
	var dropped []string

	for _, stockCode := range order {
		returns := capm.DailyReturns(series[stockCode])
		if len(returns) == 0 {
			dropped = append(dropped, stockCode)
			continue
		}
		byDate := make(map[string]float64, len(returns))
		for _, rp := range returns {
			byDate[rp.Date] = rp.Value
		}
		kept = append(kept, assetReturns{stockCode: stockCode, byDate: byDate})
	}

	intersect := func() []string {
		if len(kept) == 0 {
			return nil
		}
		var common []string
		for date := range kept[0].byDate {
			shared := true
			for _, a := range kept[1:] {
				if _, ok := a.byDate[date]; !ok {
					shared = false
					break
				}
			}
			if shared {
				common = append(common, date)
			}
		}
		sort.Strings(common) // YYYYMMDD sorts chronologically
		return common
	}

	common := intersect()
	for len(common) == 0 && len(kept) > 1 {
		// Drop the asset sharing the fewest dates with the others.
		worst, worstScore := 0, -1
		for i, a := range kept {
			score := 0
			for date := range a.byDate {
				for j, b := range kept {
					if j == i {
						continue
					}
					if _, ok := b.byDate[date]; ok {
						score++
						break
					}
				}
			}
			if worstScore == -1 || score < worstScore {
				worst, worstScore = i, score
			}
		}
		dropped = append(dropped, kept[worst].stockCode)
		kept = append(kept[:worst], kept[worst+1:]...)
		common = intersect()
	}

	if len(kept) == 0 || len(common) == 0 {
		return nil, dropped, ErrEmptyReturns
	}

	stockCodes := make([]string, len(kept))
	data := mat.NewDense(len(common), len(kept), nil)
	for j, a := range kept {
		stockCodes[j] = a.stockCode
		for i, date := range common {
			data.Set(i, j, a.byDate[date])
		}
	}

	return &ReturnsMatrix{
		StockCodes: stockCodes,
		Dates:      common,
		Data:       data,
	}, dropped, nil
}
