package optimization

import (
	"fmt"
	"sort"

	charts "github.com/vicanso/go-charts/v2"
)

const chartTopAssets = 5

// RenderLambdaChart draws the recommended weight of the top assets across
// the swept risk-aversion values as a line chart. Assets are ranked by the
// maximum weight they reach anywhere in the sweep and only the top five
// are drawn. Names maps stock codes to display names; unmapped codes fall
// back to the code itself.
func RenderLambdaChart(result *Result, names map[string]string) ([]byte, error) {
	if len(result.Solutions) == 0 {
		return nil, fmt.Errorf("no solutions to chart")
	}

	n := len(result.StockCodes)
	maxWeights := make([]float64, n)
	for _, sol := range result.Solutions {
		for i, w := range sol.Weights {
			if w > maxWeights[i] {
				maxWeights[i] = w
			}
		}
	}

	top := make([]int, n)
	for i := range top {
		top[i] = i
	}
	sort.SliceStable(top, func(a, b int) bool {
		return maxWeights[top[a]] > maxWeights[top[b]]
	})
	if len(top) > chartTopAssets {
		top = top[:chartTopAssets]
	}

	xLabels := make([]string, len(result.Solutions))
	for i, sol := range result.Solutions {
		xLabels[i] = fmt.Sprintf("%g", sol.Lambda)
	}

	series := make([][]float64, len(top))
	legend := make([]string, len(top))
	for si, ai := range top {
		values := make([]float64, len(result.Solutions))
		for i, sol := range result.Solutions {
			values[i] = sol.Weights[ai]
		}
		series[si] = values
		legend[si] = displayName(result.StockCodes[ai], names)
	}

	yMin, yMax := 0.0, 1.0
	p, err := charts.LineRender(
		series,
		charts.TitleTextOptionFunc("Recommended weight by risk aversion"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min: &yMin,
			Max: &yMax,
		}),
		charts.LegendLabelsOptionFunc(legend),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render lambda chart: %w", err)
	}

	return p.Bytes()
}

// RenderSharpeChart draws the maximum-Sharpe portfolio weights as a bar
// chart, largest weight first. Near-zero weights are omitted.
func RenderSharpeChart(result *Result, names map[string]string) ([]byte, error) {
	type entry struct {
		label  string
		weight float64
	}

	var entries []entry
	for i, w := range result.Sharpe.Weights {
		if w < 0.0001 {
			continue
		}
		entries = append(entries, entry{
			label:  displayName(result.StockCodes[i], names),
			weight: w,
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no weights to chart")
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].weight > entries[b].weight
	})

	labels := make([]string, len(entries))
	values := make([]float64, len(entries))
	for i, e := range entries {
		labels[i] = e.label
		values[i] = e.weight
	}

	title := fmt.Sprintf("Max-Sharpe portfolio weights (Sharpe %.2f)", result.Sharpe.Sharpe)
	yMin, yMax := 0.0, 1.0
	p, err := charts.BarRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(labels),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min: &yMin,
			Max: &yMax,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render sharpe chart: %w", err)
	}

	return p.Bytes()
}

func displayName(stockCode string, names map[string]string) string {
	if name, ok := names[stockCode]; ok && name != "" {
		return name
	}
	return stockCode
}
