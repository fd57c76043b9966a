package optimization

// Solution is one point on the mean-variance trade-off, solved for a fixed
// risk-aversion coefficient lambda. Weights are non-negative and sum to 1
// within solver tolerance, ordered like Result.StockCodes.
type Solution struct {
	Lambda         float64   `json:"lambda"`
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"` // annual
	StdDev         float64   `json:"std_dev"`         // annual
	Utility        float64   `json:"utility"`         // (ret - rf) - lambda * variance
}

// SharpeSolution is the maximum-Sharpe-ratio portfolio under the same
// constraints. When the solver did not converge the last iterate is still
// returned with Converged set to false; callers must check it before
// trusting the weights.
type SharpeSolution struct {
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"`
	StdDev         float64   `json:"std_dev"`
	Sharpe         float64   `json:"sharpe"`
	Converged      bool      `json:"converged"`
}

// Result is the complete outcome of one optimization call. StockCodes is
// the asset set actually used after dropping assets with missing data; it
// may be a strict subset of the requested candidates.
type Result struct {
	StockCodes     []string       `json:"stock_codes"`
	Dropped        []string       `json:"dropped,omitempty"`
	Solutions      []Solution     `json:"solutions"`
	SkippedLambdas []float64      `json:"skipped_lambdas,omitempty"`
	Sharpe         SharpeSolution `json:"sharpe"`
}
