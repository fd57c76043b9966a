package optimization

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// simplexObjective returns the objective value and its gradient with
// respect to the weight vector.
type simplexObjective func(w []float64) (value float64, grad []float64)

// solveOutcome carries the weights of a constrained solve and whether the
// solver reported convergence. Weights are valid (in [0,1], summing to 1)
// even when converged is false; they are the last iterate.
type solveOutcome struct {
	weights   []float64
	converged bool
}

// minimizeOnSimplex minimizes an objective over the unit simplex
// { w : w_i in [0,1], sum w = 1 } using L-BFGS on a softmax
// reparameterization, seeded at the uniform-weight vector. The
// reparameterization satisfies both constraints exactly at every iterate,
// which makes it the gradient-based equivalent of an SQP solve with bound
// and sum-to-one constraints.
func minimizeOnSimplex(n int, objective simplexObjective) solveOutcome {
	if n == 1 {
		return solveOutcome{weights: []float64{1}, converged: true}
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			v, _ := objective(softmax(z))
			return v
		},
		Grad: func(grad, z []float64) {
			w := softmax(z)
			_, gw := objective(w)
			// Chain rule through softmax: dw_i/dz_j = w_i (delta_ij - w_j).
			dot := floats.Dot(gw, w)
			for j := range grad {
				grad[j] = w[j] * (gw[j] - dot)
			}
		},
	}

	z0 := make([]float64, n) // softmax(0) is the uniform-weight vector

	result, err := optimize.Minimize(problem, z0, nil, &optimize.LBFGS{})
	if result == nil {
		return solveOutcome{weights: uniformWeights(n), converged: false}
	}

	return solveOutcome{
		weights:   softmax(result.X),
		converged: err == nil && result.Status != optimize.NotTerminated,
	}
}

// meanVarianceObjective builds the negated mean-variance utility
// -[(w·mu - rf) - lambda * w'Sigma w] and its gradient. The risk-free term
// is constant in w and drops out of the gradient.
func meanVarianceObjective(mu []float64, sigma *mat.SymDense, lambda, riskFree float64) simplexObjective {
	return func(w []float64) (float64, []float64) {
		sw := symMulVec(sigma, w)
		excess := floats.Dot(w, mu) - riskFree
		variance := floats.Dot(w, sw)
		value := -(excess - lambda*variance)

		grad := make([]float64, len(w))
		for i := range grad {
			grad[i] = -(mu[i] - 2*lambda*sw[i])
		}
		return value, grad
	}
}

// sharpeObjective builds the negated Sharpe ratio
// -(w·mu - rf) / sqrt(w'Sigma w) and its gradient. The variance is clamped
// to zero before the square root; the diagonal regularization applied to
// Sigma keeps it strictly positive on the simplex.
func sharpeObjective(mu []float64, sigma *mat.SymDense, riskFree float64) simplexObjective {
	return func(w []float64) (float64, []float64) {
		sw := symMulVec(sigma, w)
		excess := floats.Dot(w, mu) - riskFree
		variance := math.Max(floats.Dot(w, sw), 0)
		sd := math.Sqrt(variance)
		if sd == 0 {
			// Degenerate: flat objective, no direction to move in.
			return 0, make([]float64, len(w))
		}

		value := -excess / sd
		grad := make([]float64, len(w))
		for i := range grad {
			grad[i] = -(mu[i]/sd - excess*sw[i]/(sd*variance))
		}
		return value, grad
	}
}

// softmax maps an unconstrained vector onto the unit simplex.
func softmax(z []float64) []float64 {
	w := make([]float64, len(z))
	max := floats.Max(z)
	var sum float64
	for i, v := range z {
		w[i] = math.Exp(v - max)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// symMulVec computes Sigma * w for a symmetric matrix.
func symMulVec(sigma *mat.SymDense, w []float64) []float64 {
	n := len(w)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += sigma.At(i, j) * w[j]
		}
		out[i] = sum
	}
	return out
}
