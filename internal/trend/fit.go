package trend

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownColumn indicates the requested target column is absent
	// from the input dataset.
	ErrUnknownColumn = errors.New("trend: unknown column")
	// ErrInvalidWindow indicates a malformed or degenerate fit window.
	ErrInvalidWindow = errors.New("trend: invalid fit window")
	// ErrFitDivergence indicates the optimizer could not converge on the
	// window's observations.
	ErrFitDivergence = errors.New("trend: exponential fit did not converge")
)

const (
	// maxIterations bounds the optimizer so every fit terminates.
	maxIterations = 200
	// maxDampingRetries bounds the inner damping search per iteration.
	maxDampingRetries = 30

	costTolerance = 1e-12
	stepTolerance = 1e-10
)

// Model holds the fitted parameters of f(t) = A * exp(B * t).
type Model struct {
	A float64
	B float64
}

// At evaluates the model at integer time offset t.
func (m Model) At(t int) float64 {
	return m.A * math.Exp(m.B*float64(t))
}

// Fit estimates (a, b) minimizing sum((y[i] - a*exp(b*i))^2) by
// Levenberg-Marquardt from the neutral starting guess (0, 0).
//
// The window must contain at least 2 finite observations; gaps or other
// non-finite values make the residuals undefined and surface as
// ErrFitDivergence, as does exceeding the iteration budget.
func Fit(y []float64) (Model, error) {
	if len(y) < 2 {
		return Model{}, fmt.Errorf("%w: %d observations, need at least 2", ErrFitDivergence, len(y))
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Model{}, fmt.Errorf("%w: non-finite observation at window offset %d", ErrFitDivergence, i)
		}
	}

	m := Model{}
	cost := residualSumSquares(y, m)
	damping := 1e-3

	for iter := 0; iter < maxIterations; iter++ {
		// Gradient and Gauss-Newton approximation of the Hessian at m.
		var g0, g1, h00, h01, h11 float64
		for i, v := range y {
			e := math.Exp(m.B * float64(i))
			r := v - m.A*e
			ja := e                      // df/da
			jb := m.A * float64(i) * e   // df/db
			g0 += ja * r
			g1 += jb * r
			h00 += ja * ja
			h01 += ja * jb
			h11 += jb * jb
		}
		if !isFinite(g0, g1, h00, h01, h11) {
			return Model{}, fmt.Errorf("%w: gradient overflow at iteration %d", ErrFitDivergence, iter)
		}

		gradNorm := math.Max(math.Abs(g0), math.Abs(g1))
		if gradNorm <= costTolerance*(1+cost) {
			return m, nil
		}

		accepted := false
		for retry := 0; retry < maxDampingRetries; retry++ {
			// Damped normal equations (J'J + damping*I) step = J'r.
			lhs := mat.NewDense(2, 2, []float64{
				h00 + damping, h01,
				h01, h11 + damping,
			})
			rhs := mat.NewVecDense(2, []float64{g0, g1})

			var step mat.VecDense
			if err := step.SolveVec(lhs, rhs); err != nil {
				damping *= 10
				continue
			}

			next := Model{A: m.A + step.AtVec(0), B: m.B + step.AtVec(1)}
			nextCost := residualSumSquares(y, next)
			if math.IsNaN(nextCost) || nextCost > cost {
				damping *= 10
				continue
			}

			improvement := cost - nextCost
			stepNorm := math.Hypot(step.AtVec(0), step.AtVec(1))
			m, cost = next, nextCost
			damping = math.Max(damping/10, 1e-12)
			accepted = true

			if improvement <= costTolerance*(1+cost) || stepNorm <= stepTolerance {
				return m, nil
			}
			break
		}

		if !accepted {
			// No damping level produced a downhill step; the surface is
			// flat or singular around the current estimate.
			if cost < math.Inf(1) && gradNorm <= math.Sqrt(costTolerance)*(1+cost) {
				return m, nil
			}
			return Model{}, fmt.Errorf("%w: no downhill step after %d iterations", ErrFitDivergence, iter+1)
		}
	}

	return Model{}, fmt.Errorf("%w: iteration budget of %d exceeded", ErrFitDivergence, maxIterations)
}

func residualSumSquares(y []float64, m Model) float64 {
	var ss float64
	for i, v := range y {
		r := v - m.At(i)
		ss += r * r
	}
	return ss
}

func isFinite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
