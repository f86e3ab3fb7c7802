/*
newton.go Damped Newton-Raphson solver for square nonlinear systems. The
Jacobian is computed by finite differences at the residual boundary, so a
system only supplies residuals. Non-convergence is reported through Result,
never as an error: callers inspect the status.
*/

package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// System is a square nonlinear system F(x) = 0 with box-constrained unknowns.
type System interface {
	Size() int
	Residuals(x, r []float64)
	Bounds(i int) (lower, upper float64)
}

// Status is the terminal condition of a solve.
type Status int

// Solve outcomes.
const (
	Converged Status = iota
	Stalled
	Diverged
	Singular
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case Stalled:
		return "stalled"
	case Diverged:
		return "diverged"
	case Singular:
		return "singular"
	}
	return "unknown"
}

// Options tunes the solver.
type Options struct {
	Tolerance        float64 `json:"Tolerance"`        // residual infinity norm
	MaxIterations    int     `json:"MaxIterations"`    //
	MinDamping       float64 `json:"MinDamping"`       // smallest step fraction tried by the line search
	DivergenceFactor float64 `json:"DivergenceFactor"` // residual growth relative to the initial residual
	StallIterations  int     `json:"StallIterations"`  // iterations without progress before giving up
	FiniteDifference float64 `json:"FiniteDifference"` // relative perturbation of the Jacobian
}

// DefaultOptions returns the solver settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Tolerance:        1e-8,
		MaxIterations:    50,
		MinDamping:       1.0 / 64,
		DivergenceFactor: 1e6,
		StallIterations:  8,
		FiniteDifference: 1e-7,
	}
}

// Result reports the last iterate and how the solve ended.
type Result struct {
	Status     Status
	Iterations int
	Residual   float64
	X          []float64
}

// Solve runs damped Newton iterations from x0.
func Solve(sys System, x0 []float64, opts Options) Result {
	n := sys.Size()
	x := make([]float64, n)
	copy(x, x0)
	project(sys, x)

	r := make([]float64, n)
	sys.Residuals(x, r)
	norm := infNorm(r)
	if n == 0 {
		return Result{Converged, 0, 0, x}
	}
	if !finite(r) {
		return Result{Diverged, 0, norm, x}
	}

	initial := math.Max(norm, opts.Tolerance)
	best := norm
	stall := 0
	damping := 1.0

	jac := mat.NewDense(n, n, nil)
	xn := make([]float64, n)
	rn := make([]float64, n)

	for it := 0; it < opts.MaxIterations; it++ {
		if norm < opts.Tolerance {
			return Result{Converged, it, norm, x}
		}

		jacobian(sys, x, r, jac, opts.FiniteDifference)
		rhs := mat.NewVecDense(n, nil)
		for i := range r {
			rhs.SetVec(i, -r[i])
		}
		var dx mat.VecDense
		if err := dx.SolveVec(jac, rhs); err != nil {
			// an ill-conditioned but finite step is still usable
			c, ok := err.(mat.Condition)
			if !ok || math.IsInf(float64(c), 1) {
				return Result{Singular, it, norm, x}
			}
		}
		if !finite(dx.RawVector().Data) {
			return Result{Singular, it, norm, x}
		}

		// backtracking line search on the residual norm
		alpha := damping
		var nn float64
		for {
			for i := range x {
				xn[i] = x[i] + alpha*dx.AtVec(i)
			}
			project(sys, xn)
			sys.Residuals(xn, rn)
			nn = infNorm(rn)
			if finite(rn) && nn < norm {
				break
			}
			if alpha/2 < opts.MinDamping {
				break
			}
			alpha /= 2
		}

		if !finite(rn) || nn > opts.DivergenceFactor*initial {
			return Result{Diverged, it + 1, nn, xn}
		}

		if alpha == damping {
			damping = math.Min(1, damping*1.2)
		} else {
			damping = math.Max(opts.MinDamping, alpha)
		}

		copy(x, xn)
		copy(r, rn)
		norm = nn

		if norm < best*(1-1e-3) {
			best = norm
			stall = 0
		} else {
			stall++
			if stall >= opts.StallIterations && norm >= opts.Tolerance {
				return Result{Stalled, it + 1, norm, x}
			}
		}
	}
	if norm < opts.Tolerance {
		return Result{Converged, opts.MaxIterations, norm, x}
	}
	return Result{Stalled, opts.MaxIterations, norm, x}
}

// jacobian fills jac with forward finite differences around x. r holds F(x).
func jacobian(sys System, x, r []float64, jac *mat.Dense, rel float64) {
	n := len(x)
	xp := make([]float64, n)
	rp := make([]float64, n)
	copy(xp, x)
	for j := 0; j < n; j++ {
		h := rel * math.Max(math.Abs(x[j]), 1)
		_, upper := sys.Bounds(j)
		if x[j]+h > upper {
			h = -h
		}
		xp[j] = x[j] + h
		sys.Residuals(xp, rp)
		for i := 0; i < n; i++ {
			jac.Set(i, j, (rp[i]-r[i])/h)
		}
		xp[j] = x[j]
	}
}

// Jacobian returns the finite difference Jacobian of sys at x.
func Jacobian(sys System, x []float64, rel float64) *mat.Dense {
	n := sys.Size()
	r := make([]float64, n)
	sys.Residuals(x, r)
	jac := mat.NewDense(n, n, nil)
	jacobian(sys, x, r, jac, rel)
	return jac
}

// CheckJacobian compares an analytic Jacobian with finite differences and
// returns the largest absolute mismatch, scaled by max(1, |analytic|).
func CheckJacobian(sys System, x []float64, analytic *mat.Dense, rel float64) float64 {
	numeric := Jacobian(sys, x, rel)
	rows, cols := numeric.Dims()
	var worst float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a := analytic.At(i, j)
			d := math.Abs(numeric.At(i, j)-a) / math.Max(1, math.Abs(a))
			worst = math.Max(worst, d)
		}
	}
	return worst
}

func project(sys System, x []float64) {
	for i := range x {
		lo, hi := sys.Bounds(i)
		x[i] = math.Max(lo, math.Min(hi, x[i]))
	}
}

func infNorm(r []float64) float64 {
	var m float64
	for _, v := range r {
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		m = math.Max(m, math.Abs(v))
	}
	return m
}

func finite(r []float64) bool {
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
