package solver

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gotest.tools/v3/assert"
)

// funcSystem adapts a closure to the System interface.
type funcSystem struct {
	n      int
	lo, hi float64
	f      func(x, r []float64)
}

func (s funcSystem) Size() int                    { return s.n }
func (s funcSystem) Residuals(x, r []float64)     { s.f(x, r) }
func (s funcSystem) Bounds(int) (float64, float64) { return s.lo, s.hi }

func TestLinearSystemConverges(t *testing.T) {
	sys := funcSystem{2, -100, 100, func(x, r []float64) {
		r[0] = 3*x[0] + x[1] - 9
		r[1] = x[0] + 2*x[1] - 8
	}}
	res := Solve(sys, []float64{0, 0}, DefaultOptions())
	assert.Equal(t, res.Status, Converged)
	assert.Assert(t, math.Abs(res.X[0]-2) < 1e-6)
	assert.Assert(t, math.Abs(res.X[1]-3) < 1e-6)
	assert.Assert(t, res.Iterations <= 3)
}

func TestNonlinearSystemConverges(t *testing.T) {
	// V*I = P with V = 400 - 0.1*I
	sys := funcSystem{2, -5000, 5000, func(x, r []float64) {
		v, i := x[0], x[1]
		r[0] = v - (400 - 0.1*i)
		r[1] = (v*i - 60e3) / 1e3
	}}
	res := Solve(sys, []float64{400, 0}, DefaultOptions())
	assert.Equal(t, res.Status, Converged)
	v, i := res.X[0], res.X[1]
	assert.Assert(t, math.Abs(v*i-60e3) < 1e-3)
	assert.Assert(t, v > 300, "solver picked the non-physical root")
}

func TestBoxConstraintSelectsRoot(t *testing.T) {
	sys := funcSystem{1, 0.5, 10, func(x, r []float64) {
		r[0] = x[0]*x[0] - 4
	}}
	res := Solve(sys, []float64{-1}, DefaultOptions())
	assert.Equal(t, res.Status, Converged)
	assert.Assert(t, math.Abs(res.X[0]-2) < 1e-6)
}

func TestNoRootStalls(t *testing.T) {
	sys := funcSystem{1, -10, 10, func(x, r []float64) {
		r[0] = x[0]*x[0] + 1
	}}
	res := Solve(sys, []float64{1}, DefaultOptions())
	assert.Equal(t, res.Status, Stalled)
	assert.Assert(t, res.Residual >= 1)
}

func TestNonFiniteResidualDiverges(t *testing.T) {
	sys := funcSystem{1, -10, 10, func(x, r []float64) {
		r[0] = 1 / x[0]
	}}
	res := Solve(sys, []float64{0}, DefaultOptions())
	assert.Equal(t, res.Status, Diverged)
}

func TestSingularJacobian(t *testing.T) {
	sys := funcSystem{2, -10, 10, func(x, r []float64) {
		r[0] = x[0] + x[1] - 1
		r[1] = 2*x[0] + 2*x[1] - 2
	}}
	res := Solve(sys, []float64{0, 0}, DefaultOptions())
	assert.Equal(t, res.Status, Singular)
}

func TestEmptySystem(t *testing.T) {
	res := Solve(funcSystem{0, 0, 0, func(x, r []float64) {}}, nil, DefaultOptions())
	assert.Equal(t, res.Status, Converged)
}

func TestCheckJacobian(t *testing.T) {
	sys := funcSystem{2, -10, 10, func(x, r []float64) {
		r[0] = x[0]*x[0] + x[1]
		r[1] = math.Sin(x[1])
	}}
	x := []float64{1.5, 0.3}
	analytic := mat.NewDense(2, 2, []float64{
		2 * x[0], 1,
		0, math.Cos(x[1]),
	})
	assert.Assert(t, CheckJacobian(sys, x, analytic, 1e-7) < 1e-5)

	wrong := mat.NewDense(2, 2, []float64{
		x[0], 1,
		0, math.Cos(x[1]),
	})
	assert.Assert(t, CheckJacobian(sys, x, wrong, 1e-7) > 0.1)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, Converged.String(), "converged")
	assert.Equal(t, Stalled.String(), "stalled")
	assert.Equal(t, Diverged.String(), "diverged")
	assert.Equal(t, Singular.String(), "singular")
}
