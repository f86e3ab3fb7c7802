package powertrain

import (
	"errors"
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/solver"
	"go.uber.org/zap"
)

// PointStatus is the solver outcome at one mission point.
type PointStatus struct {
	Index      int           `json:"Index"`
	Status     solver.Status `json:"Status"`
	Iterations int           `json:"Iterations"`
	Residual   float64       `json:"Residual"`
}

// Performance holds the equilibrium of every mission point. Samples and
// Branches are indexed by component id, then by point.
type Performance struct {
	Profile  mission.Profile
	Points   []PointStatus
	Samples  map[string][]component.Sample
	Branches map[string][]string
}

// Converged reports whether every point reached equilibrium.
func (perf *Performance) Converged() bool {
	for _, p := range perf.Points {
		if p.Status != solver.Converged {
			return false
		}
	}
	return true
}

// Failed lists the points that did not converge.
func (perf *Performance) Failed() []PointStatus {
	failed := make([]PointStatus, 0)
	for _, p := range perf.Points {
		if p.Status != solver.Converged {
			failed = append(failed, p)
		}
	}
	return failed
}

// Series returns the value of a variable of component id at every point.
func (perf *Performance) Series(id, name string) []float64 {
	samples := perf.Samples[id]
	values := make([]float64, len(samples))
	for i, s := range samples {
		v, ok := s.Get(name)
		if !ok {
			v = math.NaN()
		}
		values[i] = v
	}
	return values
}

// Integral returns the time integral of a variable of component id.
func (perf *Performance) Integral(id, name string) float64 {
	return perf.Extremes(id).Integral(name)
}

// Extremes summarizes the samples of component id over the mission.
func (perf *Performance) Extremes(id string) component.Extremes {
	ex := component.Extremes{}
	for i, s := range perf.Samples[id] {
		ex.Accumulate(s, perf.Profile.Points[i].Dt)
	}
	return ex
}

// Performance solves the equilibrium of every point of profile, in order.
// Points that do not converge are logged and kept.
func (p *PowerTrain) Performance(profile mission.Profile) (*Performance, error) {
	if profile.Len() == 0 {
		return nil, errors.New("mission profile has no points")
	}
	perf := &Performance{
		Profile:  profile,
		Points:   make([]PointStatus, 0, profile.Len()),
		Samples:  make(map[string][]component.Sample, len(p.components)),
		Branches: make(map[string][]string),
	}

	p.reset()
	warm := false
	for _, pt := range profile.Points {
		if warm {
			// keep the last equilibrium, move the load path to the new demand
			p.guess(pt, component.Reverse)
		} else {
			p.state.Reset()
			p.guess(pt, component.Forward, component.Reverse)
		}

		res := solver.Solve(p.System(pt), p.state.Values(), p.opts.Solver)
		p.state.Load(res.X)
		perf.Points = append(perf.Points, PointStatus{pt.Index, res.Status, res.Iterations, res.Residual})
		warm = res.Status == solver.Converged

		if !warm {
			p.log.Warn("mission point did not converge",
				zap.Int("point", pt.Index),
				zap.String("phase", string(pt.Phase)),
				zap.Stringer("status", res.Status),
				zap.Int("iterations", res.Iterations),
				zap.Float64("residual", res.Residual))
		}

		for _, id := range p.order {
			c := p.components[id]
			perf.Samples[id] = append(perf.Samples[id], c.Observe(pt))
			if b, ok := c.(component.Brancher); ok {
				perf.Branches[id] = append(perf.Branches[id], b.Branch())
			}
		}
		for _, id := range p.order {
			if a, ok := p.components[id].(component.Advancer); ok {
				a.Advance(pt)
			}
		}
	}
	p.log.Debug("performance solved",
		zap.Int("points", profile.Len()),
		zap.Int("failed", len(perf.Failed())))
	return perf, nil
}
