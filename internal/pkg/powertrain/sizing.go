package powertrain

import (
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/topology"
	"go.uber.org/zap"
)

// Sizing sizes every component from the extremes of perf, loads first.
// Derating factors above 1 are logged, never raised.
func (p *PowerTrain) Sizing(perf *Performance) map[string]component.Sizing {
	sizes := make(map[string]component.Sizing, len(p.components))
	for _, id := range p.reverse {
		s := p.components[id].Size(perf.Extremes(id))
		sizes[id] = s
		for _, name := range s.Overrated() {
			p.log.Warn("component outside its rating",
				zap.String("component", id),
				zap.String("factor", name),
				zap.Float64("derating", s.Derating[name]))
		}
	}
	return sizes
}

// Resize feeds sizes back into the component designs. It reports whether any
// design changed.
func (p *PowerTrain) Resize(sizes map[string]component.Sizing) bool {
	changed := false
	for _, id := range p.reverse {
		if r, ok := p.components[id].(component.Resizer); ok {
			if r.Resize(sizes[id]) {
				changed = true
			}
		}
	}
	return changed
}

// Result is the outcome of an evaluation.
type Result struct {
	Name        string
	Iterations  int
	Converged   bool
	Performance *Performance
	Sizing      map[string]component.Sizing
	Mass        map[string]float64 // kg, keyed by mass variable
	TotalMass   float64            // kg
	Energy      Energy
}

// Energy is the energy accounting of a mission. Battery equals Shaft plus
// TotalLosses on an all-electric power train: the internal losses of the packs
// are upstream of their terminals and reported as Storage.
type Energy struct {
	Battery float64            `json:"Battery"` // J, drawn at the battery terminals
	Storage float64            `json:"Storage"` // J, dissipated inside the packs
	Shaft   float64            `json:"Shaft"`   // J, delivered to the propellers
	Losses  map[string]float64 `json:"Losses"`  // J, per component downstream of the terminals
	Fuel    float64            `json:"Fuel"`    // kg
}

// TotalLosses sums the losses of every component between the battery
// terminals and the propeller shafts.
func (e Energy) TotalLosses() float64 {
	var total float64
	for _, l := range e.Losses {
		total += l
	}
	return total
}

// Evaluate alternates performance and sizing until the power-train mass
// settles.
func (p *PowerTrain) Evaluate(profile mission.Profile) (*Result, error) {
	res := &Result{Name: p.name}
	prev := math.Inf(1)
	for it := 1; it <= p.opts.MaxIterations; it++ {
		perf, err := p.Performance(profile)
		if err != nil {
			return nil, err
		}
		sizes := p.Sizing(perf)
		p.fill(res, perf, sizes)
		res.Iterations = it

		delta := math.Abs(res.TotalMass - prev)
		p.log.Info("sizing iteration",
			zap.Int("iteration", it),
			zap.Float64("mass", res.TotalMass),
			zap.Float64("delta", delta))
		prev = res.TotalMass

		if delta < p.opts.MassTolerance {
			res.Converged = true
			break
		}
		if it == p.opts.MaxIterations {
			// keep the design res describes
			break
		}
		if !p.Resize(sizes) {
			res.Converged = true
			break
		}
	}
	if !res.Converged {
		p.log.Warn("sizing loop did not converge", zap.Int("iterations", res.Iterations))
	}
	return res, nil
}

func (p *PowerTrain) fill(res *Result, perf *Performance, sizes map[string]component.Sizing) {
	res.Performance = perf
	res.Sizing = sizes
	res.Mass = make(map[string]float64, len(sizes))
	res.TotalMass = 0
	for _, decl := range p.topology.Components {
		m := sizes[decl.ID].Mass
		res.Mass[topology.VariableName(decl.Type, decl.ID, "mass")] = m
		res.TotalMass += m
	}
	res.Energy = p.energy(perf)
}

func (p *PowerTrain) energy(perf *Performance) Energy {
	e := Energy{Losses: make(map[string]float64)}
	for _, decl := range p.topology.Components {
		ex := perf.Extremes(decl.ID)
		switch decl.Type {
		case topology.BatteryPack:
			e.Battery += ex.Integral("power_out")
			e.Storage += ex.Integral("losses")
			continue
		case topology.Propeller:
			e.Shaft += ex.Integral("shaft_power")
		case topology.FuelTank:
			e.Fuel += ex.Integral("fuel_flow")
		}
		if _, ok := ex["losses"]; ok {
			e.Losses[decl.ID] = ex.Integral("losses")
		}
	}
	return e
}
