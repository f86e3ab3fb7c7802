/*
fueltank.go Fuel tank. The tank has no equations of its own: the fuel flow on
its output is settled by the engine it feeds. It integrates the consumed fuel.
*/

package fueltank

import (
	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

var options = []string{"capacity", "unusable_fraction", "structural_ratio", "fuel_density"}

// Tank stores fuel.
type Tank struct {
	component.Base
	out []network.Port

	capacity   float64 // kg, 0 when sized from the mission
	unusable   float64
	structural float64 // kg of tank per kg of fuel capacity
	density    float64 // kg/m^3

	consumed float64 // kg, before the current point
}

// New returns a configured fuel tank.
func New(decl topology.Component) (*Tank, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, "capacity", "structural_ratio", "fuel_density"); err != nil {
		return nil, err
	}
	return &Tank{
		Base:       b,
		capacity:   b.Settings.Get("capacity", 0),
		unusable:   b.Settings.Get("unusable_fraction", 0.05),
		structural: b.Settings.Get("structural_ratio", 0.1),
		density:    b.Settings.Get("fuel_density", 800),
	}, nil
}

// Bind accepts one or more fuel outputs.
func (f *Tank) Bind(ports network.Ports) error {
	if err := ports.Expect(0, "", len(ports.Out), topology.Fuel); err != nil {
		return err
	}
	f.out = ports.Out
	return nil
}

// NumResiduals is part of the Component interface.
func (f *Tank) NumResiduals() int {
	return 0
}

// Residuals is part of the Component interface.
func (f *Tank) Residuals(pt mission.Point, r []float64) {}

func (f *Tank) flow() float64 {
	var total float64
	for _, p := range f.out {
		total += p.Flow.Value()
	}
	return total
}

// Observe is part of the Component interface.
func (f *Tank) Observe(pt mission.Point) component.Sample {
	flow := f.flow()
	return component.Sample{
		{Name: "fuel_flow", Unit: "kg/s", Value: flow},
		{Name: "fuel_consumed", Unit: "kg", Value: f.consumed + flow*pt.Dt},
	}
}

// Advance integrates the fuel drawn over the point.
func (f *Tank) Advance(pt mission.Point) {
	f.consumed += f.flow() * pt.Dt
}

// Reset refuels the tank.
func (f *Tank) Reset() {
	f.consumed = 0
}

// Consumed returns the fuel drawn before the current point, in kg.
func (f *Tank) Consumed() float64 {
	return f.consumed
}

// Size is part of the Component interface.
func (f *Tank) Size(ex component.Extremes) component.Sizing {
	fuel := ex.Integral("fuel_flow")
	required := fuel * (1 + f.unusable)
	derating := map[string]float64{}
	if f.capacity > 0 {
		derating["capacity"] = required / f.capacity
	}
	capacity := required
	if f.capacity > capacity {
		capacity = f.capacity
	}
	return component.Sizing{
		Mass:     capacity * f.structural,
		Derating: derating,
		Variables: []component.Variable{
			{Name: "fuel_mission", Unit: "kg", Value: fuel},
			{Name: "capacity", Unit: "kg", Value: capacity},
			{Name: "volume", Unit: "m**3", Value: capacity / f.density},
		},
	}
}
