/*
gearbox.go Speed reduction gearbox with a constant mechanical efficiency.
*/

package gearbox

import (
	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

var options = []string{"ratio", "efficiency", "torque_density"}

// Gearbox reduces the input speed by ratio.
type Gearbox struct {
	component.Base
	in  network.Port
	out network.Port

	ratio         float64 // w_in / w_out
	efficiency    float64
	torqueDensity float64 // output N.m/kg
}

// New returns a configured gearbox.
func New(decl topology.Component) (*Gearbox, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, options...); err != nil {
		return nil, err
	}
	g := &Gearbox{
		Base:          b,
		ratio:         b.Settings.Get("ratio", 1),
		efficiency:    b.Settings.Get("efficiency", 0.98),
		torqueDensity: b.Settings.Get("torque_density", 50),
	}
	if g.efficiency > 1 {
		return nil, &topology.ConfigurationError{Component: decl.ID, Reason: "efficiency above 1"}
	}
	return g, nil
}

// Bind is part of the Component interface.
func (g *Gearbox) Bind(ports network.Ports) error {
	if err := ports.Expect(1, topology.Mechanical, 1, topology.Mechanical); err != nil {
		return err
	}
	g.in = ports.In[0]
	g.out = ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (g *Gearbox) NumResiduals() int {
	return 2
}

// Residuals is part of the Component interface.
func (g *Gearbox) Residuals(pt mission.Point, r []float64) {
	r[0] = g.in.Speed.Value() - g.ratio*g.out.Speed.Value()
	r[1] = g.efficiency*g.ratio*g.in.Torque.Value() - g.out.Torque.Value()
}

// Guess is part of the component.Guesser interface.
func (g *Gearbox) Guess(pt mission.Point, pass component.Pass) {
	switch pass {
	case component.Forward:
		g.out.Speed.Set(g.in.Speed.Value() / g.ratio)
	case component.Reverse:
		g.in.Speed.Set(g.ratio * g.out.Speed.Value())
		g.in.Torque.Set(g.out.Torque.Value() / (g.efficiency * g.ratio))
	}
}

// Observe is part of the Component interface.
func (g *Gearbox) Observe(pt mission.Point) component.Sample {
	pIn := g.in.Torque.Value() * g.in.Speed.Value()
	pOut := g.out.Torque.Value() * g.out.Speed.Value()
	return component.Sample{
		{Name: "torque_in", Unit: "N*m", Value: g.in.Torque.Value()},
		{Name: "torque_out", Unit: "N*m", Value: g.out.Torque.Value()},
		{Name: "speed_in", Unit: "rad/s", Value: g.in.Speed.Value()},
		{Name: "speed_out", Unit: "rad/s", Value: g.out.Speed.Value()},
		{Name: "power_in", Unit: "W", Value: pIn},
		{Name: "power_out", Unit: "W", Value: pOut},
		{Name: "losses", Unit: "W", Value: pIn - pOut},
	}
}

// Size is part of the Component interface.
func (g *Gearbox) Size(ex component.Extremes) component.Sizing {
	tMax := ex.MaxAbs("torque_out")
	return component.Sizing{
		Mass:     tMax / g.torqueDensity,
		Derating: map[string]float64{},
		Variables: []component.Variable{
			{Name: "torque_out_max", Unit: "N*m", Value: tMax},
		},
	}
}
