/*
generator.go Permanent magnet generator, the reverse of the motor model: shaft
torque in, three phase AC out.
*/

package generator

import (
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/component/motor"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

// Generator converts shaft power into AC power.
type Generator struct {
	component.Base
	motor.Machine
	shaft network.Port
	ac    network.Port
}

// New returns a configured generator.
func New(decl topology.Component) (*Generator, error) {
	b := component.NewBase(decl)
	m, err := motor.NewMachine(decl.ID, b.Settings)
	if err != nil {
		return nil, err
	}
	return &Generator{Base: b, Machine: m}, nil
}

// Bind is part of the Component interface.
func (g *Generator) Bind(ports network.Ports) error {
	if err := ports.Expect(1, topology.Mechanical, 1, topology.ElectricalAC); err != nil {
		return err
	}
	g.shaft = ports.In[0]
	g.ac = ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (g *Generator) NumResiduals() int {
	return 2
}

// Residuals is part of the Component interface.
func (g *Generator) Residuals(pt mission.Point, r []float64) {
	w := g.shaft.Speed.Value()
	i := g.ac.Current.Value()
	r[0] = g.ac.Voltage.Value() - g.Ke*w + g.Resistance*i
	r[1] = g.shaft.Torque.Value() - 3*g.Ke*i - g.LossTorque(w)
}

// Guess is part of the component.Guesser interface.
func (g *Generator) Guess(pt mission.Point, pass component.Pass) {
	w := g.shaft.Speed.Value()
	switch pass {
	case component.Forward:
		g.ac.Voltage.Set(g.Ke * w)
	case component.Reverse:
		g.shaft.Torque.Set(3*g.Ke*g.ac.Current.Value() + g.LossTorque(w))
	}
}

// Observe is part of the Component interface.
func (g *Generator) Observe(pt mission.Point) component.Sample {
	w := g.shaft.Speed.Value()
	tq := g.shaft.Torque.Value()
	i := g.ac.Current.Value()
	pIn := tq * w
	pOut := 3 * g.ac.Voltage.Value() * i
	return component.Sample{
		{Name: "voltage_ac", Unit: "V", Value: g.ac.Voltage.Value()},
		{Name: "current_ac", Unit: "A", Value: i},
		{Name: "torque", Unit: "N*m", Value: tq},
		{Name: "speed", Unit: "rad/s", Value: w},
		{Name: "rpm", Unit: "1/min", Value: w * 30 / math.Pi},
		{Name: "power_in", Unit: "W", Value: pIn},
		{Name: "power_out", Unit: "W", Value: pOut},
		{Name: "losses", Unit: "W", Value: pIn - pOut},
		{Name: "efficiency", Unit: "-", Value: component.SafeDiv(pOut, pIn)},
	}
}

// Size is part of the Component interface.
func (g *Generator) Size(ex component.Extremes) component.Sizing {
	return g.Machine.Size(ex)
}
