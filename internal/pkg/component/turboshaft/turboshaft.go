/*
turboshaft.go Constant speed turboshaft engine. Fuel flow follows a Willans
line: a fixed idle burn plus a slope in shaft power, so the specific fuel
consumption rises at part load.
*/

package turboshaft

import (
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

var options = []string{"rated_power", "rpm", "psfc", "willans_slope", "mass_coefficient"}

// Turboshaft burns fuel to drive its output shaft.
type Turboshaft struct {
	component.Base
	fuel  network.Port
	shaft network.Port

	ratedPower float64 // W
	rpm        float64
	psfc       float64 // kg/J at rated power
	slope      float64 // share of the rated burn proportional to power
	massCoeff  float64
}

// New returns a configured turboshaft.
func New(decl topology.Component) (*Turboshaft, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, options...); err != nil {
		return nil, err
	}
	e := &Turboshaft{
		Base:       b,
		ratedPower: b.Settings.Get("rated_power", 500e3),
		rpm:        b.Settings.Get("rpm", 6000),
		psfc:       b.Settings.Get("psfc", 0.3) / 3.6e6, // kg/kWh
		slope:      b.Settings.Get("willans_slope", 0.7),
		massCoeff:  b.Settings.Get("mass_coefficient", 0.5),
	}
	if e.slope > 1 {
		return nil, &topology.ConfigurationError{Component: decl.ID, Reason: "willans_slope must not exceed 1"}
	}
	return e, nil
}

// Speed returns the rated output speed in rad/s.
func (e *Turboshaft) Speed() float64 {
	return e.rpm * math.Pi / 30
}

// FuelFlow returns the fuel flow in kg/s delivering shaft power p.
func (e *Turboshaft) FuelFlow(p float64) float64 {
	return e.psfc * (e.slope*math.Max(0, p) + (1-e.slope)*e.ratedPower)
}

// Bind is part of the Component interface.
func (e *Turboshaft) Bind(ports network.Ports) error {
	if err := ports.Expect(1, topology.Fuel, 1, topology.Mechanical); err != nil {
		return err
	}
	e.fuel = ports.In[0]
	e.shaft = ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (e *Turboshaft) NumResiduals() int {
	return 2
}

func (e *Turboshaft) power() float64 {
	return e.shaft.Torque.Value() * e.shaft.Speed.Value()
}

// Residuals is part of the Component interface.
func (e *Turboshaft) Residuals(pt mission.Point, r []float64) {
	r[0] = e.shaft.Speed.Value() - e.Speed()
	r[1] = (e.fuel.Flow.Value() - e.FuelFlow(e.power())) / component.FlowScale
}

// Guess is part of the component.Guesser interface.
func (e *Turboshaft) Guess(pt mission.Point, pass component.Pass) {
	switch pass {
	case component.Forward:
		e.shaft.Speed.Set(e.Speed())
	case component.Reverse:
		e.fuel.Flow.Set(e.FuelFlow(e.power()))
	}
}

// Observe is part of the Component interface.
func (e *Turboshaft) Observe(pt mission.Point) component.Sample {
	p := e.power()
	flow := e.fuel.Flow.Value()
	return component.Sample{
		{Name: "torque", Unit: "N*m", Value: e.shaft.Torque.Value()},
		{Name: "speed", Unit: "rad/s", Value: e.shaft.Speed.Value()},
		{Name: "power_out", Unit: "W", Value: p},
		{Name: "fuel_flow", Unit: "kg/s", Value: flow},
		{Name: "psfc", Unit: "kg/kW/h", Value: 3.6e6 * component.SafeDiv(flow, p)},
	}
}

// Size is part of the Component interface.
func (e *Turboshaft) Size(ex component.Extremes) component.Sizing {
	pMax := ex.MaxAbs("power_out")
	return component.Sizing{
		Mass: e.massCoeff * math.Pow(e.ratedPower/1e3, 0.92),
		Derating: map[string]float64{
			"power": pMax / e.ratedPower,
		},
		Variables: []component.Variable{
			{Name: "power_max", Unit: "W", Value: pMax},
			{Name: "fuel_burnt", Unit: "kg", Value: ex.Integral("fuel_flow")},
		},
	}
}
