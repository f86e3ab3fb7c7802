/*
propeller.go Fixed speed propeller, the propulsive load of the power train.
Shaft power follows from the propulsive power required at the mission point
and the propeller efficiency given by actuator disk theory.
*/

package propeller

import (
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

var options = []string{"rpm", "diameter", "profile_efficiency", "share", "min_airspeed", "max_tip_mach", "mass_coefficient"}

// Propeller converts shaft power into thrust.
type Propeller struct {
	component.Base
	shaft network.Port

	rpm         float64
	diameter    float64 // m
	profile     float64
	share       float64 // fraction of the aircraft propulsive power
	minAirspeed float64 // m/s
	maxTipMach  float64
	massCoeff   float64
}

// New returns a configured propeller.
func New(decl topology.Component) (*Propeller, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, options...); err != nil {
		return nil, err
	}
	p := &Propeller{
		Base:        b,
		rpm:         b.Settings.Get("rpm", 2500),
		diameter:    b.Settings.Get("diameter", 1.8),
		profile:     b.Settings.Get("profile_efficiency", 0.85),
		share:       b.Settings.Get("share", 1),
		minAirspeed: b.Settings.Get("min_airspeed", 10),
		maxTipMach:  b.Settings.Get("max_tip_mach", 0.85),
		massCoeff:   b.Settings.Get("mass_coefficient", 0.25),
	}
	if p.profile > 1 || p.share > 1 {
		return nil, &topology.ConfigurationError{Component: decl.ID, Reason: "profile_efficiency and share must not exceed 1"}
	}
	return p, nil
}

// ShareDeclared reports whether the propulsive power share was set explicitly.
func (p *Propeller) ShareDeclared() bool {
	return p.Settings.Has("share")
}

// SetShare sets the fraction of the aircraft propulsive power this propeller
// delivers.
func (p *Propeller) SetShare(s float64) {
	p.share = s
}

// Share returns the propulsive power fraction.
func (p *Propeller) Share() float64 {
	return p.share
}

// Speed returns the commanded shaft speed in rad/s.
func (p *Propeller) Speed() float64 {
	return p.rpm * math.Pi / 30
}

func density(pt mission.Point) float64 {
	if pt.Density > 0 {
		return pt.Density
	}
	return mission.Density(pt.Altitude)
}

// Efficiency returns the propeller efficiency delivering propulsive power
// power at point pt.
func (p *Propeller) Efficiency(pt mission.Point, power float64) float64 {
	v := math.Max(pt.Airspeed, p.minAirspeed)
	area := math.Pi * p.diameter * p.diameter / 4
	thrust := math.Max(0, power) / v
	ideal := 2 / (1 + math.Sqrt(1+thrust/(0.5*density(pt)*v*v*area)))
	return p.profile * ideal
}

// ShaftPower returns the shaft power required at point pt.
func (p *Propeller) ShaftPower(pt mission.Point) float64 {
	power := p.share * pt.Power
	if power <= 0 {
		return 0
	}
	return power / p.Efficiency(pt, power)
}

// Bind is part of the Component interface.
func (p *Propeller) Bind(ports network.Ports) error {
	if err := ports.Expect(1, topology.Mechanical, 0, ""); err != nil {
		return err
	}
	p.shaft = ports.In[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (p *Propeller) NumResiduals() int {
	return 2
}

// Residuals is part of the Component interface.
func (p *Propeller) Residuals(pt mission.Point, r []float64) {
	w := p.shaft.Speed.Value()
	r[0] = w - p.Speed()
	r[1] = (p.shaft.Torque.Value()*w - p.ShaftPower(pt)) / component.PowerScale
}

// Guess sets the shaft speed and torque demanded at pt.
func (p *Propeller) Guess(pt mission.Point, pass component.Pass) {
	if pass != component.Reverse {
		return
	}
	p.shaft.Speed.Set(p.Speed())
	p.shaft.Torque.Set(p.ShaftPower(pt) / p.Speed())
}

// Observe is part of the Component interface.
func (p *Propeller) Observe(pt mission.Point) component.Sample {
	w := p.shaft.Speed.Value()
	power := math.Max(0, p.share*pt.Power)
	v := math.Max(pt.Airspeed, p.minAirspeed)
	tip := math.Hypot(w*p.diameter/2, pt.Airspeed)
	sound := math.Sqrt(1.4 * 287.05 * mission.Temperature(pt.Altitude))
	return component.Sample{
		{Name: "torque", Unit: "N*m", Value: p.shaft.Torque.Value()},
		{Name: "speed", Unit: "rad/s", Value: w},
		{Name: "shaft_power", Unit: "W", Value: p.shaft.Torque.Value() * w},
		{Name: "propulsive_power", Unit: "W", Value: power},
		{Name: "thrust", Unit: "N", Value: power / v},
		{Name: "efficiency", Unit: "-", Value: p.Efficiency(pt, power)},
		{Name: "tip_mach", Unit: "-", Value: tip / sound},
	}
}

// Size is part of the Component interface.
func (p *Propeller) Size(ex component.Extremes) component.Sizing {
	pMax := ex.MaxAbs("shaft_power")
	return component.Sizing{
		Mass: p.massCoeff * p.diameter * p.diameter * math.Pow(pMax/1e3, 0.4),
		Derating: map[string]float64{
			"tip_mach": ex.Max("tip_mach") / p.maxTipMach,
		},
		Variables: []component.Variable{
			{Name: "shaft_power_max", Unit: "W", Value: pMax},
			{Name: "thrust_max", Unit: "N", Value: ex.Max("thrust")},
		},
	}
}
