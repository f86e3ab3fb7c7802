/*
rectifier.go Active rectifier regulating its DC output voltage from a three
phase AC input.
*/

package rectifier

import (
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

var options = []string{"voltage_setpoint", "r_on", "k_switching", "power_density", "rated_current"}

// Rectifier is an AC/DC power converter.
type Rectifier struct {
	component.Base
	ac network.Port
	dc network.Port

	setpoint     float64 // V
	rOn          float64 // ohm
	kSwitching   float64
	powerDensity float64 // W/kg
	ratedCurrent float64 // A rms
}

// New returns a configured rectifier.
func New(decl topology.Component) (*Rectifier, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, "voltage_setpoint", "power_density", "rated_current"); err != nil {
		return nil, err
	}
	return &Rectifier{
		Base:         b,
		setpoint:     b.Settings.Get("voltage_setpoint", 450),
		rOn:          b.Settings.Get("r_on", 0.005),
		kSwitching:   b.Settings.Get("k_switching", 2e-3),
		powerDensity: b.Settings.Get("power_density", 15e3),
		ratedCurrent: b.Settings.Get("rated_current", 300),
	}, nil
}

// Losses returns the conversion losses at a phase current and DC voltage.
func (rc *Rectifier) Losses(iAC, vDC float64) float64 {
	return 3*rc.rOn*iAC*iAC + rc.kSwitching*vDC*math.Abs(iAC)
}

// Bind is part of the Component interface.
func (rc *Rectifier) Bind(ports network.Ports) error {
	if err := ports.Expect(1, topology.ElectricalAC, 1, topology.ElectricalDC); err != nil {
		return err
	}
	rc.ac = ports.In[0]
	rc.dc = ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (rc *Rectifier) NumResiduals() int {
	return 2
}

// Residuals is part of the Component interface.
func (rc *Rectifier) Residuals(pt mission.Point, r []float64) {
	vDC, iDC := rc.dc.Voltage.Value(), rc.dc.Current.Value()
	vAC, iAC := rc.ac.Voltage.Value(), rc.ac.Current.Value()
	r[0] = vDC - rc.setpoint
	r[1] = (3*vAC*iAC - vDC*iDC - rc.Losses(iAC, vDC)) / component.PowerScale
}

// Guess is part of the component.Guesser interface.
func (rc *Rectifier) Guess(pt mission.Point, pass component.Pass) {
	switch pass {
	case component.Forward:
		rc.dc.Voltage.Set(rc.setpoint)
	case component.Reverse:
		vDC := rc.dc.Voltage.Value()
		rc.ac.Current.Set(component.SafeDiv(vDC*rc.dc.Current.Value(), 3*rc.ac.Voltage.Value()))
	}
}

// Observe is part of the Component interface.
func (rc *Rectifier) Observe(pt mission.Point) component.Sample {
	vDC, iDC := rc.dc.Voltage.Value(), rc.dc.Current.Value()
	vAC, iAC := rc.ac.Voltage.Value(), rc.ac.Current.Value()
	pIn := 3 * vAC * iAC
	pOut := vDC * iDC
	return component.Sample{
		{Name: "voltage_ac", Unit: "V", Value: vAC},
		{Name: "current_ac", Unit: "A", Value: iAC},
		{Name: "voltage_out", Unit: "V", Value: vDC},
		{Name: "current_out", Unit: "A", Value: iDC},
		{Name: "power_in", Unit: "W", Value: pIn},
		{Name: "power_out", Unit: "W", Value: pOut},
		{Name: "losses", Unit: "W", Value: rc.Losses(iAC, vDC)},
		{Name: "efficiency", Unit: "-", Value: component.SafeDiv(pOut, pIn)},
	}
}

// Size is part of the Component interface.
func (rc *Rectifier) Size(ex component.Extremes) component.Sizing {
	pMax := ex.MaxAbs("power_in")
	return component.Sizing{
		Mass:     pMax / rc.powerDensity,
		Derating: map[string]float64{"current": ex.MaxAbs("current_ac") / rc.ratedCurrent},
		Variables: []component.Variable{
			{Name: "power_max", Unit: "W", Value: pMax},
		},
	}
}
