/*
inverter.go DC to three phase AC inverter. Conduction losses grow with the
square of the phase current and switching losses with the DC voltage.
*/

package inverter

import (
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

var options = []string{"r_on", "k_switching", "power_density", "rated_current", "max_modulation"}

// Inverter is a DC/AC power converter.
type Inverter struct {
	component.Base
	dc network.Port
	ac network.Port

	rOn           float64 // ohm
	kSwitching    float64 // A per A of phase current, scaled by V_dc
	powerDensity  float64 // W/kg
	ratedCurrent  float64 // A rms
	maxModulation float64
}

// New returns a configured inverter.
func New(decl topology.Component) (*Inverter, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, "power_density", "rated_current", "max_modulation"); err != nil {
		return nil, err
	}
	return &Inverter{
		Base:          b,
		rOn:           b.Settings.Get("r_on", 0.005),
		kSwitching:    b.Settings.Get("k_switching", 2e-3),
		powerDensity:  b.Settings.Get("power_density", 15e3),
		ratedCurrent:  b.Settings.Get("rated_current", 300),
		maxModulation: b.Settings.Get("max_modulation", 1),
	}, nil
}

// Losses returns the conduction and switching losses at a phase current and
// DC voltage.
func (inv *Inverter) Losses(iAC, vDC float64) float64 {
	return 3*inv.rOn*iAC*iAC + inv.kSwitching*vDC*math.Abs(iAC)
}

// Bind is part of the Component interface.
func (inv *Inverter) Bind(ports network.Ports) error {
	if err := ports.Expect(1, topology.ElectricalDC, 1, topology.ElectricalAC); err != nil {
		return err
	}
	inv.dc = ports.In[0]
	inv.ac = ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (inv *Inverter) NumResiduals() int {
	return 1
}

// Residuals is part of the Component interface.
func (inv *Inverter) Residuals(pt mission.Point, r []float64) {
	vDC, iDC := inv.dc.Voltage.Value(), inv.dc.Current.Value()
	vAC, iAC := inv.ac.Voltage.Value(), inv.ac.Current.Value()
	r[0] = (vDC*iDC - 3*vAC*iAC - inv.Losses(iAC, vDC)) / component.PowerScale
}

// Guess draws the DC current matching the AC load.
func (inv *Inverter) Guess(pt mission.Point, pass component.Pass) {
	if pass != component.Reverse {
		return
	}
	vDC := inv.dc.Voltage.Value()
	iAC := inv.ac.Current.Value()
	inv.dc.Current.Set(component.SafeDiv(3*inv.ac.Voltage.Value()*iAC+inv.Losses(iAC, vDC), vDC))
}

// Observe is part of the Component interface.
func (inv *Inverter) Observe(pt mission.Point) component.Sample {
	vDC, iDC := inv.dc.Voltage.Value(), inv.dc.Current.Value()
	vAC, iAC := inv.ac.Voltage.Value(), inv.ac.Current.Value()
	pIn := vDC * iDC
	pOut := 3 * vAC * iAC
	return component.Sample{
		{Name: "voltage_in", Unit: "V", Value: vDC},
		{Name: "current_in", Unit: "A", Value: iDC},
		{Name: "voltage_ac", Unit: "V", Value: vAC},
		{Name: "current_ac", Unit: "A", Value: iAC},
		{Name: "power_in", Unit: "W", Value: pIn},
		{Name: "power_out", Unit: "W", Value: pOut},
		{Name: "losses", Unit: "W", Value: inv.Losses(iAC, vDC)},
		{Name: "efficiency", Unit: "-", Value: component.SafeDiv(pOut, pIn)},
		{Name: "modulation", Unit: "-", Value: component.SafeDiv(2*math.Sqrt2*vAC, vDC)},
	}
}

// Size is part of the Component interface.
func (inv *Inverter) Size(ex component.Extremes) component.Sizing {
	pMax := ex.MaxAbs("power_out")
	return component.Sizing{
		Mass: pMax / inv.powerDensity,
		Derating: map[string]float64{
			"current":    ex.MaxAbs("current_ac") / inv.ratedCurrent,
			"modulation": ex.Max("modulation") / inv.maxModulation,
		},
		Variables: []component.Variable{
			{Name: "power_max", Unit: "W", Value: pMax},
			{Name: "current_ac_max", Unit: "A", Value: ex.MaxAbs("current_ac")},
		},
	}
}
