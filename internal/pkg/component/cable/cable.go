/*
cable.go DC cable between two electrical components. The conductor is a
resistance set by its length and cross section; sizing picks the smallest
cross section whose ampacity covers the peak current, interpolated between
the standard conductor sections.
*/

package cable

import (
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

const (
	copperDensity    = 8960.0 // kg/m^3
	ampacityExponent = 0.8
)

// StandardSections are the nominal conductor sections in mm^2.
var StandardSections = []float64{
	1.5, 2.5, 4, 6, 10, 16, 25, 35, 50, 70, 95, 120, 150, 185, 240, 300, 400, 500, 630,
}

var options = []string{
	"length",
	"cross_section",
	"ampacity_coefficient",
	"resistivity",
	"min_cross_section",
	"insulation_mass",
	"resize",
}

// Cable is a two conductor DC harness.
type Cable struct {
	component.Base
	in  network.Port
	out network.Port

	length      float64 // m
	section     float64 // mm^2
	ampacity    float64 // A/mm^(2*0.8)
	resistivity float64 // ohm.m
	minSection  float64 // mm^2
	insulation  float64 // kg/m
	resize      bool
}

// New returns a configured cable.
func New(decl topology.Component) (*Cable, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, "length", "cross_section", "ampacity_coefficient", "resistivity", "min_cross_section"); err != nil {
		return nil, err
	}
	return &Cable{
		Base:        b,
		length:      b.Settings.Get("length", 10),
		section:     b.Settings.Get("cross_section", 35),
		ampacity:    b.Settings.Get("ampacity_coefficient", 8.7),
		resistivity: b.Settings.Get("resistivity", 1.72e-8),
		minSection:  b.Settings.Get("min_cross_section", 1.5),
		insulation:  b.Settings.Get("insulation_mass", 0.05),
		resize:      b.Settings.Get("resize", 1) != 0,
	}, nil
}

// Ampacity is the allowable current of a section under the regression
// I = coefficient * A^0.8.
func Ampacity(section, coefficient float64) float64 {
	return coefficient * math.Pow(section, ampacityExponent)
}

// AmpacityTable interpolates the section carrying a current between the
// standard sections.
func AmpacityTable(coefficient float64) interp.PiecewiseLinear {
	currents := make([]float64, len(StandardSections))
	for i, a := range StandardSections {
		currents[i] = Ampacity(a, coefficient)
	}
	var pl interp.PiecewiseLinear
	pl.Fit(currents, StandardSections)
	return pl
}

// CrossSection returns the smallest conductor section carrying iMax, never
// below min. It is non-decreasing in iMax. Above the largest standard section
// the regression is inverted directly.
func CrossSection(iMax, coefficient, min float64) float64 {
	i := math.Abs(iMax)
	last := StandardSections[len(StandardSections)-1]
	if i > Ampacity(last, coefficient) {
		return math.Max(min, math.Pow(i/coefficient, 1/ampacityExponent))
	}
	table := AmpacityTable(coefficient)
	return math.Max(min, table.Predict(i))
}

// Resistance of the conductor in ohm.
func (c *Cable) Resistance() float64 {
	return c.resistivity * c.length / (c.section * 1e-6)
}

// Section returns the conductor cross section in mm^2.
func (c *Cable) Section() float64 {
	return c.section
}

// Bind is part of the Component interface.
func (c *Cable) Bind(ports network.Ports) error {
	if err := ports.Expect(1, topology.ElectricalDC, 1, topology.ElectricalDC); err != nil {
		return err
	}
	c.in = ports.In[0]
	c.out = ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (c *Cable) NumResiduals() int {
	return 2
}

// Residuals is part of the Component interface.
func (c *Cable) Residuals(pt mission.Point, r []float64) {
	i := c.out.Current.Value()
	r[0] = c.in.Current.Value() - i
	r[1] = c.in.Voltage.Value() - c.out.Voltage.Value() - c.Resistance()*i
}

// Guess carries voltage downstream and current upstream.
func (c *Cable) Guess(pt mission.Point, pass component.Pass) {
	switch pass {
	case component.Forward:
		c.out.Voltage.Set(c.in.Voltage.Value())
	case component.Reverse:
		c.in.Current.Set(c.out.Current.Value())
	}
}

// Observe is part of the Component interface.
func (c *Cable) Observe(pt mission.Point) component.Sample {
	i := c.out.Current.Value()
	vIn := c.in.Voltage.Value()
	return component.Sample{
		{Name: "current", Unit: "A", Value: i},
		{Name: "voltage_in", Unit: "V", Value: vIn},
		{Name: "voltage_out", Unit: "V", Value: c.out.Voltage.Value()},
		{Name: "power_in", Unit: "W", Value: vIn * c.in.Current.Value()},
		{Name: "losses", Unit: "W", Value: c.Resistance() * i * i},
	}
}

// Size is part of the Component interface.
func (c *Cable) Size(ex component.Extremes) component.Sizing {
	iMax := ex.MaxAbs("current")
	section := CrossSection(iMax, c.ampacity, c.minSection)
	conductor := copperDensity * c.length * section * 1e-6
	return component.Sizing{
		Mass: 2*conductor + 2*c.insulation*c.length,
		Derating: map[string]float64{
			"current": iMax / Ampacity(c.section, c.ampacity),
		},
		Variables: []component.Variable{
			{Name: "cross_section", Unit: "mm**2", Value: section},
			{Name: "current_max", Unit: "A", Value: iMax},
		},
	}
}

// Resize adopts the sized cross section.
func (c *Cable) Resize(s component.Sizing) bool {
	if !c.resize {
		return false
	}
	section, ok := s.Get("cross_section")
	if !ok || math.Abs(section-c.section) <= component.Epsilon*c.section {
		return false
	}
	c.section = section
	return true
}
