/*
dcbus.go DC bus node. The bus owns the voltage register shared by every
connection attached to it and enforces the current balance of its ports.
*/

package dcbus

import (
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

const copperDensity = 8960.0 // kg/m^3

var options = []string{"nominal_voltage", "current_density", "length"}

// Bus is a DC bus node.
type Bus struct {
	component.Base
	voltage network.Handle
	in      []network.Port
	out     []network.Port

	nominal        float64 // V
	currentDensity float64 // A/mm^2
	length         float64 // m
}

// New returns a configured DC bus.
func New(decl topology.Component) (*Bus, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, options...); err != nil {
		return nil, err
	}
	return &Bus{
		Base:           b,
		nominal:        b.Settings.Get("nominal_voltage", 400),
		currentDensity: b.Settings.Get("current_density", 5),
		length:         b.Settings.Get("length", 0.5),
	}, nil
}

// NodeRegister creates the bus voltage, aliased by every attached port.
func (b *Bus) NodeRegister(s *network.State) (network.Handle, error) {
	h, err := s.Add(network.Register{
		Name:    b.ID() + ".voltage",
		Unit:    "V",
		Nominal: b.nominal,
		Lower:   0,
		Upper:   network.MaxVoltage,
	})
	b.voltage = h
	return h, err
}

// Bind is part of the Component interface.
func (b *Bus) Bind(ports network.Ports) error {
	if err := ports.Expect(len(ports.In), topology.ElectricalDC, len(ports.Out), topology.ElectricalDC); err != nil {
		return err
	}
	b.in = ports.In
	b.out = ports.Out
	return nil
}

// NumResiduals is part of the Component interface.
func (b *Bus) NumResiduals() int {
	return 1
}

func (b *Bus) currents() (in, out float64) {
	for _, p := range b.in {
		in += p.Current.Value()
	}
	for _, p := range b.out {
		out += p.Current.Value()
	}
	return in, out
}

// Residuals is part of the Component interface.
func (b *Bus) Residuals(pt mission.Point, r []float64) {
	in, out := b.currents()
	r[0] = in - out
}

// Guess shares the output current evenly across the inputs.
func (b *Bus) Guess(pt mission.Point, pass component.Pass) {
	if pass != component.Reverse || len(b.in) == 0 {
		return
	}
	_, out := b.currents()
	for _, p := range b.in {
		p.Current.Set(out / float64(len(b.in)))
	}
}

// Observe is part of the Component interface.
func (b *Bus) Observe(pt mission.Point) component.Sample {
	in, out := b.currents()
	v := b.voltage.Value()
	return component.Sample{
		{Name: "voltage", Unit: "V", Value: v},
		{Name: "current_in", Unit: "A", Value: in},
		{Name: "current_out", Unit: "A", Value: out},
		{Name: "power", Unit: "W", Value: v * in},
	}
}

// Size is part of the Component interface.
func (b *Bus) Size(ex component.Extremes) component.Sizing {
	iMax := math.Max(ex.MaxAbs("current_in"), ex.MaxAbs("current_out"))
	section := iMax / b.currentDensity // mm^2
	return component.Sizing{
		Mass: copperDensity * b.length * section * 1e-6,
		Derating: map[string]float64{
			"voltage": ex.Max("voltage") / network.MaxVoltage,
		},
		Variables: []component.Variable{
			{Name: "cross_section", Unit: "mm**2", Value: section},
			{Name: "current_max", Unit: "A", Value: iMax},
		},
	}
}
