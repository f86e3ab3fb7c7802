package cable

import (
	"math"
	"testing"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
	"gotest.tools/v3/assert"
)

func newCable(t *testing.T, opts map[string]float64) (*Cable, network.Port, network.Port) {
	t.Helper()
	c, err := New(topology.Component{ID: "cable", Type: topology.DCCable, Options: opts})
	assert.NilError(t, err)
	s := network.NewState()
	in, _ := s.AddPort("battery->cable", topology.ElectricalDC, network.Handle{})
	out, _ := s.AddPort("cable->bus", topology.ElectricalDC, network.Handle{})
	assert.NilError(t, c.Bind(network.Ports{In: []network.Port{in}, Out: []network.Port{out}}))
	return c, in, out
}

func TestResistance(t *testing.T) {
	c, _, _ := newCable(t, map[string]float64{"length": 10, "cross_section": 50})
	assert.Assert(t, math.Abs(c.Resistance()-1.72e-8*10/50e-6) < 1e-15)
}

func TestOhmicDrop(t *testing.T) {
	c, in, out := newCable(t, nil)
	in.Current.Set(200)
	out.Current.Set(200)
	in.Voltage.Set(450)
	out.Voltage.Set(450 - c.Resistance()*200)

	r := make([]float64, c.NumResiduals())
	c.Residuals(mission.Point{}, r)
	assert.Equal(t, r[0], 0.0)
	assert.Assert(t, math.Abs(r[1]) < 1e-9)

	s := c.Observe(mission.Point{})
	losses, _ := s.Get("losses")
	pin, _ := s.Get("power_in")
	vout, _ := s.Get("voltage_out")
	assert.Assert(t, math.Abs(pin-vout*200-losses) < 1e-6)
}

func TestGuessPropagation(t *testing.T) {
	c, in, out := newCable(t, nil)
	in.Voltage.Set(470)
	c.Guess(mission.Point{}, component.Forward)
	assert.Equal(t, out.Voltage.Value(), 470.0)

	out.Current.Set(-40)
	c.Guess(mission.Point{}, component.Reverse)
	assert.Equal(t, in.Current.Value(), -40.0)
}

func TestCrossSectionMonotonic(t *testing.T) {
	prev := CrossSection(0, 8.7, 1.5)
	assert.Equal(t, prev, 1.5)
	for i := 10.0; i <= 2000; i += 10 {
		a := CrossSection(i, 8.7, 1.5)
		assert.Assert(t, a >= prev, "cross section shrank at %v A", i)
		prev = a
	}
	// ampacity of the sized section covers the current
	a := CrossSection(400, 8.7, 1.5)
	assert.Assert(t, Ampacity(a, 8.7) >= 400-1e-9)
	assert.Assert(t, a > 95 && a < 120, "%v mm^2", a)

	// past the largest standard section the regression is inverted
	a = CrossSection(2000, 8.7, 1.5)
	assert.Assert(t, math.Abs(Ampacity(a, 8.7)-2000) < 1e-9)
}

func TestCrossSectionAtStandardSections(t *testing.T) {
	for _, a := range StandardSections {
		got := CrossSection(Ampacity(a, 8.7), 8.7, 1)
		assert.Assert(t, math.Abs(got-a) < 1e-9, "%v mm^2 sized as %v", a, got)
	}
	assert.Equal(t, CrossSection(5, 8.7, 1), 1.5)
	assert.Equal(t, CrossSection(5, 8.7, 2), 2.0)
}

func TestSizeAndResize(t *testing.T) {
	c, _, _ := newCable(t, map[string]float64{"cross_section": 10})
	ex := component.Extremes{}
	ex.Accumulate(component.Sample{{Name: "current", Value: 400}}, 1)

	sz := c.Size(ex)
	assert.DeepEqual(t, sz.Overrated(), []string{"current"})
	assert.Assert(t, c.Resize(sz))
	assert.Equal(t, c.Section(), CrossSection(400, 8.7, 1.5))

	sz = c.Size(ex)
	assert.Assert(t, sz.Derating["current"] <= 1+1e-9)
	assert.Assert(t, !c.Resize(sz))
}
