package propeller

import (
	"math"
	"testing"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
	"gotest.tools/v3/assert"
)

func cruise() mission.Point {
	return mission.Point{Dt: 60, Altitude: 2000, Airspeed: 70, Power: 100e3, Density: mission.Density(2000)}
}

func TestEfficiencyBelowProfile(t *testing.T) {
	p, err := New(topology.Component{ID: "propeller", Type: topology.Propeller})
	assert.NilError(t, err)

	pt := cruise()
	eta := p.Efficiency(pt, pt.Power)
	assert.Assert(t, eta < 0.85 && eta > 0.75, "efficiency %v", eta)

	// lighter disk loading is more efficient
	assert.Assert(t, p.Efficiency(pt, 50e3) > eta)
	assert.Equal(t, p.Efficiency(pt, 0), 0.85)
}

func TestShaftPowerShare(t *testing.T) {
	p, _ := New(topology.Component{ID: "propeller", Type: topology.Propeller})
	pt := cruise()
	full := p.ShaftPower(pt)
	assert.Assert(t, full > pt.Power)

	p.SetShare(0.5)
	assert.Assert(t, p.ShaftPower(pt) < full/2)
	assert.Assert(t, !p.ShareDeclared())

	pt.Power = -5e3
	assert.Equal(t, p.ShaftPower(pt), 0.0)
}

func TestGuessSatisfiesEquations(t *testing.T) {
	p, _ := New(topology.Component{ID: "propeller", Type: topology.Propeller, Options: map[string]float64{"rpm": 2200}})
	s := network.NewState()
	shaft, _ := s.AddPort("motor->propeller", topology.Mechanical, network.Handle{})
	assert.NilError(t, p.Bind(network.Ports{In: []network.Port{shaft}}))

	pt := cruise()
	p.Guess(pt, component.Reverse)
	assert.Assert(t, math.Abs(shaft.Speed.Value()-2200*math.Pi/30) < 1e-9)

	r := make([]float64, p.NumResiduals())
	p.Residuals(pt, r)
	assert.Assert(t, math.Abs(r[0]) < 1e-9)
	assert.Assert(t, math.Abs(r[1]) < 1e-9)

	obs := p.Observe(pt)
	shaftPower, _ := obs.Get("shaft_power")
	assert.Assert(t, math.Abs(shaftPower-p.ShaftPower(pt)) < 1e-6)
	mach, _ := obs.Get("tip_mach")
	assert.Assert(t, mach > 0.5 && mach < 0.85)
}

func TestRejectsShareAboveOne(t *testing.T) {
	_, err := New(topology.Component{ID: "propeller", Type: topology.Propeller, Options: map[string]float64{"share": 2}})
	assert.ErrorContains(t, err, "must not exceed 1")
}
