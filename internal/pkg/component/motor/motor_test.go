package motor

import (
	"math"
	"testing"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
	"gotest.tools/v3/assert"
)

func newMotor(t *testing.T, opts map[string]float64) (*Motor, network.Port, network.Port) {
	t.Helper()
	m, err := New(topology.Component{ID: "motor", Type: topology.Motor, Options: opts})
	assert.NilError(t, err)
	s := network.NewState()
	ac, _ := s.AddPort("inverter->motor", topology.ElectricalAC, network.Handle{})
	shaft, _ := s.AddPort("motor->propeller", topology.Mechanical, network.Handle{})
	assert.NilError(t, m.Bind(network.Ports{In: []network.Port{ac}, Out: []network.Port{shaft}}))
	return m, ac, shaft
}

func TestGuessSatisfiesEquations(t *testing.T) {
	m, _, shaft := newMotor(t, nil)
	shaft.Speed.Set(260)
	shaft.Torque.Set(400)
	m.Guess(mission.Point{}, component.Reverse)

	r := make([]float64, m.NumResiduals())
	m.Residuals(mission.Point{}, r)
	assert.Assert(t, math.Abs(r[0]) < 1e-9)
	assert.Assert(t, math.Abs(r[1]) < 1e-9)
}

func TestLossesSplitIntoCopperAndIron(t *testing.T) {
	m, _, shaft := newMotor(t, nil)
	shaft.Speed.Set(260)
	shaft.Torque.Set(400)
	m.Guess(mission.Point{}, component.Reverse)

	s := m.Observe(mission.Point{})
	losses, _ := s.Get("losses")
	copper, _ := s.Get("copper_losses")
	iron, _ := s.Get("iron_losses")
	assert.Assert(t, math.Abs(losses-copper-iron) < 1e-6)
	eff, _ := s.Get("efficiency")
	assert.Assert(t, eff > 0.9 && eff < 1)
}

func TestSizeFromTorqueAndTipSpeed(t *testing.T) {
	m, _, _ := newMotor(t, map[string]float64{"rated_torque": 300})
	ex := component.Extremes{}
	ex.Accumulate(component.Sample{{Name: "torque", Value: 450}, {Name: "speed", Value: 1200}}, 1)

	sz := m.Size(ex)
	assert.Equal(t, sz.Mass, 45.0)
	assert.Equal(t, sz.Derating["torque"], 1.5)
	assert.Equal(t, sz.Derating["tip_speed"], 0.8)
	assert.DeepEqual(t, sz.Overrated(), []string{"torque"})
}

func TestRejectsNonPositiveKe(t *testing.T) {
	_, err := New(topology.Component{ID: "motor", Type: topology.Motor, Options: map[string]float64{"ke": 0}})
	assert.ErrorContains(t, err, "motor: option ke must be positive")
}
