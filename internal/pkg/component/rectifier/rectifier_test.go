package rectifier

import (
	"math"
	"testing"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
	"gotest.tools/v3/assert"
)

func TestRegulatedOutput(t *testing.T) {
	rc, err := New(topology.Component{ID: "rectifier", Type: topology.Rectifier, Options: map[string]float64{"voltage_setpoint": 480}})
	assert.NilError(t, err)
	s := network.NewState()
	ac, _ := s.AddPort("generator->rectifier", topology.ElectricalAC, network.Handle{})
	dc, _ := s.AddPort("rectifier->splitter", topology.ElectricalDC, network.Handle{})
	assert.NilError(t, rc.Bind(network.Ports{In: []network.Port{ac}, Out: []network.Port{dc}}))

	rc.Guess(mission.Point{}, component.Forward)
	assert.Equal(t, dc.Voltage.Value(), 480.0)

	dc.Current.Set(100)
	ac.Voltage.Set(300)
	rc.Guess(mission.Point{}, component.Reverse)
	assert.Assert(t, math.Abs(ac.Current.Value()-480*100/900.0) < 1e-9)

	// lossless guess leaves the power residual equal to the losses
	r := make([]float64, rc.NumResiduals())
	rc.Residuals(mission.Point{}, r)
	assert.Equal(t, r[0], 0.0)
	assert.Assert(t, math.Abs(r[1]+rc.Losses(ac.Current.Value(), 480)/component.PowerScale) < 1e-9)
}

func TestRejectsDCInput(t *testing.T) {
	rc, _ := New(topology.Component{ID: "rectifier", Type: topology.Rectifier})
	ports := network.Ports{
		In:  []network.Port{{Kind: topology.ElectricalDC, Peer: "battery"}},
		Out: []network.Port{{Kind: topology.ElectricalDC}},
	}
	assert.ErrorContains(t, rc.Bind(ports), "expected electrical_ac")
}
