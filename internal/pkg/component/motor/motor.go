/*
motor.go Permanent magnet synchronous motor. Per phase back-EMF and winding
resistance on the electrical side, electromagnetic torque minus friction and
iron losses on the shaft.
*/

package motor

import (
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

var options = []string{
	"ke",
	"phase_resistance",
	"friction_torque",
	"iron_coefficient",
	"torque_density",
	"rotor_radius",
	"max_tip_speed",
	"rated_torque",
}

// Machine holds the parameters shared by motors and generators.
type Machine struct {
	Ke             float64 // V.s/rad per phase
	Resistance     float64 // ohm per phase
	FrictionTorque float64 // N.m
	IronCoeff      float64 // N.m.s/rad
	TorqueDensity  float64 // N.m/kg
	RotorRadius    float64 // m
	MaxTipSpeed    float64 // m/s
	RatedTorque    float64 // N.m, 0 when not rated
}

// NewMachine reads the machine parameters from settings.
func NewMachine(id string, s component.Settings) (Machine, error) {
	if err := s.Check(id, options...); err != nil {
		return Machine{}, err
	}
	if err := s.Positive(id, "ke", "torque_density", "rotor_radius", "max_tip_speed", "rated_torque"); err != nil {
		return Machine{}, err
	}
	return Machine{
		Ke:             s.Get("ke", 0.5),
		Resistance:     s.Get("phase_resistance", 0.02),
		FrictionTorque: s.Get("friction_torque", 0.5),
		IronCoeff:      s.Get("iron_coefficient", 0.002),
		TorqueDensity:  s.Get("torque_density", 10),
		RotorRadius:    s.Get("rotor_radius", 0.1),
		MaxTipSpeed:    s.Get("max_tip_speed", 150),
		RatedTorque:    s.Get("rated_torque", 0),
	}, nil
}

// LossTorque is the friction and iron loss torque at speed w.
func (m Machine) LossTorque(w float64) float64 {
	return m.FrictionTorque + m.IronCoeff*w
}

// Size turns the peak torque and speed into a mass and derating factors.
func (m Machine) Size(ex component.Extremes) component.Sizing {
	tMax := ex.MaxAbs("torque")
	derating := map[string]float64{
		"tip_speed": ex.Max("speed") * m.RotorRadius / m.MaxTipSpeed,
	}
	if m.RatedTorque > 0 {
		derating["torque"] = tMax / m.RatedTorque
	}
	return component.Sizing{
		Mass:     tMax / m.TorqueDensity,
		Derating: derating,
		Variables: []component.Variable{
			{Name: "torque_max", Unit: "N*m", Value: tMax},
			{Name: "speed_max", Unit: "rad/s", Value: ex.Max("speed")},
			{Name: "power_max", Unit: "W", Value: math.Max(ex.MaxAbs("power_in"), ex.MaxAbs("power_out"))},
		},
	}
}

// Motor converts AC power into shaft power.
type Motor struct {
	component.Base
	Machine
	ac    network.Port
	shaft network.Port
}

// New returns a configured motor.
func New(decl topology.Component) (*Motor, error) {
	b := component.NewBase(decl)
	m, err := NewMachine(decl.ID, b.Settings)
	if err != nil {
		return nil, err
	}
	return &Motor{Base: b, Machine: m}, nil
}

// Bind is part of the Component interface.
func (m *Motor) Bind(ports network.Ports) error {
	if err := ports.Expect(1, topology.ElectricalAC, 1, topology.Mechanical); err != nil {
		return err
	}
	m.ac = ports.In[0]
	m.shaft = ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (m *Motor) NumResiduals() int {
	return 2
}

// Residuals is part of the Component interface.
func (m *Motor) Residuals(pt mission.Point, r []float64) {
	w := m.shaft.Speed.Value()
	i := m.ac.Current.Value()
	r[0] = m.ac.Voltage.Value() - m.Ke*w - m.Resistance*i
	r[1] = 3*m.Ke*i - m.shaft.Torque.Value() - m.LossTorque(w)
}

// Guess sets the phase current and voltage required by the shaft load.
func (m *Motor) Guess(pt mission.Point, pass component.Pass) {
	if pass != component.Reverse {
		return
	}
	w := m.shaft.Speed.Value()
	i := (m.shaft.Torque.Value() + m.LossTorque(w)) / (3 * m.Ke)
	m.ac.Current.Set(i)
	m.ac.Voltage.Set(m.Ke*w + m.Resistance*i)
}

// Observe is part of the Component interface.
func (m *Motor) Observe(pt mission.Point) component.Sample {
	w := m.shaft.Speed.Value()
	tq := m.shaft.Torque.Value()
	i := m.ac.Current.Value()
	pIn := 3 * m.ac.Voltage.Value() * i
	pOut := tq * w
	return component.Sample{
		{Name: "voltage_ac", Unit: "V", Value: m.ac.Voltage.Value()},
		{Name: "current_ac", Unit: "A", Value: i},
		{Name: "torque", Unit: "N*m", Value: tq},
		{Name: "speed", Unit: "rad/s", Value: w},
		{Name: "rpm", Unit: "1/min", Value: w * 30 / math.Pi},
		{Name: "power_in", Unit: "W", Value: pIn},
		{Name: "power_out", Unit: "W", Value: pOut},
		{Name: "losses", Unit: "W", Value: pIn - pOut},
		{Name: "copper_losses", Unit: "W", Value: 3 * m.Resistance * i * i},
		{Name: "iron_losses", Unit: "W", Value: m.LossTorque(w) * w},
		{Name: "efficiency", Unit: "-", Value: component.SafeDiv(pOut, pIn)},
	}
}

// Size is part of the Component interface.
func (m *Motor) Size(ex component.Extremes) component.Sizing {
	return m.Machine.Size(ex)
}
