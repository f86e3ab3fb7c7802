/*
network.go Shared registers of the power-train equations. A register is one
scalar unknown (a current, a voltage, a torque...). Components never own the
unknowns they read: they hold Handles, which are read/write capabilities on a
register owned by a connection or by a node such as a DC bus.
*/

package network

import (
	"errors"
	"fmt"
	"math"

	"github.com/ohowland/oad_core/internal/pkg/topology"
)

// Register bounds shared by every power train.
const (
	MaxVoltage = 2000.0 // V
	MaxCurrent = 5000.0 // A
	MaxTorque  = 1e5    // N.m
	MaxSpeed   = 1e5    // rad/s
	MaxFlow    = 10.0   // kg/s
)

// Register is one scalar unknown with a physical unit and box bounds.
type Register struct {
	Name    string
	Unit    string
	Nominal float64
	Lower   float64
	Upper   float64
}

// State holds the value of every register of a power train.
type State struct {
	registers []Register
	values    []float64
	byName    map[string]int
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		registers: make([]Register, 0),
		values:    make([]float64, 0),
		byName:    make(map[string]int),
	}
}

// Add creates a register and returns a handle on it.
func (s *State) Add(r Register) (Handle, error) {
	if _, exists := s.byName[r.Name]; exists {
		err := fmt.Sprintf("register %v already exists.", r.Name)
		return Handle{}, errors.New(err)
	}
	if r.Lower > r.Upper {
		return Handle{}, fmt.Errorf("register %v has empty bounds", r.Name)
	}
	s.byName[r.Name] = len(s.registers)
	s.registers = append(s.registers, r)
	s.values = append(s.values, clip(r.Nominal, r.Lower, r.Upper))
	return Handle{s, len(s.registers) - 1}, nil
}

// Len returns the number of registers.
func (s *State) Len() int {
	return len(s.registers)
}

// Register returns the definition of register i.
func (s *State) Register(i int) Register {
	return s.registers[i]
}

// Lookup returns the handle of the named register.
func (s *State) Lookup(name string) (Handle, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Handle{}, false
	}
	return Handle{s, i}, true
}

// Values returns a copy of the register values.
func (s *State) Values() []float64 {
	x := make([]float64, len(s.values))
	copy(x, s.values)
	return x
}

// Load overwrites every register value with x.
func (s *State) Load(x []float64) {
	copy(s.values, x)
}

// Reset restores every register to its nominal value.
func (s *State) Reset() {
	for i, r := range s.registers {
		s.values[i] = clip(r.Nominal, r.Lower, r.Upper)
	}
}

// Bounds returns the box constraint of register i.
func (s *State) Bounds(i int) (float64, float64) {
	return s.registers[i].Lower, s.registers[i].Upper
}

// Handle is a read/write capability on a register.
type Handle struct {
	state *State
	index int
}

// Valid reports whether the handle points to a register.
func (h Handle) Valid() bool {
	return h.state != nil
}

// Value reads the register.
func (h Handle) Value() float64 {
	return h.state.values[h.index]
}

// Set writes the register, clipped to its bounds.
func (h Handle) Set(v float64) {
	r := h.state.registers[h.index]
	h.state.values[h.index] = clip(v, r.Lower, r.Upper)
}

// Name returns the register name.
func (h Handle) Name() string {
	return h.state.registers[h.index].Name
}

// Index returns the position of the register in the state vector.
func (h Handle) Index() int {
	return h.index
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Port is the set of handles one component sees on one connection.
type Port struct {
	Kind  topology.Kind
	Peer  string // id of the component on the other end
	Label string // splitter input label

	Current Handle // electrical
	Voltage Handle // electrical
	Torque  Handle // mechanical
	Speed   Handle // mechanical
	Flow    Handle // fuel
}

// Ports groups the input and output ports of one component, in declaration order.
type Ports struct {
	In  []Port
	Out []Port
}

// Labeled returns the input port carrying label.
func (p Ports) Labeled(label string) (Port, bool) {
	for _, port := range p.In {
		if port.Label == label {
			return port, true
		}
	}
	return Port{}, false
}

// Expect verifies the port counts and kinds a component binds to.
func (p Ports) Expect(in int, inKind topology.Kind, out int, outKind topology.Kind) error {
	if len(p.In) != in {
		return fmt.Errorf("expected %d input port(s), got %d", in, len(p.In))
	}
	if len(p.Out) != out {
		return fmt.Errorf("expected %d output port(s), got %d", out, len(p.Out))
	}
	for _, port := range p.In {
		if port.Kind != inKind {
			return fmt.Errorf("input from %s is %s, expected %s", port.Peer, port.Kind, inKind)
		}
	}
	for _, port := range p.Out {
		if port.Kind != outKind {
			return fmt.Errorf("output to %s is %s, expected %s", port.Peer, port.Kind, outKind)
		}
	}
	return nil
}

// AddPort creates the registers of one connection named name. An electrical
// port aliases voltage when it is valid instead of creating its own.
func (s *State) AddPort(name string, kind topology.Kind, voltage Handle) (Port, error) {
	p := Port{Kind: kind}
	var err error
	switch kind {
	case topology.ElectricalDC, topology.ElectricalAC:
		if p.Current, err = s.Add(Register{name + ".current", "A", 0, -MaxCurrent, MaxCurrent}); err != nil {
			return p, err
		}
		if voltage.Valid() {
			p.Voltage = voltage
			return p, nil
		}
		p.Voltage, err = s.Add(Register{name + ".voltage", "V", 400, 0, MaxVoltage})
	case topology.Mechanical:
		if p.Torque, err = s.Add(Register{name + ".torque", "N*m", 0, -MaxTorque, MaxTorque}); err != nil {
			return p, err
		}
		p.Speed, err = s.Add(Register{name + ".speed", "rad/s", 100, 0, MaxSpeed})
	case topology.Fuel:
		p.Flow, err = s.Add(Register{name + ".flow", "kg/s", 0, 0, MaxFlow})
	default:
		err = fmt.Errorf("%v connections carry no registers", kind)
	}
	return p, err
}
