/*
component.go Contract shared by every power-train component. A component
contributes residual equations over the registers of its ports, reports named
per-point outputs, and turns the worst observed conditions into a sizing.
*/

package component

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

// Residual scales. Power residuals are expressed in kW and fuel flow
// residuals in g/s so every equation has a comparable magnitude.
const (
	PowerScale = 1e3
	FlowScale  = 1e-3
	Epsilon    = 1e-6
)

// Component is one node of the power-train equations.
type Component interface {
	ID() string
	PID() uuid.UUID
	Type() topology.Type
	// Bind hands the component its port handles.
	Bind(ports network.Ports) error
	NumResiduals() int
	// Residuals writes NumResiduals values into r, zero at equilibrium.
	Residuals(pt mission.Point, r []float64)
	// Observe reports the named outputs of the current equilibrium.
	Observe(pt mission.Point) Sample
	// Size turns performance extremes into a sizing.
	Size(ex Extremes) Sizing
}

// Node is implemented by components that own a register shared by all of
// their ports.
type Node interface {
	NodeRegister(s *network.State) (network.Handle, error)
}

// Pass orders the initial guess propagation.
type Pass int

// Guess passes. Forward runs sources first, Reverse runs loads first.
const (
	Forward Pass = iota
	Reverse
)

// Guesser seeds the registers of its ports before the first solve.
type Guesser interface {
	Guess(pt mission.Point, pass Pass)
}

// Advancer carries state from one mission point to the next.
type Advancer interface {
	Advance(pt mission.Point)
	Reset()
}

// Resizer adopts a sizing so the next performance pass sees the new design.
// It reports whether the design changed.
type Resizer interface {
	Resize(s Sizing) bool
}

// Brancher reports a discrete operating branch selected at the last equilibrium.
type Brancher interface {
	Branch() string
}

// Base carries the identity and settings common to all components.
type Base struct {
	id       string
	pid      uuid.UUID
	typ      topology.Type
	Settings Settings
}

// NewBase builds the identity of a component declaration.
func NewBase(decl topology.Component) Base {
	settings := make(Settings, len(decl.Options))
	for k, v := range decl.Options {
		settings[k] = v
	}
	return Base{decl.ID, topology.PID(decl.ID), decl.Type, settings}
}

// ID is the declared component id.
func (b Base) ID() string {
	return b.id
}

// PID is the process id of the component.
func (b Base) PID() uuid.UUID {
	return b.pid
}

// Type is the declared component type.
func (b Base) Type() topology.Type {
	return b.typ
}

// Variable returns the full dotted path of a component variable.
func (b Base) Variable(name string) string {
	return topology.VariableName(b.typ, b.id, name)
}

// Settings are the numeric options of a component declaration.
type Settings map[string]float64

// Get returns the named setting or def when absent.
func (s Settings) Get(name string, def float64) float64 {
	if v, ok := s[name]; ok {
		return v
	}
	return def
}

// Has reports whether the setting was declared.
func (s Settings) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Check rejects settings outside allowed.
func (s Settings) Check(id string, allowed ...string) error {
	known := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		known[a] = true
	}
	unknown := make([]string, 0)
	for k := range s {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &topology.ConfigurationError{Component: id, Reason: fmt.Sprintf("unknown option(s) %v", unknown)}
}

// Positive rejects settings that must be strictly positive.
func (s Settings) Positive(id string, names ...string) error {
	for _, n := range names {
		if v, ok := s[n]; ok && v <= 0 {
			return &topology.ConfigurationError{Component: id, Reason: fmt.Sprintf("option %s must be positive", n)}
		}
	}
	return nil
}
