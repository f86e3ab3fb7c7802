/*
powertrain.go Power-train configurator. A PowerTrain instantiates the declared
components, lays out the shared registers of every connection and node, and
exposes the assembled residual system to the solver.
*/

package powertrain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/component/battery"
	"github.com/ohowland/oad_core/internal/pkg/component/cable"
	"github.com/ohowland/oad_core/internal/pkg/component/dcbus"
	"github.com/ohowland/oad_core/internal/pkg/component/fueltank"
	"github.com/ohowland/oad_core/internal/pkg/component/gearbox"
	"github.com/ohowland/oad_core/internal/pkg/component/generator"
	"github.com/ohowland/oad_core/internal/pkg/component/inverter"
	"github.com/ohowland/oad_core/internal/pkg/component/motor"
	"github.com/ohowland/oad_core/internal/pkg/component/propeller"
	"github.com/ohowland/oad_core/internal/pkg/component/rectifier"
	"github.com/ohowland/oad_core/internal/pkg/component/splitter"
	"github.com/ohowland/oad_core/internal/pkg/component/turboshaft"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/solver"
	"github.com/ohowland/oad_core/internal/pkg/topology"
	"go.uber.org/zap"
)

// Options tunes an evaluation.
type Options struct {
	Solver        solver.Options
	MaxIterations int     // sizing loop iterations
	MassTolerance float64 // kg, sizing loop convergence
	Logger        *zap.Logger
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Solver:        solver.DefaultOptions(),
		MaxIterations: 20,
		MassTolerance: 0.1,
		Logger:        zap.NewNop(),
	}
}

// PowerTrain is an assembled, solvable power train.
type PowerTrain struct {
	pid      uuid.UUID
	name     string
	topology *topology.Topology
	order    []string
	reverse  []string

	components map[string]component.Component
	state      *network.State
	offsets    map[string]int // first residual of each component
	residuals  int

	opts Options
	log  *zap.Logger
}

// NewComponent instantiates the model of a component declaration.
func NewComponent(decl topology.Component) (component.Component, error) {
	switch decl.Type {
	case topology.BatteryPack:
		return battery.New(decl)
	case topology.DCBus:
		return dcbus.New(decl)
	case topology.DCCable:
		return cable.New(decl)
	case topology.DCSplitter:
		return splitter.New(decl)
	case topology.Inverter:
		return inverter.New(decl)
	case topology.Motor:
		return motor.New(decl)
	case topology.Propeller:
		return propeller.New(decl)
	case topology.Gearbox:
		return gearbox.New(decl)
	case topology.Turboshaft:
		return turboshaft.New(decl)
	case topology.FuelTank:
		return fueltank.New(decl)
	case topology.Generator:
		return generator.New(decl)
	case topology.Rectifier:
		return rectifier.New(decl)
	}
	return nil, &topology.ConfigurationError{Component: decl.ID, Reason: fmt.Sprintf("unknown component type %q", decl.Type)}
}

// Build assembles the power train described by t.
func Build(t *topology.Topology, opts Options) (*PowerTrain, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	g, err := topology.BuildGraph(t)
	if err != nil {
		return nil, &topology.ConfigurationError{Reason: err.Error()}
	}
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	reverse, err := g.ReverseOrder()
	if err != nil {
		return nil, err
	}

	p := &PowerTrain{
		pid:        t.PID(),
		name:       t.Name,
		topology:   t,
		order:      order,
		reverse:    reverse,
		components: make(map[string]component.Component, len(t.Components)),
		state:      network.NewState(),
		offsets:    make(map[string]int, len(t.Components)),
		opts:       opts,
		log:        opts.Logger.With(zap.String("powertrain", t.Name)),
	}

	for _, decl := range t.Components {
		c, err := NewComponent(decl)
		if err != nil {
			return nil, err
		}
		p.components[decl.ID] = c
	}

	nodes := make(map[string]network.Handle)
	for _, decl := range t.Components {
		if n, ok := p.components[decl.ID].(component.Node); ok {
			h, err := n.NodeRegister(p.state)
			if err != nil {
				return nil, &topology.ConfigurationError{Component: decl.ID, Reason: err.Error()}
			}
			nodes[decl.ID] = h
		}
	}

	ports := make(map[string]*network.Ports, len(t.Components))
	for _, decl := range t.Components {
		ports[decl.ID] = &network.Ports{}
	}
	for _, c := range t.Connections {
		name := c.Source + "->" + c.Target
		kind := t.Kind(c)
		shared := network.Handle{}
		if kind == topology.ElectricalDC || kind == topology.ElectricalAC {
			if h, ok := nodes[c.Target]; ok {
				shared = h
			} else if h, ok := nodes[c.Source]; ok {
				shared = h
			}
		}
		port, err := p.state.AddPort(name, kind, shared)
		if err != nil {
			return nil, &topology.ConfigurationError{Component: name, Reason: err.Error()}
		}
		out := port
		out.Peer = c.Target
		ports[c.Source].Out = append(ports[c.Source].Out, out)

		in := port
		in.Peer = c.Source
		in.Label = c.Port
		ports[c.Target].In = append(ports[c.Target].In, in)
	}

	loads := make([]*propeller.Propeller, 0)
	for _, id := range p.order {
		c := p.components[id]
		if err := c.Bind(*ports[id]); err != nil {
			return nil, &topology.ConfigurationError{Component: id, Reason: err.Error()}
		}
		p.offsets[id] = p.residuals
		p.residuals += c.NumResiduals()
		if prop, ok := c.(*propeller.Propeller); ok {
			loads = append(loads, prop)
		}
	}
	for _, prop := range loads {
		if !prop.ShareDeclared() {
			prop.SetShare(1 / float64(len(loads)))
		}
	}

	if p.residuals != p.state.Len() {
		return nil, &topology.ConfigurationError{
			Reason: fmt.Sprintf("%d equations for %d unknowns, the power train is not square", p.residuals, p.state.Len()),
		}
	}
	p.log.Debug("power train assembled",
		zap.Int("components", len(p.components)),
		zap.Int("unknowns", p.state.Len()),
		zap.Strings("order", p.order))
	return p, nil
}

// PID is the process id of the power train.
func (p *PowerTrain) PID() uuid.UUID {
	return p.pid
}

// Name is the declared power-train name.
func (p *PowerTrain) Name() string {
	return p.name
}

// Topology returns the description the power train was built from.
func (p *PowerTrain) Topology() *topology.Topology {
	return p.topology
}

// Order returns the forward evaluation order.
func (p *PowerTrain) Order() []string {
	order := make([]string, len(p.order))
	copy(order, p.order)
	return order
}

// Component returns the model of id.
func (p *PowerTrain) Component(id string) (component.Component, bool) {
	c, ok := p.components[id]
	return c, ok
}

// State returns the register vector of the power train.
func (p *PowerTrain) State() *network.State {
	return p.state
}

// Unknowns returns the number of registers solved at every point.
func (p *PowerTrain) Unknowns() int {
	return p.state.Len()
}

// System returns the residual system of the power train at one mission point.
func (p *PowerTrain) System(pt mission.Point) solver.System {
	return system{p, pt}
}

type system struct {
	p  *PowerTrain
	pt mission.Point
}

func (s system) Size() int {
	return s.p.state.Len()
}

func (s system) Bounds(i int) (float64, float64) {
	return s.p.state.Bounds(i)
}

func (s system) Residuals(x, r []float64) {
	s.p.state.Load(x)
	for _, id := range s.p.order {
		c := s.p.components[id]
		off := s.p.offsets[id]
		c.Residuals(s.pt, r[off:off+c.NumResiduals()])
	}
}

// guess seeds the registers: sources outward first, then loads inward.
func (p *PowerTrain) guess(pt mission.Point, passes ...component.Pass) {
	for _, pass := range passes {
		order := p.order
		if pass == component.Reverse {
			order = p.reverse
		}
		for _, id := range order {
			if g, ok := p.components[id].(component.Guesser); ok {
				g.Guess(pt, pass)
			}
		}
	}
}

func (p *PowerTrain) reset() {
	p.state.Reset()
	for _, id := range p.order {
		if a, ok := p.components[id].(component.Advancer); ok {
			a.Reset()
		}
	}
}
