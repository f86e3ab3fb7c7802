/*
topology.go Declarative power-train description. A topology lists the
components of the power train, the directed power connections between them,
and the mission flown by the aircraft.
*/

package topology

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Namespace is the uuid namespace of every PID derived from a topology.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ohowland/oad_core"))

// PID derives the process id of a named object. Reloading a description
// yields the same PIDs.
func PID(name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(name))
}

// Component is one declared power-train component.
type Component struct {
	ID      string             `yaml:"id"`
	Type    Type               `yaml:"type"`
	Options map[string]float64 `yaml:"options,omitempty"`
}

// Connection is a directed power-flow link from the output of Source to the
// input of Target. Port labels the target input when the target distinguishes
// its inputs.
type Connection struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Port   string `yaml:"port,omitempty"`
}

// Topology is a validated power-train description.
type Topology struct {
	Name        string             `yaml:"name"`
	Components  []Component        `yaml:"components"`
	Connections []Connection       `yaml:"connections"`
	Mission     mission.Definition `yaml:"mission"`
}

// Load reads and validates the topology file at path.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML topology. Every inconsistency found in
// the description is reported in the returned error.
func Parse(data []byte) (*Topology, error) {
	t := &Topology{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(t); err != nil {
		return nil, configErr("", "malformed topology: %v", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// PID is the process id of the topology.
func (t *Topology) PID() uuid.UUID {
	return PID(t.Name)
}

// Types maps every component id to its declared type.
func (t *Topology) Types() map[string]Type {
	types := make(map[string]Type, len(t.Components))
	for _, c := range t.Components {
		types[c.ID] = c.Type
	}
	return types
}

// Component returns the declaration of id.
func (t *Topology) Component(id string) (Component, bool) {
	for _, c := range t.Components {
		if c.ID == id {
			return c, true
		}
	}
	return Component{}, false
}

// Kind returns the power-flow kind carried by c. It is the output kind of the
// source component.
func (t *Topology) Kind(c Connection) Kind {
	src, ok := t.Component(c.Source)
	if !ok {
		return ""
	}
	a, _ := Lookup(src.Type)
	return a.Output.Kind
}

// Inputs returns the connections ending at id, in declaration order.
func (t *Topology) Inputs(id string) []Connection {
	conns := make([]Connection, 0)
	for _, c := range t.Connections {
		if c.Target == id {
			conns = append(conns, c)
		}
	}
	return conns
}

// Outputs returns the connections starting at id, in declaration order.
func (t *Topology) Outputs(id string) []Connection {
	conns := make([]Connection, 0)
	for _, c := range t.Connections {
		if c.Source == id {
			conns = append(conns, c)
		}
	}
	return conns
}

// Validate checks the description against the type vocabulary and port tables.
func (t *Topology) Validate() error {
	var errs error
	types := make(map[string]Type, len(t.Components))

	for i, c := range t.Components {
		if c.ID == "" {
			errs = multierr.Append(errs, configErr(fmt.Sprintf("component #%d", i), "missing id"))
			continue
		}
		if _, exists := types[c.ID]; exists {
			errs = multierr.Append(errs, configErr(c.ID, "duplicate component id"))
			continue
		}
		if !c.Type.Known() {
			errs = multierr.Append(errs, configErr(c.ID, "unknown component type %q", c.Type))
		}
		types[c.ID] = c.Type
	}

	inputs := make(map[string]int)
	outputs := make(map[string]int)
	for _, c := range t.Connections {
		name := c.Source + "->" + c.Target
		srcType, srcOk := types[c.Source]
		dstType, dstOk := types[c.Target]
		if !srcOk {
			errs = multierr.Append(errs, configErr(name, "source %q is not declared", c.Source))
		}
		if !dstOk {
			errs = multierr.Append(errs, configErr(name, "target %q is not declared", c.Target))
		}
		if !srcOk || !dstOk {
			continue
		}
		if c.Source == c.Target {
			errs = multierr.Append(errs, configErr(name, "component connected to itself"))
			continue
		}
		outputs[c.Source]++
		inputs[c.Target]++

		src, ok1 := Lookup(srcType)
		dst, ok2 := Lookup(dstType)
		if !ok1 || !ok2 {
			continue // already reported as unknown type
		}
		switch {
		case src.Output.Kind == "":
			errs = multierr.Append(errs, configErr(name, "%s has no output port", srcType))
		case dst.Input.Kind == "":
			errs = multierr.Append(errs, configErr(name, "%s has no input port", dstType))
		case src.Output.Kind != dst.Input.Kind:
			errs = multierr.Append(errs, configErr(name, "incompatible kinds %s and %s", src.Output.Kind, dst.Input.Kind))
		}
		if src.Node && dst.Node {
			errs = multierr.Append(errs, configErr(name, "nodes must be joined through a cable"))
		}
		if dstType != DCSplitter && c.Port != "" {
			errs = multierr.Append(errs, configErr(name, "%s inputs are not labeled", dstType))
		}
	}

	for _, c := range t.Components {
		a, ok := Lookup(c.Type)
		if !ok {
			continue
		}
		errs = multierr.Append(errs, checkCount(c.ID, "input", inputs[c.ID], a.Input))
		errs = multierr.Append(errs, checkCount(c.ID, "output", outputs[c.ID], a.Output))
		if c.Type == DCSplitter {
			errs = multierr.Append(errs, t.checkSplitterPorts(c.ID))
		}
	}

	if err := t.Mission.Validate(); err != nil {
		errs = multierr.Append(errs, configErr("mission", "%v", err))
	}
	return errs
}

func checkCount(id, side string, n int, r PortRange) error {
	if r.Kind == "" {
		if n > 0 {
			return configErr(id, "no %s port, found %d connection(s)", side, n)
		}
		return nil
	}
	if n < r.Min || n > r.Max {
		if r.Min == r.Max {
			return configErr(id, "requires %d %s connection(s), found %d", r.Min, side, n)
		}
		return configErr(id, "requires %d to %d %s connections, found %d", r.Min, r.Max, side, n)
	}
	return nil
}

func (t *Topology) checkSplitterPorts(id string) error {
	seen := make(map[string]int)
	for _, c := range t.Inputs(id) {
		seen[c.Port]++
	}
	if seen[PortPrimary] != 1 || seen[PortSecondary] != 1 {
		return configErr(id, "splitter inputs must be labeled %q and %q exactly once", PortPrimary, PortSecondary)
	}
	return nil
}
