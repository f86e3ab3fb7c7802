package topology

import "sort"

// Type is the declared archetype of a power-train component.
type Type string

// Recognized component types.
const (
	BatteryPack Type = "battery_pack"
	DCBus       Type = "dc_bus"
	DCCable     Type = "dc_cable"
	DCSplitter  Type = "dc_splitter"
	Inverter    Type = "inverter"
	Motor       Type = "motor"
	Propeller   Type = "propeller"
	Gearbox     Type = "gearbox"
	Turboshaft  Type = "turboshaft"
	FuelTank    Type = "fuel_tank"
	Generator   Type = "generator"
	Rectifier   Type = "rectifier"
)

// Kind is the physical nature of the power carried over a connection.
type Kind string

// Power flow kinds.
const (
	ElectricalDC Kind = "electrical_dc"
	ElectricalAC Kind = "electrical_ac"
	Mechanical   Kind = "mechanical"
	Fuel         Kind = "fuel"
	Thermal      Kind = "thermal"
)

// Splitter input labels.
const (
	PortPrimary   = "primary"
	PortSecondary = "secondary"
)

// PortRange describes one side of a component. An empty Kind means the side
// has no ports.
type PortRange struct {
	Kind Kind
	Min  int
	Max  int
}

// Icon is the visual metadata used when rendering power-train diagrams.
type Icon struct {
	File string `json:"File"`
	Size int    `json:"Size"`
}

// Archetype holds the static port table of a component type.
type Archetype struct {
	Type   Type
	Input  PortRange
	Output PortRange
	// Node types own a shared voltage register aliased by every attached connection.
	Node bool
	// Load types absorb propulsive power.
	Load bool
	Icon Icon
}

var archetypes = map[Type]Archetype{
	BatteryPack: {
		Type:   BatteryPack,
		Output: PortRange{ElectricalDC, 1, 1},
		Icon:   Icon{"battery.png", 40},
	},
	DCBus: {
		Type:   DCBus,
		Input:  PortRange{ElectricalDC, 1, 8},
		Output: PortRange{ElectricalDC, 1, 8},
		Node:   true,
		Icon:   Icon{"dc_bus.png", 30},
	},
	DCCable: {
		Type:   DCCable,
		Input:  PortRange{ElectricalDC, 1, 1},
		Output: PortRange{ElectricalDC, 1, 1},
		Icon:   Icon{"cable.png", 20},
	},
	DCSplitter: {
		Type:   DCSplitter,
		Input:  PortRange{ElectricalDC, 2, 2},
		Output: PortRange{ElectricalDC, 1, 1},
		Icon:   Icon{"splitter.png", 30},
	},
	Inverter: {
		Type:   Inverter,
		Input:  PortRange{ElectricalDC, 1, 1},
		Output: PortRange{ElectricalAC, 1, 1},
		Icon:   Icon{"inverter.png", 30},
	},
	Motor: {
		Type:   Motor,
		Input:  PortRange{ElectricalAC, 1, 1},
		Output: PortRange{Mechanical, 1, 1},
		Icon:   Icon{"motor.png", 40},
	},
	Propeller: {
		Type:  Propeller,
		Input: PortRange{Mechanical, 1, 1},
		Load:  true,
		Icon:  Icon{"propeller.png", 50},
	},
	Gearbox: {
		Type:   Gearbox,
		Input:  PortRange{Mechanical, 1, 1},
		Output: PortRange{Mechanical, 1, 1},
		Icon:   Icon{"gearbox.png", 30},
	},
	Turboshaft: {
		Type:   Turboshaft,
		Input:  PortRange{Fuel, 1, 1},
		Output: PortRange{Mechanical, 1, 1},
		Icon:   Icon{"turboshaft.png", 50},
	},
	FuelTank: {
		Type:   FuelTank,
		Output: PortRange{Fuel, 1, 1},
		Icon:   Icon{"fuel_tank.png", 40},
	},
	Generator: {
		Type:   Generator,
		Input:  PortRange{Mechanical, 1, 1},
		Output: PortRange{ElectricalAC, 1, 1},
		Icon:   Icon{"generator.png", 40},
	},
	Rectifier: {
		Type:   Rectifier,
		Input:  PortRange{ElectricalAC, 1, 1},
		Output: PortRange{ElectricalDC, 1, 1},
		Icon:   Icon{"rectifier.png", 30},
	},
}

// Lookup returns the archetype registered for t.
func Lookup(t Type) (Archetype, bool) {
	a, ok := archetypes[t]
	return a, ok
}

// Known reports whether t belongs to the recognized vocabulary.
func (t Type) Known() bool {
	_, ok := archetypes[t]
	return ok
}

// Types returns the recognized vocabulary in lexical order.
func Types() []Type {
	types := make([]Type, 0, len(archetypes))
	for t := range archetypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
