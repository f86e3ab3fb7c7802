package topology

import "strings"

// VariablePrefix roots every power-train variable path.
const VariablePrefix = "data:propulsion:he_power_train"

// VariableName is the full dotted path of a component variable.
func VariableName(t Type, id, name string) string {
	return strings.Join([]string{VariablePrefix, string(t), id, name}, ":")
}

// MassVariables lists the mass output variable of every component, in
// declaration order.
func (t *Topology) MassVariables() []string {
	names := make([]string, 0, len(t.Components))
	for _, c := range t.Components {
		names = append(names, VariableName(c.Type, c.ID, "mass"))
	}
	return names
}

// CriticalPath maps each propulsive load to the components that deliver power
// to it, in forward evaluation order, the load included.
func (t *Topology) CriticalPath() (map[string][]string, error) {
	g, err := BuildGraph(t)
	if err != nil {
		return nil, err
	}
	order, err := g.Order()
	if err != nil {
		return nil, err
	}

	paths := make(map[string][]string)
	for _, c := range t.Components {
		a, _ := Lookup(c.Type)
		if !a.Load {
			continue
		}
		upstream := map[string]bool{c.ID: true}
		stack := []string{c.ID}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, p := range g.Predecessors(n) {
				if !upstream[p] {
					upstream[p] = true
					stack = append(stack, p)
				}
			}
		}
		path := make([]string, 0, len(upstream))
		for _, id := range order {
			if upstream[id] {
				path = append(path, id)
			}
		}
		paths[c.ID] = path
	}
	return paths, nil
}

// Icons maps every component id to its diagram icon.
func (t *Topology) Icons() map[string]Icon {
	icons := make(map[string]Icon, len(t.Components))
	for _, c := range t.Components {
		a, _ := Lookup(c.Type)
		icons[c.ID] = a.Icon
	}
	return icons
}
