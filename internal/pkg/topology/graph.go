package topology

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Edge is a directed power-flow edge leaving a node.
type Edge struct {
	To   string
	Kind Kind
	Port string
}

// Graph is an adjacency list over component ids. Nodes remember their
// declaration order.
type Graph struct {
	pid            uuid.UUID
	nodes          []string
	adjacentcyList map[string][]Edge
}

// NewGraph returns an empty graph.
func NewGraph(name string) Graph {
	return Graph{PID(name), make([]string, 0), make(map[string][]Edge)}
}

// BuildGraph assembles the power-flow graph of a validated topology.
func BuildGraph(t *Topology) (Graph, error) {
	g := NewGraph(t.Name)
	for _, c := range t.Components {
		if err := g.AddNode(c.ID); err != nil {
			return g, err
		}
	}
	for _, c := range t.Connections {
		if err := g.AddDirectedEdge(c.Source, c.Target, t.Kind(c), c.Port); err != nil {
			return g, err
		}
	}
	return g, nil
}

// PID is the process id of the graph.
func (g Graph) PID() uuid.UUID {
	return g.pid
}

// AddNode appends id to the graph.
func (g *Graph) AddNode(id string) error {
	if _, exists := g.adjacentcyList[id]; exists {
		err := fmt.Sprintf("node %v already exists in graph.", id)
		return errors.New(err)
	}
	g.adjacentcyList[id] = make([]Edge, 0)
	g.nodes = append(g.nodes, id)
	return nil
}

// AddDirectedEdge links from to to.
func (g *Graph) AddDirectedEdge(from, to string, kind Kind, port string) error {
	edges, exists := g.adjacentcyList[from]
	if !exists {
		err := fmt.Sprintf("start node %v does not exist in graph.", from)
		return errors.New(err)
	}

	if _, exists := g.adjacentcyList[to]; !exists {
		err := fmt.Sprintf("end node %v does not exist in graph.", to)
		return errors.New(err)
	}

	g.adjacentcyList[from] = append(edges, Edge{to, kind, port})
	return nil
}

// Edges returns the edges leaving id.
func (g Graph) Edges(id string) []Edge {
	if edges, exists := g.adjacentcyList[id]; exists {
		return edges
	}
	return make([]Edge, 0)
}

// EdgesOfKind returns the edges leaving id that carry kind.
func (g Graph) EdgesOfKind(id string, kind Kind) []Edge {
	edges := make([]Edge, 0)
	for _, e := range g.Edges(id) {
		if e.Kind == kind {
			edges = append(edges, e)
		}
	}
	return edges
}

// Nodes returns the node ids in declaration order.
func (g Graph) Nodes() []string {
	nodes := make([]string, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

// Predecessors returns the ids with an edge into id, in declaration order.
func (g Graph) Predecessors(id string) []string {
	pred := make([]string, 0)
	for _, n := range g.nodes {
		for _, e := range g.adjacentcyList[n] {
			if e.To == id {
				pred = append(pred, n)
				break
			}
		}
	}
	return pred
}
