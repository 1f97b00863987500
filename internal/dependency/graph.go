package dependency

import "fmt"

// NodeID identifies a service within a graph.
type NodeID string

// Node is one service and the services it depends on.
type Node struct {
	ID        NodeID
	DependsOn []NodeID
}

// Graph answers dependency and dependent queries over a fixed set of
// services. It is not safe for concurrent writes.
type Graph struct {
	nodes map[NodeID]*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds or replaces a node in the graph.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	copied := n
	copied.DependsOn = append([]NodeID(nil), n.DependsOn...)
	g.nodes[n.ID] = &copied
}

// Get returns the stored node, or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Dependencies returns the immediate dependency IDs of id.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		return append([]NodeID(nil), n.DependsOn...)
	}
	return nil
}

// Dependents returns every node ID with a direct dependency on id.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if dep == id {
				res = append(res, n.ID)
				break
			}
		}
	}
	return res
}

// TopologicalSort returns node IDs in dependency order (a node always comes
// after everything it depends on), grouped into layers of nodes that could
// all start concurrently. It returns an error if the graph has a cycle.
func (g *Graph) TopologicalSort() ([][]NodeID, error) {
	remaining := make(map[NodeID][]NodeID, len(g.nodes))
	for id, n := range g.nodes {
		remaining[id] = append([]NodeID(nil), n.DependsOn...)
	}

	var layers [][]NodeID
	for len(remaining) > 0 {
		var layer []NodeID
		for id, deps := range remaining {
			if allSatisfied(deps, remaining) {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			return nil, fmt.Errorf("dependency cycle among %d remaining nodes", len(remaining))
		}
		for _, id := range layer {
			delete(remaining, id)
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func allSatisfied(deps []NodeID, remaining map[NodeID][]NodeID) bool {
	for _, d := range deps {
		if _, stillRemaining := remaining[d]; stillRemaining {
			return false
		}
	}
	return true
}
