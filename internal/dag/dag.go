// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed graph ordering and cycle detection. The
// module table uses it to reject dependency cycles that are not declared
// circular, and the action graph uses it to order compile and link steps.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle lists one cycle as a closed path: the first node is repeated
		// at the end (e.g. A, B, A).
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Nodes are identified by string keys. An edge from A to B means A must
	// be handled before B.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors (nodes that depend on it).
		adjacency map[string][]string
		// reverse maps each node to its incoming neighbors (nodes it depends on).
		reverse map[string][]string
		// edges suppresses duplicate edges.
		edges map[[2]string]bool
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		reverse:   make(map[string][]string),
		edges:     make(map[[2]string]bool),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" comes before "to".
// Both nodes are implicitly added if they don't exist. Repeated edges are
// recorded once.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]string{from, to}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.adjacency[from] = append(g.adjacency[from], to)
	g.reverse[to] = append(g.reverse[to], from)
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool { return g.nodeSet[name] }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Dependencies returns the nodes with an edge into name, in insertion order.
func (g *Graph) Dependencies(name string) []string {
	return append([]string(nil), g.reverse[name]...)
}

// Dependents returns the nodes name has an edge to, in insertion order.
func (g *Graph) Dependents(name string) []string {
	return append([]string(nil), g.adjacency[name]...)
}

// TopologicalSort returns a valid order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = len(g.reverse[node])
	}

	// Seed the queue with nodes that have no incoming edges, in insertion order.
	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		remaining := make(map[string]bool)
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				remaining[node] = true
			}
		}
		return nil, &CycleError{Cycle: g.findCycle(remaining)}
	}

	return result, nil
}

// findCycle walks the nodes Kahn's algorithm could not place and returns one
// closed cycle among them. Every such node has an incoming edge from another
// remaining node, so following those edges backwards must revisit a node.
func (g *Graph) findCycle(remaining map[string]bool) []string {
	var start string
	for _, node := range g.nodes {
		if remaining[node] {
			start = node
			break
		}
	}

	seen := make(map[string]int)
	var path []string
	node := start
	for {
		if idx, ok := seen[node]; ok {
			cycle := path[idx:]
			// path was built following reverse edges; flip it into edge order.
			out := make([]string, 0, len(cycle)+1)
			for i := len(cycle) - 1; i >= 0; i-- {
				out = append(out, cycle[i])
			}
			return append(out, out[0])
		}
		seen[node] = len(path)
		path = append(path, node)
		for _, prev := range g.reverse[node] {
			if remaining[prev] {
				node = prev
				break
			}
		}
	}
}
