package schema

import (
	"fmt"
	"strings"
)

// dependencyGraph maps a table name to the table names it references.
type dependencyGraph map[string][]string

// topoOrder rejects cyclic dependency declarations and returns the
// tables ordered with every referenced table ahead of its dependents.
// The dependency resolver recurses over declarations without a cycle
// guard, so cycles must be impossible past this point.
func topoOrder(tables []*Table, byName map[string]*Table) ([]*Table, error) {
	graph := make(dependencyGraph, len(tables))
	order := make([]string, 0, len(tables))
	for _, t := range tables {
		order = append(order, t.Name)
		refs := []string{}
		for _, dep := range t.Dependencies {
			refs = append(refs, dep.Table)
		}
		graph[t.Name] = refs
	}

	sccs := tarjanSCC(order, graph)
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			path := append(scc, scc[0])
			return nil, fmt.Errorf("schema: dependency cycle: %s", strings.Join(path, " -> "))
		}
	}

	// Tarjan emits a component only after every component it references,
	// so with all cycles excluded the flattened output is already a
	// dependency-first topological order.
	ordered := make([]*Table, 0, len(tables))
	for _, scc := range sccs {
		ordered = append(ordered, byName[scc[0]])
	}
	return ordered, nil
}

// hasSelfLoop reports whether a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's
// algorithm, visiting roots in the given order for deterministic output.
func tarjanSCC(order []string, graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}
