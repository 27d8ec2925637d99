// Package callgraph holds the call graph produced by one analysis run: a
// directed graph whose nodes are method signatures and whose edges mean
// "caller may invoke callee".
//
// Every mutation is an insert-if-absent, so adding a node or edge twice
// leaves the graph unchanged. A Graph is safe for concurrent use.
package callgraph

import (
	"sort"
	"sync"

	"go-callgraph-precision/internal/ir"
)

// Edge is a (caller, callee) pair.
type Edge struct {
	Caller ir.MethodSignature
	Callee ir.MethodSignature
}

func (e Edge) String() string {
	return e.Caller.String() + " -> " + e.Callee.String()
}

// Node is the record kept for every method in the graph.
type Node struct {
	Signature ir.MethodSignature
	callees   []ir.MethodSignature
	callers   []ir.MethodSignature
}

// Graph is a mutable call graph.
type Graph struct {
	mu    sync.RWMutex
	nodes map[ir.MethodSignature]*Node
	edges map[Edge]struct{}
	order []ir.MethodSignature
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[ir.MethodSignature]*Node),
		edges: make(map[Edge]struct{}),
	}
}

// HasNode reports whether sig is a node of g.
func (g *Graph) HasNode(sig ir.MethodSignature) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[sig]
	return ok
}

// AddNode adds sig and reports whether it was new.
func (g *Graph) AddNode(sig ir.MethodSignature) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, added := g.addNodeLocked(sig)
	return added
}

func (g *Graph) addNodeLocked(sig ir.MethodSignature) (*Node, bool) {
	if n, ok := g.nodes[sig]; ok {
		return n, false
	}
	n := &Node{Signature: sig}
	g.nodes[sig] = n
	g.order = append(g.order, sig)
	return n, true
}

// HasEdge reports whether caller -> callee is an edge of g.
func (g *Graph) HasEdge(caller, callee ir.MethodSignature) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edges[Edge{caller, callee}]
	return ok
}

// AddEdge adds caller -> callee, creating missing endpoint nodes, and
// reports whether the edge was new.
func (g *Graph) AddEdge(caller, callee ir.MethodSignature) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := Edge{caller, callee}
	if _, ok := g.edges[e]; ok {
		return false
	}
	from, _ := g.addNodeLocked(caller)
	to, _ := g.addNodeLocked(callee)
	g.edges[e] = struct{}{}
	from.callees = append(from.callees, callee)
	to.callers = append(to.callers, caller)
	return true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Nodes returns all nodes sorted by signature.
func (g *Graph) Nodes() []ir.MethodSignature {
	g.mu.RLock()
	out := append([]ir.MethodSignature(nil), g.order...)
	g.mu.RUnlock()
	ir.SortSignatures(out)
	return out
}

// Edges returns all edges sorted by caller, then callee.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	out := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	g.mu.RUnlock()
	sortEdges(out)
	return out
}

// Callees returns the direct callees of sig in insertion order.
func (g *Graph) Callees(sig ir.MethodSignature) []ir.MethodSignature {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.nodes[sig]; ok {
		return append([]ir.MethodSignature(nil), n.callees...)
	}
	return nil
}

// Callers returns the direct callers of sig in insertion order.
func (g *Graph) Callers(sig ir.MethodSignature) []ir.MethodSignature {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.nodes[sig]; ok {
		return append([]ir.MethodSignature(nil), n.callers...)
	}
	return nil
}

// Missing returns the edges of g that other lacks, sorted.
func (g *Graph) Missing(other *Graph) []Edge {
	var out []Edge
	for _, e := range g.Edges() {
		if !other.HasEdge(e.Caller, e.Callee) {
			out = append(out, e)
		}
	}
	return out
}

// SubgraphOf reports whether every edge of g is also an edge of other.
func (g *Graph) SubgraphOf(other *Graph) bool {
	return len(g.Missing(other)) == 0
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		ci, cj := edges[i].Caller.String(), edges[j].Caller.String()
		if ci != cj {
			return ci < cj
		}
		return edges[i].Callee.String() < edges[j].Callee.String()
	})
}
