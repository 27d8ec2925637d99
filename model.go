package main

import (
	"go-callgraph-precision/internal/analysis"
	"go-callgraph-precision/internal/callgraph"
	"go-callgraph-precision/internal/ir"
)

// ClassNode represents a class or interface of the analysed program.
type ClassNode struct {
	Name      string
	Super     string // empty for interfaces and the root
	Interface bool
}

// MethodNode represents a declared method.
type MethodNode struct {
	Signature string
	Class     string
	Name      string
	Params    string
	Return    string
	Static    bool
	HasBody   bool
}

// CallEdge represents a call relationship found by one algorithm.
type CallEdge struct {
	Caller    string
	Callee    string
	Algorithm string
}

// ImplementsEdge links a class to an interface it implements, or an
// interface to one it extends.
type ImplementsEdge struct {
	Class     string
	Interface string
	Extends   bool
}

// classNodes lists every class of p except the hierarchy root.
func classNodes(p *ir.Program) []ClassNode {
	var out []ClassNode
	for _, c := range p.Classes() {
		if c.Type == p.Root() {
			continue
		}
		node := ClassNode{Name: string(c.Type), Interface: c.Interface}
		if c.Super != p.Root() {
			node.Super = string(c.Super)
		}
		out = append(out, node)
	}
	return out
}

func implementsEdges(p *ir.Program) []ImplementsEdge {
	var out []ImplementsEdge
	for _, c := range p.Classes() {
		for _, iface := range c.Interfaces {
			out = append(out, ImplementsEdge{Class: string(c.Type), Interface: string(iface), Extends: c.Interface})
		}
	}
	return out
}

func methodNodes(p *ir.Program) []MethodNode {
	methods := p.Methods()
	out := make([]MethodNode, 0, len(methods))
	for _, m := range methods {
		out = append(out, MethodNode{
			Signature: m.Signature.String(),
			Class:     string(m.Signature.DeclaringType),
			Name:      m.Signature.Name,
			Params:    m.Signature.Params,
			Return:    m.Signature.Return,
			Static:    m.Static,
			HasBody:   m.Body != nil,
		})
	}
	return out
}

// callEdges lists the edges of g in the graph's deterministic order.
func callEdges(g *callgraph.Graph, alg analysis.Algorithm) []CallEdge {
	edges := g.Edges()
	out := make([]CallEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, CallEdge{
			Caller:    e.Caller.String(),
			Callee:    e.Callee.String(),
			Algorithm: alg.String(),
		})
	}
	return out
}
