package frontend

import (
	"fmt"

	xcallgraph "golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"go-callgraph-precision/internal/analysis"
	"go-callgraph-precision/internal/callgraph"
	"go-callgraph-precision/internal/ir"
)

// ReferenceGraph builds the x/tools call graph matching alg and keeps the
// edges whose caller and callee were both collected. Edges into closures,
// wrappers and library code are dropped, so the result is comparable with a
// graph built by the analysis package.
func (c *Collector) ReferenceGraph(alg analysis.Algorithm, entries []ir.MethodSignature) (*callgraph.Graph, error) {
	var cg *xcallgraph.Graph
	switch alg {
	case analysis.CHA:
		cg = cha.CallGraph(c.prog)
	case analysis.RTA:
		roots := make([]*ssa.Function, 0, len(entries))
		for _, sig := range entries {
			if fn, ok := c.bySig[sig]; ok {
				roots = append(roots, fn)
			}
		}
		if len(roots) == 0 {
			return nil, fmt.Errorf("%w: no collected root for rta", ErrUnknownEntryPoint)
		}
		cg = rta.Analyze(roots, true).CallGraph
	case analysis.VTA:
		cg = vta.CallGraph(ssautil.AllFunctions(c.prog), nil)
	default:
		return nil, fmt.Errorf("%w: %v", analysis.ErrUnknownAlgorithm, alg)
	}

	g := callgraph.New()
	_ = xcallgraph.GraphVisitEdges(cg, func(edge *xcallgraph.Edge) error {
		caller, ok := c.funcs[edge.Caller.Func]
		if !ok {
			return nil
		}
		callee, ok := c.funcs[edge.Callee.Func]
		if !ok {
			return nil
		}
		g.AddEdge(caller, callee)
		return nil
	})
	c.logger.Debug("reference graph built", "algorithm", alg.String(), "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}
