package analysis

import (
	"slices"

	"go-callgraph-precision/internal/ir"
)

// vtaStrategy resolves virtual calls against the types that flow into the
// receiver inside the calling method. Receivers fed only by parameters or
// other untracked sources get no tags and therefore no edge.
type vtaStrategy struct{ *run }

func (s vtaStrategy) visit(caller ir.MethodSignature, body *ir.Body) []ir.MethodSignature {
	tag := s.buildTAG(body)
	tag.propagate()

	var reached []ir.MethodSignature
	for _, inv := range body.Invocations() {
		if inv.Method.IsConstructor() || !s.inScope(inv) {
			continue
		}
		if !inv.Kind.Dispatched() || inv.Base == nil {
			reached = append(reached, s.link(caller, s.direct(inv))...)
			continue
		}
		types := receiverTags(tag, inv.Base)
		if len(types) == 0 {
			s.stats.UntrackedReceivers++
			s.logger.Debug("receiver carries no type tags",
				"caller", caller.String(), "method", inv.Method.String(), "receiver", inv.Base.String())
			continue
		}
		reached = append(reached, s.link(caller, s.rebound(inv, types))...)
	}
	return reached
}

// buildTAG records allocation, copy, factory, cast and field flows of the
// body's assignments.
func (s vtaStrategy) buildTAG(body *ir.Body) *typeAssignmentGraph {
	g := newTypeAssignmentGraph()
	for _, stmt := range body.Stmts {
		as, ok := stmt.(*ir.AssignStmt)
		if !ok {
			continue
		}
		g.addNode(as.Left)
		switch right := as.Right.(type) {
		case *ir.NewExpr:
			g.tag(as.Left, right.Type)
		case *ir.Local:
			g.addEdge(right, as.Left)
		case *ir.InvokeExpr:
			if right.Kind == ir.StaticInvoke {
				for _, t := range constructedBy(s.run, right.Method) {
					g.tag(as.Left, t)
				}
			}
		case *ir.CastExpr:
			g.tag(as.Left, right.Type)
			g.addEdge(right.Op, as.Left)
		case *ir.StaticFieldRef, *ir.InstanceFieldRef:
			g.addEdge(right.(ir.Value), as.Left)
		}
	}
	return g
}

// receiverTags collects the tags of base and of every value base flows into.
func receiverTags(g *typeAssignmentGraph, base *ir.Local) []ir.ClassType {
	out := slices.Clone(g.tagsOf(base))
	for _, target := range g.targetsOf(base) {
		for _, t := range g.tagsOf(target) {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}
