package analysis

import "go-callgraph-precision/internal/ir"

// chaStrategy links every call site to all hierarchy-compatible targets.
type chaStrategy struct{ *run }

func (s chaStrategy) visit(caller ir.MethodSignature, body *ir.Body) []ir.MethodSignature {
	var reached []ir.MethodSignature
	for _, inv := range body.Invocations() {
		reached = append(reached, s.link(caller, s.targets(inv))...)
	}
	return reached
}

func (s chaStrategy) targets(inv *ir.InvokeExpr) []ir.MethodSignature {
	if !s.inScope(inv) {
		return nil
	}
	if !inv.Kind.Dispatched() {
		return s.direct(inv)
	}
	// No implementation anywhere in the hierarchy is a valid outcome.
	targets := s.resolver.Resolve(inv.Method, inv.Method.DeclaringType)
	if len(targets) == 0 {
		s.logger.Debug("call site has no targets", "method", inv.Method.String())
	}
	return targets
}
