package analysis

import (
	"slices"

	"go-callgraph-precision/internal/ir"
)

// declaringClasses maps a local to the concrete types known to have been
// instantiated into it, in order of discovery. One map lives for exactly
// one method visit.
type declaringClasses map[*ir.Local][]ir.ClassType

func (d declaringClasses) record(l *ir.Local, t ir.ClassType) {
	if !slices.Contains(d[l], t) {
		d[l] = append(d[l], t)
	}
}

func (d declaringClasses) copy(from, to *ir.Local) {
	for _, t := range d[from] {
		d.record(to, t)
	}
}

// rtaStrategy restricts virtual calls to the types observed to be
// allocated into the receiver within the calling method.
type rtaStrategy struct{ *run }

func (s rtaStrategy) visit(caller ir.MethodSignature, body *ir.Body) []ir.MethodSignature {
	declared := make(declaringClasses)
	var reached []ir.MethodSignature

	for _, stmt := range body.Stmts {
		switch st := stmt.(type) {
		case *ir.AssignStmt:
			left, _ := st.Left.(*ir.Local)
			switch right := st.Right.(type) {
			case *ir.NewExpr:
				if left != nil {
					declared.record(left, right.Type)
				}
			case *ir.Local:
				if left != nil {
					declared.copy(right, left)
				}
			case *ir.CastExpr:
				if op, ok := right.Op.(*ir.Local); ok && left != nil {
					declared.copy(op, left)
				}
			case *ir.InvokeExpr:
				if right.Kind == ir.StaticInvoke && left != nil {
					for _, t := range constructedBy(s.run, right.Method) {
						declared.record(left, t)
					}
				}
				reached = append(reached, s.link(caller, s.targets(right, declared))...)
			}
		case *ir.InvokeStmt:
			inv := st.Invoke
			if inv.Method.IsConstructor() && inv.Base != nil {
				declared.record(inv.Base, inv.Method.DeclaringType)
			}
			reached = append(reached, s.link(caller, s.targets(inv, declared))...)
		}
	}
	return reached
}

func (s rtaStrategy) targets(inv *ir.InvokeExpr, declared declaringClasses) []ir.MethodSignature {
	if !s.inScope(inv) {
		return nil
	}
	if inv.Kind.Dispatched() && inv.Base != nil {
		if types := declared[inv.Base]; len(types) > 0 {
			return s.rebound(inv, types)
		}
	}
	return s.direct(inv)
}

// constructedBy resolves a static factory and lists the types its body
// instantiates. Only the factory itself is inspected, not its callees.
func constructedBy(r *run, method ir.MethodSignature) []ir.ClassType {
	if !r.scope.Contains(method.DeclaringType) {
		return nil
	}
	target, ok := r.resolver.Lookup(method)
	if !ok {
		return nil
	}
	body, ok := r.view.Body(target)
	if !ok {
		return nil
	}
	return body.ConstructedTypes()
}
