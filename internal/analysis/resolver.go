package analysis

import (
	"go-callgraph-precision/internal/ir"
)

// Resolver answers which concrete methods a call may dispatch to, using
// only the static type hierarchy.
type Resolver struct {
	view      ir.View
	hierarchy ir.TypeHierarchy
	scope     ir.Scope
}

// NewResolver creates a Resolver over view. Calls on types outside scope
// are never expanded.
func NewResolver(view ir.View, scope ir.Scope) *Resolver {
	return &Resolver{
		view:      view,
		hierarchy: view.TypeHierarchy(),
		scope:     scope,
	}
}

// Lookup finds the method that a call of sig dispatches to when the
// receiver's runtime class is sig.DeclaringType: the method declared on
// that type, or failing that on its nearest non-root superclass.
func (r *Resolver) Lookup(sig ir.MethodSignature) (ir.MethodSignature, bool) {
	root := r.hierarchy.Root()
	seen := make(map[ir.ClassType]bool)
	for t := sig.DeclaringType; !seen[t]; {
		seen[t] = true
		candidate := sig.WithDeclaringType(t)
		if r.view.MethodExists(candidate) {
			return candidate, true
		}
		super, ok := r.hierarchy.SuperclassOf(t)
		if !ok || super == root {
			break
		}
		t = super
	}
	return ir.MethodSignature{}, false
}

// Resolve returns every method a virtual call of sig may reach when the
// receiver is declared with type receiver, in breadth-first discovery
// order. The walk covers the subclasses and implementers of every visited
// type and the non-root superclasses, so ancestor declarations are found
// too. Library calls resolve to nothing.
func (r *Resolver) Resolve(sig ir.MethodSignature, receiver ir.ClassType) []ir.MethodSignature {
	if !r.scope.Contains(sig.DeclaringType) {
		return nil
	}

	root := r.hierarchy.Root()
	var targets []ir.MethodSignature
	found := make(map[ir.MethodSignature]bool)
	visited := make(map[ir.ClassType]bool)
	queue := []ir.ClassType{receiver}

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if visited[t] || t == root {
			continue
		}
		visited[t] = true

		if target, ok := r.Lookup(sig.WithDeclaringType(t)); ok && !found[target] {
			found[target] = true
			targets = append(targets, target)
		}

		queue = append(queue, r.hierarchy.SubclassesOf(t)...)
		if r.hierarchy.IsInterface(t) {
			queue = append(queue, r.hierarchy.ImplementersOf(t)...)
		}
		if super, ok := r.hierarchy.SuperclassOf(t); ok && super != root {
			queue = append(queue, super)
		}
	}
	return targets
}
