package ir

import (
	"fmt"
	"strings"
)

// InvokeKind distinguishes dynamically dispatched calls from direct ones.
type InvokeKind int

const (
	// VirtualInvoke dispatches on the runtime class of the receiver.
	VirtualInvoke InvokeKind = iota
	// InterfaceInvoke dispatches through an interface method.
	InterfaceInvoke
	// SpecialInvoke calls exactly the named method: constructors,
	// private methods, super calls and statically bound methods.
	SpecialInvoke
	// StaticInvoke calls a class-level method without a receiver.
	StaticInvoke
)

var invokeKindNames = [...]string{"virtualinvoke", "interfaceinvoke", "specialinvoke", "staticinvoke"}

func (k InvokeKind) String() string {
	if int(k) < len(invokeKindNames) {
		return invokeKindNames[k]
	}
	return fmt.Sprintf("InvokeKind(%d)", int(k))
}

// Dispatched reports whether calls of this kind are resolved against the
// runtime type of the receiver.
func (k InvokeKind) Dispatched() bool {
	return k == VirtualInvoke || k == InterfaceInvoke
}

// InvokeExpr is a method invocation.
type InvokeExpr struct {
	Kind   InvokeKind
	Method MethodSignature
	Base   *Local // nil for static invocations
	Args   []Value
}

// Uses returns the operands of the invocation, receiver first.
func (e *InvokeExpr) Uses() []Value {
	uses := make([]Value, 0, len(e.Args)+1)
	if e.Base != nil {
		uses = append(uses, e.Base)
	}
	return append(uses, e.Args...)
}

func (e *InvokeExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	if e.Base == nil {
		return fmt.Sprintf("%s %s(%s)", e.Kind, e.Method, strings.Join(args, ", "))
	}
	return fmt.Sprintf("%s %s.%s(%s)", e.Kind, e.Base, e.Method, strings.Join(args, ", "))
}

// Stmt is one instruction of a method body.
type Stmt interface {
	fmt.Stringer
	isStmt()
}

// AssignStmt stores the value of Right into Left.
type AssignStmt struct {
	Left  Value
	Right Expr
}

// InvokeStmt is an invocation whose result is discarded.
type InvokeStmt struct {
	Invoke *InvokeExpr
}

// ReturnStmt leaves the method, optionally with a value.
type ReturnStmt struct {
	Value Value
}

// GotoStmt transfers control to the statement at index Target.
type GotoStmt struct {
	Target int
}

func (*AssignStmt) isStmt() {}
func (*InvokeStmt) isStmt() {}
func (*ReturnStmt) isStmt() {}
func (*GotoStmt) isStmt()   {}

func (s *AssignStmt) String() string { return fmt.Sprintf("%s = %s", s.Left, s.Right) }
func (s *InvokeStmt) String() string { return s.Invoke.String() }
func (s *GotoStmt) String() string   { return fmt.Sprintf("goto %d", s.Target) }

func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// InvokeOf returns the invocation carried by s, if any.
func InvokeOf(s Stmt) (*InvokeExpr, bool) {
	switch s := s.(type) {
	case *InvokeStmt:
		return s.Invoke, true
	case *AssignStmt:
		inv, ok := s.Right.(*InvokeExpr)
		return inv, ok
	}
	return nil, false
}

// Body is the analysable code of a method.
type Body struct {
	Locals []*Local
	Stmts  []Stmt
}

// Invocations returns every invocation in the body in statement order.
func (b *Body) Invocations() []*InvokeExpr {
	var out []*InvokeExpr
	for _, s := range b.Stmts {
		if inv, ok := InvokeOf(s); ok {
			out = append(out, inv)
		}
	}
	return out
}

// ConstructedTypes returns the types instantiated by the body, either by a
// new expression or by a constructor invocation, without duplicates and in
// order of first appearance.
func (b *Body) ConstructedTypes() []ClassType {
	var out []ClassType
	seen := make(map[ClassType]bool)
	add := func(t ClassType) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, s := range b.Stmts {
		if as, ok := s.(*AssignStmt); ok {
			if n, ok := as.Right.(*NewExpr); ok {
				add(n.Type)
			}
		}
		if inv, ok := InvokeOf(s); ok && inv.Method.IsConstructor() {
			add(inv.Method.DeclaringType)
		}
	}
	return out
}
