package ir

import "fmt"

// Value is an operand of a statement.
//
// Values are compared by identity: the same *Local pointer is one variable,
// two distinct pointers are two variables even when they print the same.
// Static field references are the exception, see StaticFieldRef.
type Value interface {
	Expr
	isValue()
}

// Expr is the right-hand side of an assignment.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// Local is a method-local variable.
type Local struct {
	Name string
	Type ClassType
}

// StaticFieldRef reads or writes a class-level field. Two references to the
// same qualified field denote the same storage.
type StaticFieldRef struct {
	Class ClassType
	Field string
}

// QualifiedName identifies the referenced field.
func (f *StaticFieldRef) QualifiedName() string {
	return string(f.Class) + "." + f.Field
}

// InstanceFieldRef reads or writes a field of an object held in a local.
type InstanceFieldRef struct {
	Base  *Local
	Field string
}

// Constant is a literal operand.
type Constant struct {
	Literal string
}

// NewExpr allocates an instance of Type.
type NewExpr struct {
	Type ClassType
}

// CastExpr converts Op to Type.
type CastExpr struct {
	Op   Value
	Type ClassType
}

func (*Local) isValue()            {}
func (*StaticFieldRef) isValue()   {}
func (*InstanceFieldRef) isValue() {}
func (*Constant) isValue()         {}

func (*Local) isExpr()            {}
func (*StaticFieldRef) isExpr()   {}
func (*InstanceFieldRef) isExpr() {}
func (*Constant) isExpr()         {}
func (*NewExpr) isExpr()          {}
func (*CastExpr) isExpr()         {}
func (*InvokeExpr) isExpr()       {}

func (l *Local) String() string            { return l.Name }
func (f *StaticFieldRef) String() string   { return "<" + f.QualifiedName() + ">" }
func (f *InstanceFieldRef) String() string { return f.Base.Name + ".<" + f.Field + ">" }
func (c *Constant) String() string         { return c.Literal }
func (n *NewExpr) String() string          { return "new " + string(n.Type) }
func (c *CastExpr) String() string         { return fmt.Sprintf("(%s) %s", c.Type, c.Op) }
