package frontend

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"go-callgraph-precision/internal/ir"
)

// bodyBuilder translates the instructions of one SSA function.
//
// Only instructions that move a typed value into a register, a field or a
// global are kept: allocations, copies, casts, field and global loads and
// stores, calls and returns. Control flow is dropped because every engine is
// flow-insensitive.
type bodyBuilder struct {
	c      *Collector
	body   *ir.Body
	locals map[ssa.Value]*ir.Local
	fields map[ssa.Value]*ir.InstanceFieldRef
}

func (c *Collector) translate(fn *ssa.Function) *ir.Body {
	b := &bodyBuilder{
		c:      c,
		body:   &ir.Body{},
		locals: make(map[ssa.Value]*ir.Local),
		fields: make(map[ssa.Value]*ir.InstanceFieldRef),
	}
	for _, p := range fn.Params {
		b.local(p)
	}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			b.instr(instr)
		}
	}
	return b.body
}

func (b *bodyBuilder) instr(instr ssa.Instruction) {
	switch in := instr.(type) {
	case *ssa.Alloc:
		elem := deref(in.Type())
		if types.IsInterface(elem) {
			return
		}
		if class, ok := classOf(elem); ok {
			b.assign(b.local(in), &ir.NewExpr{Type: class})
		}
	case *ssa.UnOp:
		if in.Op != token.MUL {
			return
		}
		if g, ok := in.X.(*ssa.Global); ok {
			b.assign(b.local(in), staticField(g))
			return
		}
		if f, ok := b.field(in.X); ok {
			b.assign(b.local(in), f)
			return
		}
		b.copy(in, in.X)
	case *ssa.Store:
		var dst ir.Value
		if g, ok := in.Addr.(*ssa.Global); ok {
			dst = staticField(g)
		} else if f, ok := b.field(in.Addr); ok {
			dst = f
		}
		if dst == nil {
			b.copy(in.Addr, in.Val)
			return
		}
		if v, ok := b.operand(in.Val); ok {
			b.assign(dst, v)
		}
	case *ssa.Field:
		if f, ok := b.field(in); ok {
			b.assign(b.local(in), f)
		}
	case *ssa.MakeInterface:
		b.copy(in, in.X)
	case *ssa.ChangeType:
		b.copy(in, in.X)
	case *ssa.Phi:
		for _, edge := range in.Edges {
			b.copy(in, edge)
		}
	case *ssa.TypeAssert:
		if !in.CommaOk {
			b.cast(in, in.X, in.AssertedType)
		}
	case *ssa.Extract:
		switch tuple := in.Tuple.(type) {
		case *ssa.TypeAssert:
			if in.Index == 0 {
				b.cast(in, tuple.X, tuple.AssertedType)
			}
		case *ssa.Call:
			// Results are not told apart, so every component carries the
			// types of the whole call.
			b.copy(in, tuple)
		}
	case *ssa.Call:
		inv := b.invoke(in.Common())
		if inv == nil {
			return
		}
		if refs := in.Referrers(); refs != nil && len(*refs) > 0 {
			b.assign(b.local(in), inv)
			return
		}
		b.emit(&ir.InvokeStmt{Invoke: inv})
	case *ssa.Go:
		if inv := b.invoke(in.Common()); inv != nil {
			b.emit(&ir.InvokeStmt{Invoke: inv})
		}
	case *ssa.Defer:
		if inv := b.invoke(in.Common()); inv != nil {
			b.emit(&ir.InvokeStmt{Invoke: inv})
		}
	case *ssa.Return:
		ret := &ir.ReturnStmt{}
		if len(in.Results) > 0 {
			ret.Value = b.value(in.Results[0])
		}
		b.emit(ret)
	}
}

// invoke translates a call. Calls of closures, function values and builtins
// return nil.
func (b *bodyBuilder) invoke(common *ssa.CallCommon) *ir.InvokeExpr {
	if common.IsInvoke() {
		class, ok := classOf(common.Value.Type())
		if !ok {
			return nil
		}
		return &ir.InvokeExpr{
			Kind:   ir.InterfaceInvoke,
			Method: methodSignature(class, common.Method.Name(), common.Method.Type().(*types.Signature)),
			Base:   b.local(common.Value),
			Args:   b.values(common.Args),
		}
	}

	callee := common.StaticCallee()
	if !collectable(callee) {
		return nil
	}
	sig, ok := b.c.signatureOf(callee)
	if !ok {
		return nil
	}
	if callee.Signature.Recv() != nil && len(common.Args) > 0 {
		return &ir.InvokeExpr{
			Kind:   ir.SpecialInvoke,
			Method: sig,
			Base:   b.local(common.Args[0]),
			Args:   b.values(common.Args[1:]),
		}
	}
	return &ir.InvokeExpr{Kind: ir.StaticInvoke, Method: sig, Args: b.values(common.Args)}
}

// cast records dst = (T) src for assertions to concrete named types and a
// plain copy otherwise.
func (b *bodyBuilder) cast(dst, src ssa.Value, asserted types.Type) {
	class, ok := classOf(asserted)
	if !ok || types.IsInterface(asserted) {
		b.copy(dst, src)
		return
	}
	op, ok := b.operand(src)
	if !ok {
		return
	}
	b.assign(b.local(dst), &ir.CastExpr{Op: op, Type: class})
}

// copy records dst = src unless src carries no type information.
func (b *bodyBuilder) copy(dst, src ssa.Value) {
	if v, ok := b.operand(src); ok {
		b.assign(b.local(dst), v)
	}
}

// operand returns src as a flow source. Functions, builtins and constants
// of unnamed types are not.
func (b *bodyBuilder) operand(v ssa.Value) (ir.Value, bool) {
	switch v := v.(type) {
	case *ssa.Const:
		return b.constant(v)
	case *ssa.Function, *ssa.Builtin:
		return nil, false
	case *ssa.Global:
		return staticField(v), true
	}
	return b.local(v), true
}

// constant materialises a constant of a concrete named type, such as
// Circle{} or Unit(3), as an allocation of that type.
func (b *bodyBuilder) constant(c *ssa.Const) (ir.Value, bool) {
	if l, ok := b.locals[c]; ok {
		return l, true
	}
	named, ok := types.Unalias(c.Type()).(*types.Named)
	if !ok || c.IsNil() || types.IsInterface(named) {
		return nil, false
	}
	l := b.local(c)
	b.assign(l, &ir.NewExpr{Type: classOfNamed(named)})
	return l, true
}

// field returns the instance field read or written through v, which must be
// a field address or a struct field value. One reference is kept per SSA
// value, so a store and a load through the same address share it.
func (b *bodyBuilder) field(v ssa.Value) (*ir.InstanceFieldRef, bool) {
	if f, ok := b.fields[v]; ok {
		return f, true
	}
	var (
		x   ssa.Value
		idx int
	)
	switch v := v.(type) {
	case *ssa.FieldAddr:
		x, idx = v.X, v.Field
	case *ssa.Field:
		x, idx = v.X, v.Field
	default:
		return nil, false
	}
	if _, ok := x.(*ssa.Global); ok {
		return nil, false
	}
	st, ok := deref(x.Type()).Underlying().(*types.Struct)
	if !ok || idx >= st.NumFields() {
		return nil, false
	}
	f := &ir.InstanceFieldRef{Base: b.local(x), Field: st.Field(idx).Name()}
	b.fields[v] = f
	return f, true
}

func (b *bodyBuilder) value(v ssa.Value) ir.Value {
	if op, ok := b.operand(v); ok {
		return op
	}
	return &ir.Constant{Literal: v.String()}
}

func (b *bodyBuilder) values(vs []ssa.Value) []ir.Value {
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		out[i] = b.value(v)
	}
	return out
}

func (b *bodyBuilder) local(v ssa.Value) *ir.Local {
	if l, ok := b.locals[v]; ok {
		return l
	}
	t, ok := classOf(v.Type())
	if !ok {
		t = ir.ClassType(typeString(v.Type()))
	}
	l := &ir.Local{Name: v.Name(), Type: t}
	b.locals[v] = l
	b.body.Locals = append(b.body.Locals, l)
	return l
}

func (b *bodyBuilder) assign(left ir.Value, right ir.Expr) {
	b.emit(&ir.AssignStmt{Left: left, Right: right})
}

func (b *bodyBuilder) emit(s ir.Stmt) {
	b.body.Stmts = append(b.body.Stmts, s)
}

func staticField(g *ssa.Global) *ir.StaticFieldRef {
	return &ir.StaticFieldRef{Class: ir.ClassType(g.Pkg.Pkg.Path()), Field: g.Name()}
}
