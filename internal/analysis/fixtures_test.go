package analysis

import (
	"io"
	"log/slog"

	"go-callgraph-precision/internal/ir"
)

const object ir.ClassType = "java.lang.Object"

const (
	base     ir.ClassType = "app.Base"
	mid      ir.ClassType = "app.Mid"
	leaf     ir.ClassType = "app.Leaf"
	sibling  ir.ClassType = "app.Sibling"
	greeter  ir.ClassType = "app.Greeter"
	hello    ir.ClassType = "app.Hello"
	factory  ir.ClassType = "app.Factory"
	util     ir.ClassType = "app.Util"
	mainType ir.ClassType = "app.Main"
	printer  ir.ClassType = "java.io.PrintStream"
)

var (
	baseM    = ir.NewSignature(base, "m", "void")
	leafM    = ir.NewSignature(leaf, "m", "void")
	siblingM = ir.NewSignature(sibling, "m", "void")
	greet    = ir.NewSignature(greeter, "greet", "void")
	helloG   = ir.NewSignature(hello, "greet", "void")
	makeSig  = ir.NewSignature(factory, "make", "app.Base")
	helper   = ir.NewSignature(util, "helper", "void")
	mainSig  = ir.NewSignature(mainType, "main", "void", "java.lang.String[]")
	runSig   = ir.NewSignature(mainType, "run", "void", "app.Base")
	printSig = ir.NewSignature(printer, "println", "void", "java.lang.String")
)

func ctor(t ir.ClassType) ir.MethodSignature {
	return ir.NewSignature(t, ir.ConstructorName, "void")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func returns() *ir.Body {
	return &ir.Body{Stmts: []ir.Stmt{&ir.ReturnStmt{}}}
}

func local(name string, t ir.ClassType) *ir.Local {
	return &ir.Local{Name: name, Type: t}
}

// allocate emits `l = new t; specialinvoke l.<init>()`.
func allocate(l *ir.Local, t ir.ClassType) []ir.Stmt {
	return []ir.Stmt{
		&ir.AssignStmt{Left: l, Right: &ir.NewExpr{Type: t}},
		&ir.InvokeStmt{Invoke: &ir.InvokeExpr{Kind: ir.SpecialInvoke, Method: ctor(t), Base: l}},
	}
}

func call(kind ir.InvokeKind, recv *ir.Local, sig ir.MethodSignature, args ...ir.Value) ir.Stmt {
	return &ir.InvokeStmt{Invoke: &ir.InvokeExpr{Kind: kind, Method: sig, Base: recv, Args: args}}
}

func assign(left ir.Value, right ir.Expr) ir.Stmt {
	return &ir.AssignStmt{Left: left, Right: right}
}

func body(groups ...[]ir.Stmt) *ir.Body {
	b := &ir.Body{}
	seen := make(map[*ir.Local]bool)
	for _, g := range groups {
		for _, s := range g {
			b.Stmts = append(b.Stmts, s)
			if as, ok := s.(*ir.AssignStmt); ok {
				if l, ok := as.Left.(*ir.Local); ok && !seen[l] {
					seen[l] = true
					b.Locals = append(b.Locals, l)
				}
			}
		}
	}
	return b
}

func stmts(s ...ir.Stmt) []ir.Stmt { return s }

// classHierarchy registers
//
//	Object <- Base <- Mid <- Leaf
//	          Base <- Sibling
//	Greeter <- Hello
//
// where Base, Leaf and Sibling declare m and Mid inherits it.
func classHierarchy() *ir.Program {
	p := ir.NewProgram(object)
	p.AddClass(ir.Class{Type: base})
	p.AddClass(ir.Class{Type: mid, Super: base})
	p.AddClass(ir.Class{Type: leaf, Super: mid})
	p.AddClass(ir.Class{Type: sibling, Super: base})
	p.AddClass(ir.Class{Type: greeter, Interface: true})
	p.AddClass(ir.Class{Type: hello, Interfaces: []ir.ClassType{greeter}})
	p.AddClass(ir.Class{Type: factory})
	p.AddClass(ir.Class{Type: util})
	p.AddClass(ir.Class{Type: mainType})

	for _, sig := range []ir.MethodSignature{baseM, leafM, siblingM, helloG, helper, ctor(leaf), ctor(sibling), ctor(hello)} {
		p.AddMethod(ir.Method{Signature: sig, Body: returns()})
	}
	p.AddMethod(ir.Method{Signature: greet})
	return p
}

// zooProgram is classHierarchy plus
//
//	static void main(String[] args) {
//	    Leaf l0 = new Leaf(); Base b = l0; b.m();
//	    Base s = Factory.make(); s.m();
//	    Util.helper();
//	    Hello g = new Hello(); g.greet();
//	    run(b);
//	}
//	static Base make() { return new Sibling(); }
//	static void run(Base p) { p.m(); }
func zooProgram() *ir.Program {
	p := classHierarchy()

	l0, b, s, g := local("l0", leaf), local("b", base), local("s", base), local("g", greeter)
	p.AddMethod(ir.Method{Signature: mainSig, Static: true, Body: body(
		allocate(l0, leaf),
		stmts(
			assign(b, l0),
			call(ir.VirtualInvoke, b, baseM),
			assign(s, &ir.InvokeExpr{Kind: ir.StaticInvoke, Method: makeSig}),
			call(ir.VirtualInvoke, s, baseM),
			call(ir.StaticInvoke, nil, helper),
		),
		allocate(g, hello),
		stmts(
			call(ir.InterfaceInvoke, g, greet),
			call(ir.StaticInvoke, nil, runSig, b),
			&ir.ReturnStmt{},
		),
	)})

	r := local("r", sibling)
	p.AddMethod(ir.Method{Signature: makeSig, Static: true, Body: body(
		allocate(r, sibling),
		stmts(&ir.ReturnStmt{Value: r}),
	)})

	param := local("p", base)
	p.AddMethod(ir.Method{Signature: runSig, Static: true, Body: &ir.Body{
		Locals: []*ir.Local{param},
		Stmts:  []ir.Stmt{call(ir.VirtualInvoke, param, baseM), &ir.ReturnStmt{}},
	}})
	return p
}
