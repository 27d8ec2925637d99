package frontend

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"go-callgraph-precision/internal/analysis"
	"go-callgraph-precision/internal/ir"
)

const modulePath = "example.com/shapes"

const shapesSrc = `package main

type Shape interface{ Area() int }

type Named interface {
	Shape
	Name() string
}

type Base struct{}

func (Base) Area() int { return 0 }

type Square struct {
	Base
	side int
}

func (s *Square) Area() int { return s.side * s.side }

type Circle struct{ r int }

func (c Circle) Area() int { return 3 * c.r * c.r }

var registry Shape

func NewCircle() Shape { return &Circle{r: 1} }

func measure(s Shape) int { return s.Area() }

func main() {
	var s Shape = &Square{side: 2}
	_ = s.Area()
	c := NewCircle()
	_ = c.Area()
	registry = s
	_ = registry.Area()
	_ = measure(c)
	if sq, ok := c.(*Square); ok {
		_ = sq.Area()
	}
}
`

func class(name string) ir.ClassType { return ir.ClassType(modulePath + "." + name) }

var (
	pkgClass  = ir.ClassType(modulePath)
	shapeArea = ir.NewSignature(class("Shape"), "Area", "int")
	baseArea  = ir.NewSignature(class("Base"), "Area", "int")
	sqArea    = ir.NewSignature(class("Square"), "Area", "int")
	circArea  = ir.NewSignature(class("Circle"), "Area", "int")
	newCircle = ir.NewSignature(pkgClass, "NewCircle", modulePath+".Shape")
	measure   = ir.NewSignature(pkgClass, "measure", "int", modulePath+".Shape")
	mainFn    = ir.NewSignature(pkgClass, "main", "void")
	initFn    = ir.NewSignature(pkgClass, "init", "void")
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildSSA(t *testing.T, src string) *ssa.Program {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "shapes.go", src, 0)
	require.NoError(t, err)

	pkg := types.NewPackage(modulePath, "main")
	conf := &types.Config{Importer: importer.Default()}
	ssaPkg, _, err := ssautil.BuildPackage(conf, fset, pkg, []*ast.File{f}, ssa.InstantiateGenerics)
	require.NoError(t, err)
	return ssaPkg.Prog
}

func collect(t *testing.T) (*Collector, *ir.Program) {
	t.Helper()
	c := NewCollector(buildSSA(t, shapesSrc), modulePath, quietLogger())
	return c, c.Collect()
}

func TestCollectHierarchy(t *testing.T) {
	_, p := collect(t)

	assert.True(t, p.IsInterface(class("Shape")))
	assert.True(t, p.IsInterface(class("Named")))
	assert.Equal(t, []ir.ClassType{class("Named")}, p.SubclassesOf(class("Shape")), "embedded interfaces extend")

	super, ok := p.SuperclassOf(class("Square"))
	require.True(t, ok)
	assert.Equal(t, class("Base"), super, "first embedded struct is the superclass")

	super, ok = p.SuperclassOf(class("Circle"))
	require.True(t, ok)
	assert.Equal(t, RootType, super)

	assert.Equal(t, []ir.ClassType{class("Base"), class("Circle"), class("Square")}, p.ImplementersOf(class("Shape")))
	assert.Empty(t, p.ImplementersOf(class("Named")))
}

func TestCollectMethods(t *testing.T) {
	_, p := collect(t)

	for _, sig := range []ir.MethodSignature{baseArea, sqArea, circArea, newCircle, measure, mainFn, initFn} {
		_, ok := p.Body(sig)
		assert.True(t, ok, "body of %s", sig)
	}

	assert.True(t, p.MethodExists(shapeArea))
	_, ok := p.Body(shapeArea)
	assert.False(t, ok, "interface methods are bodiless")

	m, ok := p.Method(newCircle)
	require.True(t, ok)
	assert.True(t, m.Static)

	m, ok = p.Method(sqArea)
	require.True(t, ok)
	assert.False(t, m.Static)
}

func TestTranslateAllocationsAndGlobals(t *testing.T) {
	_, p := collect(t)

	body, ok := p.Body(newCircle)
	require.True(t, ok)
	assert.Equal(t, []ir.ClassType{class("Circle")}, body.ConstructedTypes())

	body, ok = p.Body(mainFn)
	require.True(t, ok)
	var reads, writes int
	for _, s := range body.Stmts {
		as, ok := s.(*ir.AssignStmt)
		if !ok {
			continue
		}
		if f, ok := as.Left.(*ir.StaticFieldRef); ok && f.Field == "registry" {
			writes++
		}
		if f, ok := as.Right.(*ir.StaticFieldRef); ok && f.Field == "registry" {
			reads++
		}
	}
	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, reads)

	var kinds []ir.InvokeKind
	for _, inv := range body.Invocations() {
		kinds = append(kinds, inv.Kind)
	}
	assert.Contains(t, kinds, ir.InterfaceInvoke)
	assert.Contains(t, kinds, ir.StaticInvoke)
	assert.Contains(t, kinds, ir.SpecialInvoke, "calls on concrete receivers are bound statically")
}

func TestEntryPoints(t *testing.T) {
	c, _ := collect(t)

	var provider ir.EntryPointProvider = c
	assert.Equal(t, []ir.MethodSignature{initFn, mainFn}, provider.EntryPoints())

	got, err := c.ResolveEntryPoints(modulePath+".measure", modulePath+".Square.Area")
	require.NoError(t, err)
	assert.Equal(t, ir.EntryPoints{measure, sqArea}, got)

	_, err = c.ResolveEntryPoints(modulePath + ".missing")
	assert.ErrorIs(t, err, ErrUnknownEntryPoint)

	assert.Equal(t, provider.EntryPoints(), ir.InScope(provider.EntryPoints(), c.Scope()))
}

func TestProjectPackageBoundary(t *testing.T) {
	c := NewCollector(nil, "example.com/shapes", quietLogger())

	assert.True(t, c.isProjectPackage("example.com/shapes"))
	assert.True(t, c.isProjectPackage("example.com/shapes/render"))
	assert.False(t, c.isProjectPackage("example.com/shapesextra"))
	assert.False(t, c.isProjectPackage(""))
	assert.False(t, c.Scope().Contains("example.com/shapesextra.Circle"))
	assert.True(t, c.Scope().Contains("example.com/shapes/render.Canvas"))
}

func TestAlgorithmsOnCollectedProgram(t *testing.T) {
	c, p := collect(t)
	a := analysis.New(p, analysis.WithScope(c.Scope()), analysis.WithLogger(quietLogger()))

	callees := func(alg analysis.Algorithm) []ir.MethodSignature {
		g, _, err := a.Build(alg, []ir.MethodSignature{mainFn})
		require.NoError(t, err)
		return g.Callees(mainFn)
	}

	cha := callees(analysis.CHA)
	assert.Subset(t, cha, []ir.MethodSignature{shapeArea, baseArea, circArea, sqArea, newCircle, measure})

	rta := callees(analysis.RTA)
	assert.Subset(t, rta, []ir.MethodSignature{sqArea, circArea, newCircle, measure})
	assert.NotContains(t, rta, baseArea)

	vta := callees(analysis.VTA)
	assert.Subset(t, vta, []ir.MethodSignature{sqArea, circArea, newCircle, measure})
	assert.NotContains(t, vta, baseArea)
	assert.NotContains(t, vta, shapeArea, "registry reads are tracked through the global")

	assert.Subset(t, cha, rta)
	assert.Subset(t, rta, vta)
}

func TestReferenceGraphKeepsCollectedEdges(t *testing.T) {
	c, _ := collect(t)

	for _, alg := range analysis.Algorithms() {
		t.Run(alg.String(), func(t *testing.T) {
			g, err := c.ReferenceGraph(alg, c.EntryPoints())
			require.NoError(t, err)
			assert.True(t, g.HasEdge(mainFn, newCircle))
			assert.True(t, g.HasEdge(mainFn, sqArea))
			for _, e := range g.Edges() {
				assert.True(t, c.Scope().Contains(e.Caller.DeclaringType), "caller %s", e.Caller)
			}
		})
	}
}

func TestMethodSignatureFormatting(t *testing.T) {
	sig := types.NewSignatureType(nil, nil, nil,
		types.NewTuple(types.NewVar(token.NoPos, nil, "f", types.NewSignatureType(nil, nil, nil,
			types.NewTuple(
				types.NewVar(token.NoPos, nil, "", types.Typ[types.Int]),
				types.NewVar(token.NoPos, nil, "", types.Typ[types.String]),
			), nil, false))),
		types.NewTuple(
			types.NewVar(token.NoPos, nil, "", types.Typ[types.Int]),
			types.NewVar(token.NoPos, nil, "", types.Universe.Lookup("error").Type()),
		), false)

	got := methodSignature("example.com/x", "Apply", sig)
	assert.Equal(t, []string{"func(int;string)"}, got.ParamTypes())
	assert.Equal(t, "(int;error)", got.Return)
}

func TestTranslateInstanceFields(t *testing.T) {
	_, p := collect(t)

	fieldReads := func(sig ir.MethodSignature) []string {
		body, ok := p.Body(sig)
		require.True(t, ok)
		var out []string
		for _, s := range body.Stmts {
			if as, ok := s.(*ir.AssignStmt); ok {
				if f, ok := as.Right.(*ir.InstanceFieldRef); ok {
					out = append(out, f.Field)
				}
			}
		}
		return out
	}

	assert.Contains(t, fieldReads(sqArea), "side", "loads through a field address")
	assert.Contains(t, fieldReads(circArea), "r", "reads of a struct value field")
}

const factorySrc = `package main

type Shape interface{ Area() int }

type Circle struct{ r int }

func (c Circle) Area() int { return c.r }

type Square struct{ side int }

func (s *Square) Area() int { return s.side }

type Unit int

func (u Unit) Area() int { return int(u) }

func NewCircle() (Shape, error) { return &Circle{r: 1}, nil }

func NewSquare() Shape { return &Square{side: 1} }

func main() {
	c, err := NewCircle()
	if err != nil {
		panic(err)
	}
	_ = c.Area()
	q := NewSquare()
	_ = q.Area()
}

func literals() {
	var s Shape = Circle{}
	_ = s.Area()
	var u Shape = Unit(3)
	_ = u.Area()
}
`

func TestMultiResultFactoriesAndConstants(t *testing.T) {
	c := NewCollector(buildSSA(t, factorySrc), modulePath, quietLogger())
	p := c.Collect()
	a := analysis.New(p, analysis.WithScope(c.Scope()), analysis.WithLogger(quietLogger()))

	unitArea := ir.NewSignature(class("Unit"), "Area", "int")
	literals := ir.NewSignature(pkgClass, "literals", "void")

	for _, alg := range []analysis.Algorithm{analysis.RTA, analysis.VTA} {
		t.Run(alg.String(), func(t *testing.T) {
			g, stats, err := a.Build(alg, []ir.MethodSignature{mainFn, literals})
			require.NoError(t, err)

			assert.Contains(t, g.Callees(mainFn), circArea, "first result of a (Shape, error) factory")
			assert.Contains(t, g.Callees(mainFn), sqArea)
			assert.NotContains(t, g.Callees(mainFn), shapeArea)

			assert.ElementsMatch(t, []ir.MethodSignature{circArea, unitArea}, g.Callees(literals),
				"named constants are allocations of their type")
			assert.Zero(t, stats.UntrackedReceivers)
		})
	}
}
