package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-callgraph-precision/internal/ir"
)

func TestLookupWalksSuperclassChain(t *testing.T) {
	r := NewResolver(classHierarchy(), ir.PrefixScope{"app."})

	tests := []struct {
		name string
		sig  ir.MethodSignature
		want ir.MethodSignature
		ok   bool
	}{
		{"declared on the type", leafM, leafM, true},
		{"inherited from Base", baseM.WithDeclaringType(mid), baseM, true},
		{"stops before the root", ir.NewSignature(base, "hashCode", "int"), ir.MethodSignature{}, false},
		{"unknown type", ir.NewSignature("app.Nope", "m", "void"), ir.MethodSignature{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Lookup(tt.sig)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveThreeLevelHierarchy(t *testing.T) {
	p := ir.NewProgram(object)
	p.AddClass(ir.Class{Type: base})
	p.AddClass(ir.Class{Type: mid, Super: base})
	p.AddClass(ir.Class{Type: leaf, Super: mid})
	p.AddMethod(ir.Method{Signature: baseM, Body: returns()})
	p.AddMethod(ir.Method{Signature: leafM, Body: returns()})

	r := NewResolver(p, ir.PrefixScope(nil))

	assert.ElementsMatch(t, []ir.MethodSignature{baseM, leafM}, r.Resolve(baseM, base))

	got, ok := r.Lookup(baseM.WithDeclaringType(mid))
	require.True(t, ok)
	assert.Equal(t, baseM, got, "Mid inherits m from Base")
}

func TestResolveIncludesSiblingsAndInterfaces(t *testing.T) {
	r := NewResolver(classHierarchy(), ir.PrefixScope{"app."})

	assert.Equal(t, []ir.MethodSignature{baseM, siblingM, leafM}, r.Resolve(baseM, base))
	assert.Equal(t, []ir.MethodSignature{greet, helloG}, r.Resolve(greet, greeter))
}

func TestResolveLibraryCallIsEmpty(t *testing.T) {
	p := classHierarchy()
	p.AddClass(ir.Class{Type: printer})
	p.AddMethod(ir.Method{Signature: printSig})

	r := NewResolver(p, ir.PrefixScope{"app."})
	assert.Empty(t, r.Resolve(printSig, printer))
}

func TestResolveTerminatesOnInterfaceDiamond(t *testing.T) {
	p := ir.NewProgram(object)
	p.AddClass(ir.Class{Type: "app.I", Interface: true})
	p.AddClass(ir.Class{Type: "app.J", Interface: true, Interfaces: []ir.ClassType{"app.I"}})
	p.AddClass(ir.Class{Type: "app.K", Interface: true, Interfaces: []ir.ClassType{"app.I"}})
	p.AddClass(ir.Class{Type: "app.C", Interfaces: []ir.ClassType{"app.J", "app.K"}})
	run := ir.NewSignature("app.I", "run", "void")
	p.AddMethod(ir.Method{Signature: run})
	p.AddMethod(ir.Method{Signature: run.WithDeclaringType("app.C"), Body: returns()})

	r := NewResolver(p, ir.PrefixScope(nil))
	assert.Equal(t, []ir.MethodSignature{run, run.WithDeclaringType("app.C")}, r.Resolve(run, "app.I"))
}
