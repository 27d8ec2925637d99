package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-callgraph-precision/internal/analysis"
	"go-callgraph-precision/internal/callgraph"
	"go-callgraph-precision/internal/config"
	"go-callgraph-precision/internal/ir"
	"go-callgraph-precision/internal/store"
)

var (
	mainSig   = ir.NewSignature("example.com/app", "main", "void")
	areaSig   = ir.NewSignature("example.com/app.Shape", "Area", "float64")
	squareSig = ir.NewSignature("example.com/app.Square", "Area", "float64")
	circleSig = ir.NewSignature("example.com/app.Circle", "Area", "float64")
)

func sampleProgram() *ir.Program {
	p := ir.NewProgram("any")
	p.AddClass(ir.Class{Type: "example.com/app.Shape", Interface: true})
	p.AddClass(ir.Class{Type: "example.com/app.Named", Interface: true, Interfaces: []ir.ClassType{"example.com/app.Shape"}})
	p.AddClass(ir.Class{Type: "example.com/app.Base", Interfaces: []ir.ClassType{"example.com/app.Shape"}})
	p.AddClass(ir.Class{Type: "example.com/app.Square", Super: "example.com/app.Base"})
	p.AddMethod(ir.Method{Signature: areaSig})
	p.AddMethod(ir.Method{Signature: mainSig, Static: true, Body: &ir.Body{}})
	return p
}

func TestClassNodesSkipRoot(t *testing.T) {
	nodes := classNodes(sampleProgram())
	assert.Equal(t, []ClassNode{
		{Name: "example.com/app.Shape", Interface: true},
		{Name: "example.com/app.Named", Interface: true},
		{Name: "example.com/app.Base"},
		{Name: "example.com/app.Square", Super: "example.com/app.Base"},
	}, nodes)
}

func TestImplementsEdges(t *testing.T) {
	edges := implementsEdges(sampleProgram())
	assert.Equal(t, []ImplementsEdge{
		{Class: "example.com/app.Named", Interface: "example.com/app.Shape", Extends: true},
		{Class: "example.com/app.Base", Interface: "example.com/app.Shape"},
	}, edges)
}

func TestMethodNodes(t *testing.T) {
	nodes := methodNodes(sampleProgram())
	require.Len(t, nodes, 2)
	assert.Equal(t, MethodNode{
		Signature: areaSig.String(),
		Class:     "example.com/app.Shape",
		Name:      "Area",
		Return:    "float64",
	}, nodes[0])
	assert.True(t, nodes[1].Static)
	assert.True(t, nodes[1].HasBody)
}

func TestCallEdgesCarryAlgorithm(t *testing.T) {
	g := callgraph.New()
	g.AddEdge(mainSig, squareSig)
	g.AddEdge(mainSig, circleSig)

	edges := callEdges(g, analysis.RTA)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, "RTA", e.Algorithm)
		assert.Equal(t, mainSig.String(), e.Caller)
	}
	assert.Equal(t, circleSig.String(), edges[0].Callee, "edges are sorted")
}

func TestChunk(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunk(rows, 2))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, chunk(rows, 5))
	assert.Nil(t, chunk([]int{}, 3))

	parts := chunk(rows, 2)
	parts[0] = append(parts[0], 99)
	assert.Equal(t, 3, rows[2], "chunks do not share spare capacity")
}

func TestDetectModulePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("// generated\nmodule \"example.com/app\"\n\ngo 1.22\n"), 0o600))

	path, err := detectModulePath(dir)
	require.NoError(t, err)
	assert.Equal(t, "example.com/app", path)

	_, err = detectModulePath(t.TempDir())
	assert.Error(t, err)
}

func TestWriteComparison(t *testing.T) {
	cha := callgraph.New()
	cha.AddEdge(mainSig, squareSig)
	cha.AddEdge(mainSig, circleSig)
	rta := callgraph.New()
	rta.AddEdge(mainSig, squareSig)
	vta := callgraph.New()
	vta.AddEdge(mainSig, squareSig)
	ref := callgraph.New()
	ref.AddEdge(mainSig, circleSig)

	cmp := &comparison{
		graphs: map[analysis.Algorithm]*callgraph.Graph{analysis.CHA: cha, analysis.RTA: rta, analysis.VTA: vta},
		stats: map[analysis.Algorithm]analysis.Stats{
			analysis.CHA: {Algorithm: analysis.CHA, MethodsVisited: 3},
			analysis.RTA: {Algorithm: analysis.RTA, MethodsVisited: 2, OutOfScope: 1},
			analysis.VTA: {Algorithm: analysis.VTA, MethodsVisited: 2},
		},
		reference: map[analysis.Algorithm]*callgraph.Graph{analysis.VTA: ref},
	}

	var buf bytes.Buffer
	require.NoError(t, writeComparison(&buf, cmp))
	out := buf.String()

	assert.Contains(t, out, "RTA ⊆ CHA: ok")
	assert.Contains(t, out, "VTA ⊆ CHA: ok")
	assert.Contains(t, out, "VTA ⊆ RTA: ok")
	assert.Contains(t, out, "reference edges")

	_, refTable, found := strings.Cut(out, "reference edges")
	require.True(t, found)
	var vtaRef []string
	for _, l := range strings.Split(refTable, "\n") {
		if f := strings.Fields(l); len(f) > 0 && f[0] == "VTA" {
			vtaRef = f
		}
	}
	assert.Equal(t, []string{"VTA", "1", "0", "1", "1"}, vtaRef, "one edge on each side, none shared")
}

func TestWriteComparisonReportsViolations(t *testing.T) {
	cha := callgraph.New()
	cha.AddEdge(mainSig, squareSig)
	rta := callgraph.New()
	rta.AddEdge(mainSig, circleSig)

	cmp := &comparison{
		graphs: map[analysis.Algorithm]*callgraph.Graph{analysis.CHA: cha, analysis.RTA: rta},
		stats:  map[analysis.Algorithm]analysis.Stats{},
	}
	var buf bytes.Buffer
	require.NoError(t, writeComparison(&buf, cmp))

	assert.Contains(t, buf.String(), "RTA ⊆ CHA: 1 edges not in CHA")
	assert.Contains(t, buf.String(), callgraph.Edge{Caller: mainSig, Callee: circleSig}.String())
	assert.NotContains(t, buf.String(), "VTA ⊆")
}

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	storePath := filepath.Join(dir, "runs")
	cfgPath := filepath.Join(dir, "callgraph.yaml")
	body := "store:\n  path: " + storePath + "\nlogLevel: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, storePath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunsCommands(t *testing.T) {
	cfgPath, storePath := writeTestConfig(t)

	st, err := store.Open(store.DefaultConfig(storePath))
	require.NoError(t, err)
	g := callgraph.New()
	g.AddEdge(mainSig, squareSig)
	_, err = st.Save("nightly/VTA", g, analysis.Stats{Algorithm: analysis.VTA, Nodes: 2, Edges: 1, MethodsVisited: 2})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "--config", cfgPath, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "nightly/VTA")

	out, err = execute(t, "--config", cfgPath, "runs", "show", "nightly/VTA", "--edges")
	require.NoError(t, err)
	assert.Contains(t, out, "algorithm:           VTA")
	assert.Contains(t, out, "methods visited:     2")
	assert.Contains(t, out, mainSig.String()+" -> "+squareSig.String())

	_, err = execute(t, "--config", cfgPath, "runs", "delete", "nightly/VTA")
	require.NoError(t, err)

	_, err = execute(t, "--config", cfgPath, "runs", "show", "nightly/VTA")
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestSetupAppliesFlagOverrides(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	_, err := execute(t, "--config", cfgPath, "--log-level", "loud", "runs", "list")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = execute(t, "--config", cfgPath, "--dir", "", "runs", "list")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunName(t *testing.T) {
	assert.Equal(t, "latest/CHA", runName("latest", analysis.CHA))
}

func TestSelectEntryPointsKeepsScope(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tool := ir.NewSignature("example.com/apptools", "main", "void")
	provider := ir.EntryPoints{mainSig, tool}

	got := selectEntryPoints(provider, ir.PrefixScope{"example.com/app"}, logger)
	assert.Equal(t, []ir.MethodSignature{mainSig}, got)

	assert.Empty(t, selectEntryPoints(provider, ir.PrefixScope{"example.org"}, logger))
	assert.Len(t, selectEntryPoints(provider, ir.PrefixScope(nil), logger), 2)
}
