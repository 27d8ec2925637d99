// Package analysis builds call graphs with Class Hierarchy Analysis (CHA),
// Rapid Type Analysis (RTA) and Variable Type Analysis (VTA).
//
// The three algorithms share the hierarchy Resolver and a single worklist
// traversal. They differ only in how one reachable method body is turned
// into call edges, which is the strategy each Algorithm selects.
//
// Omissions never abort a run: unknown methods, bodiless methods and calls
// into library types simply produce fewer edges. They are counted in Stats
// and logged so callers can audit how complete a graph is.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-callgraph-precision/internal/callgraph"
	"go-callgraph-precision/internal/ir"
)

// ErrUnknownAlgorithm is returned for algorithm names or values outside
// CHA, RTA and VTA.
var ErrUnknownAlgorithm = errors.New("unknown call graph algorithm")

// Algorithm selects the precision of a run.
type Algorithm int

const (
	CHA Algorithm = iota
	RTA
	VTA
)

// Algorithms lists every algorithm from least to most precise.
func Algorithms() []Algorithm { return []Algorithm{CHA, RTA, VTA} }

func (a Algorithm) String() string {
	switch a {
	case CHA:
		return "CHA"
	case RTA:
		return "RTA"
	case VTA:
		return "VTA"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm parses a case-insensitive algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range Algorithms() {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

func (a Algorithm) MarshalText() ([]byte, error) {
	if a < CHA || a > VTA {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, a)
	}
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Stats summarises one run.
type Stats struct {
	Algorithm      Algorithm
	EntryPoints    int
	MethodsVisited int
	// Unresolved counts entry points and invocations naming a method the
	// program view does not know. A dispatched call whose hierarchy has no
	// implementation yields no edge and is not counted.
	Unresolved int
	// MissingBodies counts reached methods without an analysable body.
	MissingBodies int
	// OutOfScope counts invocations of library types that were not expanded.
	OutOfScope int
	// UntrackedReceivers counts VTA call sites whose receiver carried no
	// type tags, typically because it flows in from a parameter.
	UntrackedReceivers int
	Nodes              int
	Edges              int
	Duration           time.Duration
}

// Recorder receives the statistics of every finished run.
type Recorder interface {
	RecordRun(stats Stats)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithScope restricts expansion to the types accepted by scope.
func WithScope(scope ir.Scope) Option {
	return func(a *Analyzer) { a.scope = scope }
}

// WithLogger sets the logger used for run summaries and skipped methods.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithRecorder forwards run statistics to r.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

// Analyzer runs call graph algorithms against one program view.
type Analyzer struct {
	view     ir.View
	scope    ir.Scope
	resolver *Resolver
	logger   *slog.Logger
	recorder Recorder
}

// New creates an Analyzer for view.
func New(view ir.View, opts ...Option) *Analyzer {
	a := &Analyzer{
		view:   view,
		scope:  ir.PrefixScope(nil),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.resolver = NewResolver(view, a.scope)
	return a
}

// Build runs alg from entries into a fresh graph.
func (a *Analyzer) Build(alg Algorithm, entries []ir.MethodSignature) (*callgraph.Graph, Stats, error) {
	g := callgraph.New()
	stats, err := a.Run(g, alg, entries)
	if err != nil {
		return nil, stats, err
	}
	return g, stats, nil
}

// Run runs alg from entries and adds the discovered nodes and edges to g.
func (a *Analyzer) Run(g *callgraph.Graph, alg Algorithm, entries []ir.MethodSignature) (Stats, error) {
	r := &run{Analyzer: a, graph: g, stats: Stats{Algorithm: alg, EntryPoints: len(entries)}}

	var s strategy
	switch alg {
	case CHA:
		s = chaStrategy{r}
	case RTA:
		s = rtaStrategy{r}
	case VTA:
		s = vtaStrategy{r}
	default:
		return Stats{}, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, alg)
	}

	start := time.Now()
	r.traverse(s, entries)
	r.stats.Duration = time.Since(start)
	r.stats.Nodes = g.NodeCount()
	r.stats.Edges = g.EdgeCount()

	a.logger.Info("call graph built",
		"algorithm", alg.String(),
		"entry_points", r.stats.EntryPoints,
		"methods", r.stats.MethodsVisited,
		"nodes", r.stats.Nodes,
		"edges", r.stats.Edges,
		"unresolved", r.stats.Unresolved,
		"missing_bodies", r.stats.MissingBodies,
		"out_of_scope", r.stats.OutOfScope,
		"untracked_receivers", r.stats.UntrackedReceivers,
		"duration", r.stats.Duration,
	)
	if a.recorder != nil {
		a.recorder.RecordRun(r.stats)
	}
	return r.stats, nil
}

// strategy turns one reachable method body into call edges.
type strategy interface {
	// visit adds the edges leaving caller and returns every callee it
	// linked to, in discovery order.
	visit(caller ir.MethodSignature, body *ir.Body) []ir.MethodSignature
}

// run is the state of one Build/Run call.
type run struct {
	*Analyzer
	graph *callgraph.Graph
	stats Stats
}

// traverse visits every method reachable from entries exactly once.
func (r *run) traverse(s strategy, entries []ir.MethodSignature) {
	visited := make(map[ir.MethodSignature]bool)
	worklist := append([]ir.MethodSignature(nil), entries...)

	for len(worklist) > 0 {
		m := worklist[0]
		worklist = worklist[1:]
		if visited[m] {
			continue
		}
		visited[m] = true

		if !r.view.MethodExists(m) {
			r.stats.Unresolved++
			r.logger.Debug("skipping unknown method", "method", m.String())
			continue
		}
		r.graph.AddNode(m)

		body, ok := r.view.Body(m)
		if !ok {
			r.stats.MissingBodies++
			r.logger.Debug("method has no body", "method", m.String())
			continue
		}
		r.stats.MethodsVisited++

		for _, callee := range s.visit(m, body) {
			if !visited[callee] && r.scope.Contains(callee.DeclaringType) {
				worklist = append(worklist, callee)
			}
		}
	}
}

// inScope reports whether inv targets analysed code, counting library calls.
func (r *run) inScope(inv *ir.InvokeExpr) bool {
	if r.scope.Contains(inv.Method.DeclaringType) {
		return true
	}
	r.stats.OutOfScope++
	return false
}

// direct resolves a call that is not dynamically dispatched.
func (r *run) direct(inv *ir.InvokeExpr) []ir.MethodSignature {
	if callee, ok := r.resolver.Lookup(inv.Method); ok {
		return []ir.MethodSignature{callee}
	}
	r.unresolved(inv)
	return nil
}

// rebound looks up inv's method once per receiver type.
func (r *run) rebound(inv *ir.InvokeExpr, types []ir.ClassType) []ir.MethodSignature {
	var out []ir.MethodSignature
	for _, t := range types {
		if callee, ok := r.resolver.Lookup(inv.Method.WithDeclaringType(t)); ok {
			out = append(out, callee)
		}
	}
	return out
}

func (r *run) unresolved(inv *ir.InvokeExpr) {
	r.stats.Unresolved++
	r.logger.Debug("unresolved invocation", "method", inv.Method.String())
}

// link adds caller -> callee for every callee and returns them.
func (r *run) link(caller ir.MethodSignature, callees []ir.MethodSignature) []ir.MethodSignature {
	for _, callee := range callees {
		r.graph.AddEdge(caller, callee)
	}
	return callees
}
