package analysis

import (
	"slices"

	"go-callgraph-precision/internal/ir"
)

// tagNode is one value of a type assignment graph.
type tagNode struct {
	value     ir.Value
	tags      []ir.ClassType
	out       []*tagNode
	component int
}

func (n *tagNode) addTag(t ir.ClassType) {
	if !slices.Contains(n.tags, t) {
		n.tags = append(n.tags, t)
	}
}

// typeAssignmentGraph is the per-method value flow graph used by VTA.
// Nodes carry the concrete types that may reach a value; an edge a -> b
// means the value of a may flow into b.
type typeAssignmentGraph struct {
	nodes map[any]*tagNode
	order []*tagNode
	edges map[[2]*tagNode]bool
	// components holds the strongly connected components in the order
	// Tarjan's algorithm completes them, which is reverse topological.
	components [][]*tagNode
}

func newTypeAssignmentGraph() *typeAssignmentGraph {
	return &typeAssignmentGraph{
		nodes: make(map[any]*tagNode),
		edges: make(map[[2]*tagNode]bool),
	}
}

// nodeKey identifies v. Static fields are keyed by name, everything else by
// identity.
func nodeKey(v ir.Value) any {
	if f, ok := v.(*ir.StaticFieldRef); ok {
		return "static:" + f.QualifiedName()
	}
	return v
}

func (g *typeAssignmentGraph) node(v ir.Value) (*tagNode, bool) {
	n, ok := g.nodes[nodeKey(v)]
	return n, ok
}

func (g *typeAssignmentGraph) addNode(v ir.Value) *tagNode {
	key := nodeKey(v)
	if n, ok := g.nodes[key]; ok {
		return n
	}
	n := &tagNode{value: v, component: -1}
	g.nodes[key] = n
	g.order = append(g.order, n)
	return n
}

func (g *typeAssignmentGraph) tag(v ir.Value, t ir.ClassType) {
	g.addNode(v).addTag(t)
}

func (g *typeAssignmentGraph) addEdge(from, to ir.Value) {
	src, dst := g.addNode(from), g.addNode(to)
	key := [2]*tagNode{src, dst}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	src.out = append(src.out, dst)
}

func (g *typeAssignmentGraph) tagsOf(v ir.Value) []ir.ClassType {
	if n, ok := g.node(v); ok {
		return n.tags
	}
	return nil
}

func (g *typeAssignmentGraph) targetsOf(v ir.Value) []ir.Value {
	n, ok := g.node(v)
	if !ok {
		return nil
	}
	out := make([]ir.Value, len(n.out))
	for i, m := range n.out {
		out[i] = m.value
	}
	return out
}

// componentOf returns the strongly connected component id of v after
// annotateSCC.
func (g *typeAssignmentGraph) componentOf(v ir.Value) (int, bool) {
	n, ok := g.node(v)
	if !ok || n.component < 0 {
		return 0, false
	}
	return n.component, true
}

// annotateSCC assigns every node its strongly connected component with
// Tarjan's algorithm, using an explicit frame stack instead of recursion.
func (g *typeAssignmentGraph) annotateSCC() {
	type frame struct {
		node *tagNode
		next int
	}

	index := 0
	indices := make(map[*tagNode]int, len(g.order))
	lowlink := make(map[*tagNode]int, len(g.order))
	onStack := make(map[*tagNode]bool, len(g.order))
	var stack []*tagNode
	g.components = nil

	push := func(n *tagNode) {
		indices[n] = index
		lowlink[n] = index
		index++
		stack = append(stack, n)
		onStack[n] = true
	}

	for _, root := range g.order {
		if _, seen := indices[root]; seen {
			continue
		}
		push(root)
		frames := []frame{{node: root}}

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			if f.next < len(f.node.out) {
				w := f.node.out[f.next]
				f.next++
				if _, seen := indices[w]; !seen {
					push(w)
					frames = append(frames, frame{node: w})
				} else if onStack[w] {
					lowlink[f.node] = min(lowlink[f.node], indices[w])
				}
				continue
			}

			v := f.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				lowlink[parent] = min(lowlink[parent], lowlink[v])
			}
			if lowlink[v] != indices[v] {
				continue
			}

			id := len(g.components)
			var component []*tagNode
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				w.component = id
				component = append(component, w)
				if w == v {
					break
				}
			}
			g.components = append(g.components, component)
		}
	}
}

// propagate pushes tags along flow edges until every node holds the tags of
// all values that may flow into it. Members of one component end up with
// identical tag sets.
func (g *typeAssignmentGraph) propagate() {
	g.annotateSCC()

	tags := make([][]ir.ClassType, len(g.components))
	union := func(c int, ts []ir.ClassType) {
		for _, t := range ts {
			if !slices.Contains(tags[c], t) {
				tags[c] = append(tags[c], t)
			}
		}
	}
	for c, members := range g.components {
		for _, n := range members {
			union(c, n.tags)
		}
	}

	// Sources complete last, so walking backwards is a topological sweep.
	for c := len(g.components) - 1; c >= 0; c-- {
		for _, n := range g.components[c] {
			for _, m := range n.out {
				if m.component != c {
					union(m.component, tags[c])
				}
			}
		}
	}

	for c, members := range g.components {
		for _, n := range members {
			n.tags = slices.Clone(tags[c])
		}
	}
}
