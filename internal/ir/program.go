package ir

import (
	"sort"
)

// TypeHierarchy answers subtype queries over the class lattice. The lattice
// is acyclic apart from the universal root, which callers must not expand.
type TypeHierarchy interface {
	Root() ClassType
	SuperclassOf(t ClassType) (ClassType, bool)
	SubclassesOf(t ClassType) []ClassType
	ImplementersOf(t ClassType) []ClassType
	IsInterface(t ClassType) bool
}

// View is the read-only program oracle the engines run against.
type View interface {
	MethodExists(sig MethodSignature) bool
	// Body returns the method body, or false for unknown and bodiless
	// (abstract, native, library) methods.
	Body(sig MethodSignature) (*Body, bool)
	TypeHierarchy() TypeHierarchy
}

// Class describes one class or interface of the program.
type Class struct {
	Type ClassType
	// Super is the direct superclass. Empty means the hierarchy root.
	Super ClassType
	// Interfaces lists implemented interfaces for classes and extended
	// interfaces for interfaces.
	Interfaces []ClassType
	Interface  bool
}

// Method is a declared method. Body is nil when there is nothing to analyse.
type Method struct {
	Signature MethodSignature
	Static    bool
	Body      *Body
}

// Program is an in-memory View assembled by a frontend or by hand.
type Program struct {
	root         ClassType
	classes      map[ClassType]*Class
	classOrder   []ClassType
	methods      map[MethodSignature]*Method
	methodOrder  []MethodSignature
	subclasses   map[ClassType][]ClassType
	implementers map[ClassType][]ClassType
}

// NewProgram creates an empty program whose hierarchy is rooted at root.
func NewProgram(root ClassType) *Program {
	p := &Program{
		root:         root,
		classes:      make(map[ClassType]*Class),
		methods:      make(map[MethodSignature]*Method),
		subclasses:   make(map[ClassType][]ClassType),
		implementers: make(map[ClassType][]ClassType),
	}
	p.classes[root] = &Class{Type: root}
	p.classOrder = append(p.classOrder, root)
	return p
}

// AddClass registers c. Registering the same type twice keeps the first
// definition.
func (p *Program) AddClass(c Class) *Class {
	if existing, ok := p.classes[c.Type]; ok {
		return existing
	}
	if c.Super == "" && !c.Interface && c.Type != p.root {
		c.Super = p.root
	}
	cls := &c
	p.classes[c.Type] = cls
	p.classOrder = append(p.classOrder, c.Type)
	if c.Super != "" {
		p.subclasses[c.Super] = append(p.subclasses[c.Super], c.Type)
	}
	for _, iface := range c.Interfaces {
		if c.Interface {
			p.subclasses[iface] = append(p.subclasses[iface], c.Type)
		} else {
			p.implementers[iface] = append(p.implementers[iface], c.Type)
		}
	}
	return cls
}

// AddMethod registers m, replacing an earlier method with the same signature.
func (p *Program) AddMethod(m Method) *Method {
	if _, ok := p.methods[m.Signature]; !ok {
		p.methodOrder = append(p.methodOrder, m.Signature)
	}
	mm := &m
	p.methods[m.Signature] = mm
	return mm
}

// Class returns the class registered for t.
func (p *Program) Class(t ClassType) (*Class, bool) {
	c, ok := p.classes[t]
	return c, ok
}

// Classes returns every registered class in registration order.
func (p *Program) Classes() []*Class {
	out := make([]*Class, 0, len(p.classOrder))
	for _, t := range p.classOrder {
		out = append(out, p.classes[t])
	}
	return out
}

// Method returns the method registered for sig.
func (p *Program) Method(sig MethodSignature) (*Method, bool) {
	m, ok := p.methods[sig]
	return m, ok
}

// Methods returns every registered method in registration order.
func (p *Program) Methods() []*Method {
	out := make([]*Method, 0, len(p.methodOrder))
	for _, sig := range p.methodOrder {
		out = append(out, p.methods[sig])
	}
	return out
}

func (p *Program) MethodExists(sig MethodSignature) bool {
	_, ok := p.methods[sig]
	return ok
}

func (p *Program) Body(sig MethodSignature) (*Body, bool) {
	m, ok := p.methods[sig]
	if !ok || m.Body == nil {
		return nil, false
	}
	return m.Body, true
}

func (p *Program) TypeHierarchy() TypeHierarchy { return p }

func (p *Program) Root() ClassType { return p.root }

func (p *Program) SuperclassOf(t ClassType) (ClassType, bool) {
	c, ok := p.classes[t]
	if !ok || c.Super == "" {
		return "", false
	}
	return c.Super, true
}

func (p *Program) SubclassesOf(t ClassType) []ClassType {
	return p.subclasses[t]
}

func (p *Program) ImplementersOf(t ClassType) []ClassType {
	return p.implementers[t]
}

func (p *Program) IsInterface(t ClassType) bool {
	c, ok := p.classes[t]
	return ok && c.Interface
}

// SortSignatures orders signatures by their string form.
func SortSignatures(sigs []MethodSignature) {
	sort.Slice(sigs, func(i, j int) bool {
		return sigs[i].String() < sigs[j].String()
	})
}
