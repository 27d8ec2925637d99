package frontend

import (
	"errors"
	"fmt"
	"go/types"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"go-callgraph-precision/internal/ir"
)

// RootType is the hierarchy root every collected class ultimately extends.
const RootType ir.ClassType = "any"

// ErrUnknownEntryPoint is returned for entry point names that do not match a
// collected function or method.
var ErrUnknownEntryPoint = errors.New("unknown entry point")

// Collector translates the project packages of an SSA program into an
// ir.Program.
type Collector struct {
	RootModule string

	prog   *ssa.Program
	logger *slog.Logger
	out    *ir.Program

	funcs  map[*ssa.Function]ir.MethodSignature
	bySig  map[ir.MethodSignature]*ssa.Function
	byName map[string]ir.MethodSignature
	mains  []ir.MethodSignature

	skipped int
}

// NewCollector creates a Collector scoped to the given root module path.
func NewCollector(prog *ssa.Program, rootModule string, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		RootModule: rootModule,
		prog:       prog,
		logger:     logger,
		out:        ir.NewProgram(RootType),
		funcs:      make(map[*ssa.Function]ir.MethodSignature),
		bySig:      make(map[ir.MethodSignature]*ssa.Function),
		byName:     make(map[string]ir.MethodSignature),
	}
}

// isProjectPackage reports whether pkgPath is the analysed module or one of
// its subpackages.
func (c *Collector) isProjectPackage(pkgPath string) bool {
	return pkgPath != "" && (pkgPath == c.RootModule || strings.HasPrefix(pkgPath, c.RootModule+"/"))
}

// Scope limits call expansion to the analysed module.
func (c *Collector) Scope() ir.PrefixScope {
	return ir.PrefixScope{c.RootModule}
}

// Program returns the program collected so far.
func (c *Collector) Program() *ir.Program { return c.out }

// Collect runs every collection pass and returns the resulting program.
func (c *Collector) Collect() *ir.Program {
	c.CollectTypes()
	c.CollectFunctions()

	var bodies int
	for _, m := range c.out.Methods() {
		if m.Body != nil {
			bodies++
		}
	}
	c.logger.Info("collected program",
		"module", c.RootModule,
		"classes", len(c.out.Classes()),
		"methods", len(c.out.Methods()),
		"bodies", bodies,
		"skipped_functions", c.skipped,
	)
	return c.out
}

// projectPackages returns the SSA packages of the module ordered by path.
func (c *Collector) projectPackages() []*ssa.Package {
	var out []*ssa.Package
	for _, pkg := range c.prog.AllPackages() {
		if c.isProjectPackage(pkg.Pkg.Path()) {
			out = append(out, pkg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pkg.Path() < out[j].Pkg.Path() })
	return out
}

func memberNames(pkg *ssa.Package) []string {
	names := make([]string, 0, len(pkg.Members))
	for name := range pkg.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type namedType struct {
	class ir.ClassType
	named *types.Named
}

// CollectTypes registers the named types of the module as classes and
// interfaces together with their declared methods.
func (c *Collector) CollectTypes() {
	var ifaces, concretes []namedType
	for _, pkg := range c.projectPackages() {
		for _, name := range memberNames(pkg) {
			mem, ok := pkg.Members[name].(*ssa.Type)
			if !ok {
				continue
			}
			named, ok := mem.Type().(*types.Named)
			if !ok || named.TypeParams().Len() > 0 {
				continue
			}
			nt := namedType{class: classOfNamed(named), named: named}
			if types.IsInterface(named) {
				ifaces = append(ifaces, nt)
			} else {
				concretes = append(concretes, nt)
			}
		}
	}

	// Check T and *T against every non-empty interface.
	implements := make(map[ir.ClassType][]ir.ClassType)
	for _, concrete := range concretes {
		ptr := types.NewPointer(concrete.named)
		for _, iface := range ifaces {
			it := iface.named.Underlying().(*types.Interface)
			if it.NumMethods() == 0 {
				continue
			}
			if types.Implements(concrete.named, it) || types.Implements(ptr, it) {
				implements[concrete.class] = append(implements[concrete.class], iface.class)
			}
		}
	}

	for _, iface := range ifaces {
		it := iface.named.Underlying().(*types.Interface)
		c.out.AddClass(ir.Class{
			Type:       iface.class,
			Interface:  true,
			Interfaces: c.embeddedInterfaces(it),
		})
		for i := 0; i < it.NumExplicitMethods(); i++ {
			m := it.ExplicitMethod(i)
			c.out.AddMethod(ir.Method{
				Signature: methodSignature(iface.class, m.Name(), m.Type().(*types.Signature)),
			})
		}
	}

	for _, concrete := range concretes {
		c.out.AddClass(ir.Class{
			Type:       concrete.class,
			Super:      c.superclassOf(concrete.named),
			Interfaces: implements[concrete.class],
		})
		for i := 0; i < concrete.named.NumMethods(); i++ {
			if fn := c.prog.FuncValue(concrete.named.Method(i)); fn != nil {
				c.addFunction(fn)
			}
		}
	}
}

// superclassOf returns the first embedded struct of the module, which
// supplies the promoted methods of named.
func (c *Collector) superclassOf(named *types.Named) ir.ClassType {
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return ""
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		embedded, ok := types.Unalias(deref(f.Type())).(*types.Named)
		if !ok || embedded.TypeArgs().Len() > 0 || embedded.Obj().Pkg() == nil {
			continue
		}
		if _, isStruct := embedded.Underlying().(*types.Struct); !isStruct {
			continue
		}
		if c.isProjectPackage(embedded.Obj().Pkg().Path()) {
			return classOfNamed(embedded)
		}
	}
	return ""
}

func (c *Collector) embeddedInterfaces(it *types.Interface) []ir.ClassType {
	var out []ir.ClassType
	for i := 0; i < it.NumEmbeddeds(); i++ {
		named, ok := types.Unalias(it.EmbeddedType(i)).(*types.Named)
		if !ok || named.Obj().Pkg() == nil || !types.IsInterface(named) {
			continue
		}
		if c.isProjectPackage(named.Obj().Pkg().Path()) {
			out = append(out, classOfNamed(named))
		}
	}
	return out
}

// CollectFunctions registers the package-level functions of the module on
// one pseudo class per package and records the entry points of main
// packages.
func (c *Collector) CollectFunctions() {
	for _, pkg := range c.projectPackages() {
		c.out.AddClass(ir.Class{Type: ir.ClassType(pkg.Pkg.Path())})
		for _, name := range memberNames(pkg) {
			if fn, ok := pkg.Members[name].(*ssa.Function); ok {
				c.addFunction(fn)
			}
		}
		if pkg.Pkg.Name() != "main" {
			continue
		}
		for _, name := range []string{"init", "main"} {
			if sig, ok := c.funcs[pkg.Func(name)]; ok {
				c.mains = append(c.mains, sig)
			}
		}
	}

	// init#N functions and generic instances are not package members.
	var extra []*ssa.Function
	for fn := range ssautil.AllFunctions(c.prog) {
		if _, done := c.funcs[fn]; !done && c.isProjectPackage(pkgPathOf(fn)) {
			extra = append(extra, fn)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].String() < extra[j].String() })
	for _, fn := range extra {
		c.addFunction(fn)
	}
}

func (c *Collector) addFunction(fn *ssa.Function) {
	if _, done := c.funcs[fn]; done {
		return
	}
	if !collectable(fn) {
		c.skipped++
		return
	}
	sig, ok := c.signatureOf(fn)
	if !ok {
		c.skipped++
		return
	}
	c.funcs[fn] = sig
	c.bySig[sig] = fn
	c.byName[buildSSAFuncName(fn)] = sig

	m := ir.Method{Signature: sig, Static: fn.Signature.Recv() == nil}
	if len(fn.Blocks) > 0 && c.isProjectPackage(pkgPathOf(fn)) {
		m.Body = c.translate(fn)
	}
	c.out.AddMethod(m)
}

var _ ir.EntryPointProvider = (*Collector)(nil)

// EntryPoints returns init and main of every main package in the module.
func (c *Collector) EntryPoints() []ir.MethodSignature {
	return append([]ir.MethodSignature(nil), c.mains...)
}

// ResolveEntryPoints resolves names of the form pkgpath.Func or
// pkgpath.Type.Method, in order.
func (c *Collector) ResolveEntryPoints(names ...string) (ir.EntryPoints, error) {
	out := make(ir.EntryPoints, 0, len(names))
	for _, name := range names {
		sig, ok := c.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEntryPoint, name)
		}
		out = append(out, sig)
	}
	return out, nil
}

// collectable reports whether fn is a source-level function or method the
// engines can analyse. Closures, generic bodies, wrappers and methods of
// generic types are left out.
func collectable(fn *ssa.Function) bool {
	switch {
	case fn == nil, fn.Parent() != nil, fn.TypeParams().Len() > 0:
		return false
	case fn.Synthetic != "" && fn.Synthetic != "package initializer" && fn.Origin() == nil:
		return false
	}
	if recv := fn.Signature.Recv(); recv != nil {
		named, ok := types.Unalias(deref(recv.Type())).(*types.Named)
		if !ok || named.TypeArgs().Len() > 0 || named.TypeParams().Len() > 0 {
			return false
		}
	}
	return true
}

// signatureOf maps fn onto the class that declares it: the receiver's named
// type for methods, the package pseudo class for functions.
func (c *Collector) signatureOf(fn *ssa.Function) (ir.MethodSignature, bool) {
	if recv := fn.Signature.Recv(); recv != nil {
		class, ok := classOf(recv.Type())
		if !ok {
			return ir.MethodSignature{}, false
		}
		return methodSignature(class, fn.Name(), fn.Signature), true
	}
	path := pkgPathOf(fn)
	if path == "" {
		return ir.MethodSignature{}, false
	}
	return methodSignature(ir.ClassType(path), fn.Name(), fn.Signature), true
}

// buildSSAFuncName derives pkgpath.Func or pkgpath.Type.Method for fn, the
// form accepted by ResolveEntryPoints.
func buildSSAFuncName(fn *ssa.Function) string {
	pkgPath := pkgPathOf(fn)
	if pkgPath == "" {
		return fn.String()
	}
	if recv := fn.Signature.Recv(); recv != nil {
		if named, ok := types.Unalias(deref(recv.Type())).(*types.Named); ok {
			return pkgPath + "." + named.Obj().Name() + "." + fn.Name()
		}
	}
	return pkgPath + "." + fn.Name()
}

func pkgPathOf(fn *ssa.Function) string {
	if fn.Pkg != nil {
		return fn.Pkg.Pkg.Path()
	}
	if origin := fn.Origin(); origin != nil && origin.Pkg != nil {
		return origin.Pkg.Pkg.Path()
	}
	if obj := fn.Object(); obj != nil && obj.Pkg() != nil {
		return obj.Pkg().Path()
	}
	return ""
}

func methodSignature(class ir.ClassType, name string, sig *types.Signature) ir.MethodSignature {
	params := make([]string, sig.Params().Len())
	for i := range params {
		params[i] = typeString(sig.Params().At(i).Type())
	}
	return ir.NewSignature(class, name, returnString(sig.Results()), params...)
}

func returnString(results *types.Tuple) string {
	switch results.Len() {
	case 0:
		return "void"
	case 1:
		return typeString(results.At(0).Type())
	}
	parts := make([]string, results.Len())
	for i := range parts {
		parts[i] = typeString(results.At(i).Type())
	}
	return "(" + strings.Join(parts, ";") + ")"
}

// typeString renders t with full package paths. Signature parts are comma
// separated, so commas inside composite types are replaced.
func typeString(t types.Type) string {
	return strings.ReplaceAll(types.TypeString(t, nil), ", ", ";")
}

func deref(t types.Type) types.Type {
	if p, ok := types.Unalias(t).(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

func classOfNamed(named *types.Named) ir.ClassType {
	obj := named.Obj()
	if obj.Pkg() == nil {
		return ir.ClassType(obj.Name())
	}
	return ir.ClassType(obj.Pkg().Path() + "." + obj.Name())
}

// classOf returns the class of a named type or a pointer to one.
func classOf(t types.Type) (ir.ClassType, bool) {
	named, ok := types.Unalias(deref(t)).(*types.Named)
	if !ok {
		return "", false
	}
	return classOfNamed(named), true
}
