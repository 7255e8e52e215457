package reachfunc

import (
	"errors"
	"fmt"
	"go/types"
	"log/slog"
	goruntime "runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/715d/reachfunc/internal/analysis"
	"github.com/715d/reachfunc/internal/reach"
)

// defaultEntry is the function queried when no --entry override is given.
const defaultEntry = "main"

// program wraps the SSA representation of the loaded packages together with
// the reachability engine that queries it.
type program struct {
	// ssaProg is the SSA program representation
	ssaProg *ssa.Program

	// ssaPkgs maps package path to the SSA package representation
	ssaPkgs map[string]*ssa.Package

	// packages are the packages being analyzed
	packages []*packages.Package

	// core answers per-root reachability queries
	core *reach.Analysis
}

// newProgram constructs the SSA form of pkgs with generic instantiation and
// prepares the reachability engine. When useCallGraph is set, a static call
// graph is precomputed so that direct-call walks follow edges instead of
// rescanning instructions.
func newProgram(pkgs []*packages.Package, useCallGraph bool) (*program, error) {
	mode := ssa.InstantiateGenerics | ssa.BareInits

	ssaProg, ssaPkgList := ssautil.AllPackages(pkgs, mode)
	if ssaProg == nil {
		return nil, fmt.Errorf("SSA program construction failed")
	}
	ssaProg.Build()

	p := &program{
		ssaProg:  ssaProg,
		ssaPkgs:  make(map[string]*ssa.Package, len(ssaPkgList)),
		packages: pkgs,
	}
	for _, pkg := range ssaPkgList {
		if pkg != nil {
			p.ssaPkgs[pkg.Pkg.Path()] = pkg
		}
	}

	var graph *callgraph.Graph
	if useCallGraph {
		graph = static.CallGraph(ssaProg)
		slog.Debug("built static call graph", "nodes", len(graph.Nodes))
	}
	p.core = reach.New(ssaProg, graph)

	return p, nil
}

// entryFunctions resolves the named entry function in every target package.
// Non-target packages (stdlib and dependencies) are never entries.
func (p *program) entryFunctions(entryName string) []*ssa.Function {
	entries := make([]*ssa.Function, 0, 1)
	for _, origPkg := range p.packages {
		if !isTargetPackage(origPkg) {
			continue
		}
		pkg := p.ssaPkgs[origPkg.PkgPath]
		if pkg == nil {
			continue
		}
		if fn := pkg.Func(entryName); fn != nil {
			entries = append(entries, fn)
		}
	}
	return entries
}

// rootFunctions returns the SSA functions that seed their own queries in
// addition to the entry: assembly callees, CGo exports, runtime-directive
// functions and annotated roots.
func (p *program) rootFunctions(funcs map[types.Object]*analysis.FuncInfo) []*ssa.Function {
	var roots []*ssa.Function
	for obj, funcInfo := range funcs {
		if !funcInfo.IsRoot() {
			continue
		}
		if ssaFn := p.getSSAFunction(obj); ssaFn != nil {
			roots = append(roots, ssaFn)
		}
	}
	return roots
}

// markReachable runs one reachability query per root, unions the results and
// marks every FuncInfo the union covers. Returns ErrMissingEntry (wrapped)
// when entryName resolves to no function in any target package.
func (p *program) markReachable(funcs map[types.Object]*analysis.FuncInfo, nameCache *analysis.NameCache, entryName string) error {
	if entryName == "" {
		entryName = defaultEntry
	}

	entries := p.entryFunctions(entryName)
	if len(entries) == 0 {
		return fmt.Errorf("%q: %w", entryName, reach.ErrMissingEntry)
	}
	for _, fn := range entries {
		if fn.Object() != nil {
			if funcInfo, ok := funcs[fn.Object()]; ok {
				funcInfo.IsEntry = true
			}
		}
	}

	roots := entries
	seen := make(reach.Set[*ssa.Function], len(roots))
	for _, fn := range roots {
		seen.Add(fn)
	}
	for _, fn := range p.rootFunctions(funcs) {
		if seen.Add(fn) {
			roots = append(roots, fn)
		}
	}

	reachable, err := p.query(roots)
	if err != nil {
		return err
	}

	p.markExternal(funcs)
	markFuncs(funcs, reachable, nameCache)
	return nil
}

// query runs the per-root reachability queries in parallel and unions the
// resulting sets. Queries share the immutable SSA program and signature
// index, so each goroutine writes only its own slice slot.
func (p *program) query(roots []*ssa.Function) (reach.Set[*ssa.Function], error) {
	results := make([]reach.Set[*ssa.Function], len(roots))

	var wg errgroup.Group
	wg.SetLimit(goruntime.NumCPU())
	for idx, root := range roots {
		wg.Go(func() error {
			set, err := p.core.ReachableFrom(root)
			if err != nil {
				if errors.Is(err, reach.ErrMissingEntry) {
					return err
				}
				// Partial result: the query stopped at a malformed call
				// site but everything collected so far is still valid.
				slog.Warn("reachability query incomplete", "root", root.String(), "error", err)
			}
			results[idx] = set
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	union := make(reach.Set[*ssa.Function])
	for _, set := range results {
		for fn := range set {
			union.Add(fn)
		}
	}
	slog.Debug("reachability queries complete", "roots", len(roots), "reachable", len(union))
	return union, nil
}

// markExternal flags functions whose SSA form has no body, such as assembly
// implementations and linkname imports.
func (p *program) markExternal(funcs map[types.Object]*analysis.FuncInfo) {
	for obj, funcInfo := range funcs {
		if ssaFn := p.getSSAFunction(obj); ssaFn != nil && ssaFn.Blocks == nil {
			funcInfo.IsExternal = true
		}
	}
}

// markFuncs transfers the reachable set onto the FuncInfo map. Matching is by
// types.Object first, then by canonical name: generic instantiations may
// produce distinct objects for the same logical function.
func markFuncs(funcs map[types.Object]*analysis.FuncInfo, reachable reach.Set[*ssa.Function], nameCache *analysis.NameCache) {
	reachableObjs := make(map[types.Object]struct{}, len(reachable))
	reachableByName := make(map[string]struct{}, len(reachable))
	for fn := range reachable {
		obj := fn.Object()
		if obj == nil {
			continue
		}
		reachableObjs[obj] = struct{}{}
		if obj.Pkg() == nil || obj.Name() == "" {
			continue
		}
		reachableByName[nameCache.ComputeObjectName(obj)] = struct{}{}
	}

	for obj, funcInfo := range funcs {
		if _, ok := reachableObjs[obj]; ok {
			funcInfo.IsReachable = true
			continue
		}
		if obj.Pkg() == nil || obj.Name() == "" {
			continue
		}
		if _, ok := reachableByName[nameCache.ComputeObjectName(obj)]; ok {
			funcInfo.IsReachable = true
		}
	}
}

// getSSAFunction provides on-demand lookup of the SSA function for a
// types.Object. Returns nil for generic templates, which have no SSA form.
func (p *program) getSSAFunction(obj types.Object) *ssa.Function {
	if fn, ok := obj.(*types.Func); ok {
		return p.ssaProg.FuncValue(fn)
	}
	return nil
}
