package reachfunc

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"maps"
	goruntime "runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"github.com/715d/reachfunc/internal/analysis"
	"github.com/715d/reachfunc/pkg/assembly"
	"github.com/715d/reachfunc/pkg/mark"
	"github.com/715d/reachfunc/pkg/runtime"
)

// AnalyzerOptions holds configuration options for the analyzer.
type AnalyzerOptions struct {
	// Entry names the function each query starts from. Empty means "main".
	Entry string

	// UseCallGraph precomputes a static call graph before querying.
	UseCallGraph bool
}

// Analyzer orchestrates reachability analysis over loaded packages.
type Analyzer struct {
	marks     *mark.Checker
	nameCache *analysis.NameCache
	opts      AnalyzerOptions
}

// NewAnalyzer creates a new analyzer with the given options.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	return &Analyzer{
		marks:     mark.NewChecker(),
		nameCache: analysis.NewNameCache(),
		opts:      opts,
	}
}

// Analyze computes reachability for every function defined in pkgs. The
// returned map covers all defined functions and methods; each FuncInfo
// records whether some query reached it and why it seeded a query, if it did.
func (a *Analyzer) Analyze(pkgs []*packages.Package) (map[types.Object]*analysis.FuncInfo, error) {
	// Filter out nil packages.
	validPkgs := make([]*packages.Package, 0, len(pkgs))
	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}
		validPkgs = append(validPkgs, pkg)
	}
	pkgs = validPkgs

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages provided")
	}

	// Step 1: Load root annotations from all package files.
	if err := a.loadMarks(pkgs); err != nil {
		return nil, fmt.Errorf("load root annotations: %w", err)
	}

	// Step 2: Scan assembly files for function implementations and calls.
	assemblyInfo := a.scanAssemblyFiles(pkgs)

	// Step 3: Build the SSA program and the reachability engine.
	prog, err := newProgram(pkgs, a.opts.UseCallGraph)
	if err != nil {
		return nil, fmt.Errorf("build ssa program: %w", err)
	}

	// Step 4: Collect all defined functions with their root markers.
	funcs := a.collectFunctions(pkgs, assemblyInfo)

	// Step 5: Run the reachability queries and mark the results.
	if err := prog.markReachable(funcs, a.nameCache, a.opts.Entry); err != nil {
		return nil, fmt.Errorf("reachability analysis failed: %w", err)
	}

	return funcs, nil
}

func (a *Analyzer) collectFunctions(pkgs []*packages.Package, assemblyInfo map[string]*assembly.Info) map[types.Object]*analysis.FuncInfo {
	// Lock-free concurrency pattern: pre-allocate results slice with exact size.
	// Each goroutine writes to its own index, eliminating need for locks/mutexes.
	results := make([]map[types.Object]*analysis.FuncInfo, len(pkgs))

	var wg errgroup.Group
	wg.SetLimit(goruntime.NumCPU())
	var total int64

	for idx, pkg := range pkgs {
		wg.Go(func() error {
			result := make(map[types.Object]*analysis.FuncInfo)

			declMap := buildFuncDeclMapFromFiles(pkg.Syntax)

			scope := pkg.Types.Scope()
			for _, name := range scope.Names() {
				obj := scope.Lookup(name)
				if fn, ok := obj.(*types.Func); ok {
					// Skip CGo-generated functions.
					if isCGoGeneratedFunction(fn.Name()) {
						continue
					}
					if fn.Name() == "" {
						continue
					}
					result[fn] = a.newFuncInfo(fn, pkg, declMap, assemblyInfo[pkg.PkgPath])
				}
				// Also collect methods on named types.
				if tn, ok := obj.(*types.TypeName); ok {
					if named, ok := tn.Type().(*types.Named); ok {
						for i := range named.NumMethods() {
							method := named.Method(i)
							result[method] = a.newFuncInfo(method, pkg, declMap, assemblyInfo[pkg.PkgPath])
						}
					}
				}
			}

			results[idx] = result
			atomic.AddInt64(&total, int64(len(result)))
			return nil
		})
	}

	_ = wg.Wait()

	// Merge all results into final map.
	finalFuncs := make(map[types.Object]*analysis.FuncInfo, total)
	for _, pkgFuncs := range results {
		maps.Copy(finalFuncs, pkgFuncs)
	}
	return finalFuncs
}

// newFuncInfo builds the FuncInfo for one function object, attaching every
// root marker that applies to its declaration.
func (a *Analyzer) newFuncInfo(obj types.Object, pkg *packages.Package, declMap funcDeclMap, asmInfo *assembly.Info) *analysis.FuncInfo {
	funcInfo := analysis.NewFuncInfo(obj, pkg, a.nameCache)
	a.detectRuntimeDirectives(funcInfo, declMap)

	if asmInfo != nil {
		funcInfo.HasAssemblyBody = asmInfo.IsImplemented(obj.Name())
		funcInfo.CalledFromAssembly = asmInfo.IsCalled(obj.Name())
		if funcInfo.CalledFromAssembly {
			funcInfo.RootReason = "called from assembly"
		}
	}

	if marked, reason := a.marks.IsRoot(funcInfo.DeclarationPos); marked {
		funcInfo.IsMarkedRoot = true
		funcInfo.RootReason = reason
	}

	return funcInfo
}

// loadMarks loads root annotations from all files in the given packages.
func (a *Analyzer) loadMarks(pkgs []*packages.Package) error {
	a.marks.Clear()

	var allFiles []*ast.File
	var fset *token.FileSet

	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}
		if pkg.Fset != nil {
			fset = pkg.Fset
		}
		for _, file := range pkg.Syntax {
			if file != nil {
				allFiles = append(allFiles, file)
			}
		}
	}

	if fset != nil && len(allFiles) > 0 {
		return a.marks.Load(fset, allFiles)
	}
	return nil
}

// funcDeclMap holds a pre-built map of function declarations per package.
// Keyed by the name identifier's position, which is what types.Object.Pos()
// reports, so same-named methods on different receivers stay distinct.
type funcDeclMap map[token.Pos]*ast.FuncDecl

// buildFuncDeclMapFromFiles builds a map of declaration position -> FuncDecl for quick lookup from a list of files.
func buildFuncDeclMapFromFiles(files []*ast.File) funcDeclMap {
	declMap := make(funcDeclMap)
	for _, file := range files {
		if file == nil {
			continue
		}
		for _, decl := range file.Decls {
			if fn, ok := decl.(*ast.FuncDecl); ok && fn.Name != nil {
				declMap[fn.Name.Pos()] = fn
			}
		}
	}
	return declMap
}

// detectRuntimeDirectives examines the declMap to detect runtime directives on functions
func (a *Analyzer) detectRuntimeDirectives(funcInfo *analysis.FuncInfo, declMap funcDeclMap) {
	if funcInfo.Object == nil {
		return
	}

	// Check if it's a known runtime hook function first.
	if runtime.IsHookFunction(funcInfo.Object.Name()) {
		funcInfo.HasRuntimeDirective = true
		funcInfo.RootReason = "runtime hook"
		return
	}

	// Direct lookup instead of AST walk.
	if fn, exists := declMap[funcInfo.DeclarationPos]; exists {
		directive := runtime.FindDirective(fn)
		if directive.Valid {
			funcInfo.HasRuntimeDirective = true
			funcInfo.RootReason = directive.Directive
			if directive.Type == runtime.DirectiveCGoExport {
				funcInfo.HasCGoExport = true
				funcInfo.RootReason = "cgo export"
			}
		}
	}
}

// scanAssemblyFiles scans all packages for assembly files and returns assembly information
func (a *Analyzer) scanAssemblyFiles(pkgs []*packages.Package) map[string]*assembly.Info {
	result := make(map[string]*assembly.Info)

	for _, pkg := range pkgs {
		info, err := assembly.Scan(pkg)
		if err != nil {
			// Log but don't fail - assembly scanning is supplementary.
			slog.Warn("scanning assembly files", "package", pkg.PkgPath, "error", err)
			continue
		}

		if !info.Empty() {
			result[pkg.PkgPath] = info
		}
	}

	return result
}

// isCGoGeneratedFunction checks if a function name indicates it's generated by CGo
func isCGoGeneratedFunction(name string) bool {
	return strings.HasPrefix(name, "_Cgo_") || strings.HasPrefix(name, "_cgo_")
}
