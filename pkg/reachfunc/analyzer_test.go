package reachfunc

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"github.com/715d/reachfunc/internal/analysis"
	"github.com/715d/reachfunc/internal/reach"
)

// loadTestPackage type-checks src into a packages.Package with everything the
// SSA builder needs, without shelling out to the go tool.
func loadTestPackage(t *testing.T, pkgPath, src string) *packages.Package {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, pkgPath+".go", src, parser.ParseComments)
	require.NoError(t, err)

	info := &types.Info{
		Types:        make(map[ast.Expr]types.TypeAndValue),
		Defs:         make(map[*ast.Ident]types.Object),
		Uses:         make(map[*ast.Ident]types.Object),
		Implicits:    make(map[ast.Node]types.Object),
		Selections:   make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:       make(map[ast.Node]*types.Scope),
		Instances:    make(map[*ast.Ident]types.Instance),
		FileVersions: make(map[*ast.File]string),
	}
	conf := types.Config{Importer: importer.Default()}
	tpkg, err := conf.Check(pkgPath, fset, []*ast.File{file}, info)
	require.NoError(t, err)

	return &packages.Package{
		ID:        pkgPath,
		PkgPath:   pkgPath,
		Name:      tpkg.Name(),
		Types:     tpkg,
		TypesInfo: info,
		Syntax:    []*ast.File{file},
		Fset:      fset,
	}
}

func analyzeSource(t *testing.T, opts AnalyzerOptions, pkgPath, src string) map[string]*analysis.FuncInfo {
	t.Helper()

	pkg := loadTestPackage(t, pkgPath, src)
	funcs, err := NewAnalyzer(opts).Analyze([]*packages.Package{pkg})
	require.NoError(t, err)

	byName := make(map[string]*analysis.FuncInfo, len(funcs))
	for _, funcInfo := range funcs {
		byName[funcInfo.Object.Name()] = funcInfo
	}
	return byName
}

func TestAnalyzer_NewAnalyzer(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerOptions{})
	require.NotNil(t, analyzer, "NewAnalyzer returned nil")
	require.NotNil(t, analyzer.marks, "Expected root annotation checker to be initialized")
}

func TestAnalyzer_NoPackages(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerOptions{})
	_, err := analyzer.Analyze(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no packages")
}

func TestAnalyze_DirectCalls(t *testing.T) {
	src := `package main

func used() {}

func unused() {}

func main() {
	used()
}`
	funcs := analyzeSource(t, AnalyzerOptions{}, "main", src)

	require.True(t, funcs["main"].IsEntry, "main is the query entry")
	require.True(t, funcs["main"].IsReachable)
	require.True(t, funcs["used"].IsReachable)
	require.False(t, funcs["unused"].IsReachable)
	require.True(t, funcs["unused"].ShouldReport())
	require.False(t, funcs["used"].ShouldReport())
}

func TestAnalyze_IndirectCallBySignature(t *testing.T) {
	// Calling through a function variable reaches every function whose
	// signature matches the called type.
	src := `package main

var f func(int) int

func inc(x int) int { return x + 1 }

func dec(x int) int { return x - 1 }

func shout(s string) string { return s + "!" }

func main() {
	_ = f(2)
}`
	funcs := analyzeSource(t, AnalyzerOptions{}, "main", src)

	require.True(t, funcs["inc"].IsReachable)
	require.True(t, funcs["dec"].IsReachable, "same signature as the indirect call")
	require.False(t, funcs["shout"].IsReachable, "different signature")
}

func TestAnalyze_MarkedRoot(t *testing.T) {
	src := `package main

//reachfunc:root // invoked by generated glue code
func hook() {
	hookHelper()
}

func hookHelper() {}

func orphan() {}

func main() {}`
	funcs := analyzeSource(t, AnalyzerOptions{}, "main", src)

	require.True(t, funcs["hook"].IsMarkedRoot)
	require.Equal(t, "invoked by generated glue code", funcs["hook"].RootReason)
	require.True(t, funcs["hook"].IsReachable, "annotated roots seed their own query")
	require.True(t, funcs["hookHelper"].IsReachable, "reached from the annotated root")
	require.False(t, funcs["orphan"].IsReachable)
}

func TestAnalyze_EntryOverride(t *testing.T) {
	src := `package app

func start() {
	helper()
}

func helper() {}

func main() {}`
	funcs := analyzeSource(t, AnalyzerOptions{Entry: "start"}, "app", src)

	require.True(t, funcs["start"].IsEntry)
	require.True(t, funcs["helper"].IsReachable)
	require.False(t, funcs["main"].IsEntry)
	require.False(t, funcs["main"].IsReachable)
}

func TestAnalyze_MissingEntry(t *testing.T) {
	src := `package app

func helper() {}`
	pkg := loadTestPackage(t, "app", src)
	_, err := NewAnalyzer(AnalyzerOptions{}).Analyze([]*packages.Package{pkg})
	require.ErrorIs(t, err, reach.ErrMissingEntry)
}

func TestAnalyze_CallGraphModeAgrees(t *testing.T) {
	src := `package main

func a() { b() }

func b() {}

func c() {}

func main() { a() }`

	plain := analyzeSource(t, AnalyzerOptions{}, "main", src)
	graph := analyzeSource(t, AnalyzerOptions{UseCallGraph: true}, "main", src)

	require.Equal(t, len(plain), len(graph))
	for name, funcInfo := range plain {
		require.Equal(t, funcInfo.IsReachable, graph[name].IsReachable,
			"reachability of %s differs between modes", name)
	}
}

func TestAnalyze_DirectiveOnSameNamedMethods(t *testing.T) {
	// Two receivers declare a method of the same name; only the annotated
	// one may become a root, regardless of declaration order.
	src := `package main

type alpha struct{}

//go:nosplit
func (alpha) reset() {}

type beta struct{}

func (beta) reset() {}

func main() {}`
	pkg := loadTestPackage(t, "main", src)
	funcs, err := NewAnalyzer(AnalyzerOptions{}).Analyze([]*packages.Package{pkg})
	require.NoError(t, err)

	byDisplayName := make(map[string]*analysis.FuncInfo, len(funcs))
	for _, funcInfo := range funcs {
		byDisplayName[funcInfo.Name] = funcInfo
	}

	alphaReset := byDisplayName["main.alpha.reset"]
	betaReset := byDisplayName["main.beta.reset"]
	require.NotNil(t, alphaReset)
	require.NotNil(t, betaReset)

	require.True(t, alphaReset.HasRuntimeDirective)
	require.True(t, alphaReset.IsReachable, "directive-marked method seeds its own query")
	require.False(t, betaReset.HasRuntimeDirective, "directive must not leak to the same-named method")
	require.False(t, betaReset.IsReachable)
}

func TestAnalyze_MethodsCollected(t *testing.T) {
	src := `package main

type counter struct{ n int }

func (c *counter) bump() { c.n++ }

func (c *counter) reset() { c.n = 0 }

func main() {
	c := &counter{}
	c.bump()
}`
	funcs := analyzeSource(t, AnalyzerOptions{}, "main", src)

	require.Contains(t, funcs, "bump")
	require.Contains(t, funcs, "reset")
	require.True(t, funcs["bump"].IsReachable)
	require.False(t, funcs["reset"].IsReachable)
}
