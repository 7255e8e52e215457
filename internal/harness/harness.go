package harness

import (
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"

	"github.com/stretchr/testify/require"

	"github.com/715d/reachfunc/internal/analysis"
	"github.com/715d/reachfunc/pkg/reachfunc"
)

// TestHarness manages test execution.
type TestHarness struct {
	// root is the root directory for test data
	root string
}

// NewHarness creates a new test harness.
func NewHarness(root string) *TestHarness {
	return &TestHarness{root: root}
}

// Run executes a test case with all its build configurations.
func (h *TestHarness) Run(t *testing.T, tc *TestCase) *TestResult {
	t.Helper()
	require.NotEmpty(t, tc.BuildConfigurations, "test case has no build configurations")

	var results []ConfigurationResult
	var allSuccess = true

	// Run each configuration.
	for _, cfg := range tc.BuildConfigurations {
		cfgResult := h.runConfiguration(t, tc, cfg)
		results = append(results, *cfgResult)
		if !cfgResult.Success {
			allSuccess = false
		}
	}

	// Create overall result message.
	var resultMsg string
	if allSuccess {
		resultMsg = fmt.Sprintf("All %d configurations passed", len(tc.BuildConfigurations))
	} else {
		failedCount := 0
		var msgs []string
		for _, cr := range results {
			if !cr.Success {
				failedCount++
				msgs = append(msgs, fmt.Sprintf("[%s] %s:\n  %s",
					cr.Configuration.Name, cr.Message, strings.Join(cr.Details, "\n")))
			}
		}
		resultMsg = fmt.Sprintf("%d/%d configurations failed:\n%s",
			failedCount, len(tc.BuildConfigurations), strings.Join(msgs, "\n"))
	}

	return &TestResult{
		TestCase:             tc,
		ConfigurationResults: results,
		Success:              allSuccess,
		Message:              resultMsg,
	}
}

// runConfiguration executes analysis for a single build configuration
func (h *TestHarness) runConfiguration(t *testing.T, tc *TestCase, cfg BuildConfiguration) *ConfigurationResult {
	t.Helper()
	loaderConfig := &LoaderConfig{
		Dir:       filepath.Join(h.root, tc.Dir),
		BuildTags: cfg.BuildTags,
		EnableCGo: cfg.EnableCGo,
		GOOS:      cfg.GOOS,
		GOARCH:    cfg.GOARCH,
	}
	pkgs := LoadPackages(t, loaderConfig)

	// Run analysis.
	analyzer := reachfunc.NewAnalyzer(reachfunc.AnalyzerOptions{
		Entry:        cfg.Entry,
		UseCallGraph: cfg.WithCallGraph,
	})
	result, err := analyzer.Analyze(pkgs)
	if err != nil {
		// Check if this error was expected.
		for _, expectedErr := range cfg.ExpectedErrors {
			if strings.Contains(err.Error(), expectedErr) {
				return &ConfigurationResult{
					Configuration: cfg,
					Success:       true,
					Message:       fmt.Sprintf("Got expected error: %v", err),
				}
			}
		}
		require.NoError(t, err)
	}
	return h.validateConfigurationResults(cfg, result)
}

// validateConfigurationResults compares actual results with expected for a specific build configuration
func (h *TestHarness) validateConfigurationResults(cfg BuildConfiguration, funcs map[types.Object]*analysis.FuncInfo) *ConfigurationResult {
	cfgResult := ConfigurationResult{
		Configuration: cfg,
		Funcs:         funcs,
	}

	// First validate the configuration has valid expected functions.
	if err := validateExpectedFunctions(cfg.ExpectedReachable, cfg.ExpectedUnreachable); err != nil {
		cfgResult.Success = false
		cfgResult.Message = fmt.Sprintf("Invalid expected.yaml: %v", err)
		cfgResult.Details = []string{err.Error()}
		return &cfgResult
	}

	// Verdicts match on the short declared name so expected.yaml stays
	// readable; a `package` pin disambiguates same-named functions across
	// packages, `file` across files.
	var reachable, unreachable []ReportedFunc
	for _, f := range funcs {
		if f.Object == nil {
			continue
		}
		reported := ReportedFunc{
			Name:    f.Object.Name(),
			Package: getDisplayPackageName(f.Package),
			File:    getRelativeFile(h.root, f.DeclarationPos, f),
		}
		if f.IsReachable {
			reachable = append(reachable, reported)
		}
		if f.ShouldReport() {
			unreachable = append(unreachable, reported)
		}
	}

	// Compare with expected for this configuration.
	validateResults(&cfgResult, cfg, reachable, unreachable)
	return &cfgResult
}

// ConfigurationResult represents the result of running a single build configuration.
type ConfigurationResult struct {
	// Configuration is the build configuration that was run.
	Configuration BuildConfiguration

	// Funcs is the raw result from the analyzer.
	Funcs map[types.Object]*analysis.FuncInfo

	// Success indicates if this configuration passed.
	Success bool

	// Message provides a summary of the result for this configuration.
	Message string

	// Details provides detailed information about failures for this configuration.
	Details []string
}

// TestResult represents the result of running a test case.
type TestResult struct {
	// TestCase is the test case that was run.
	TestCase *TestCase

	// ConfigurationResults contains results for each build configuration.
	ConfigurationResults []ConfigurationResult

	// Success indicates if the test passed (all configurations passed)
	Success bool

	// Skipped indicates if the test was skipped.
	Skipped bool

	// Message provides a summary of the result.
	Message string
}

// ReportedFunc is one function as it appears in analysis output.
type ReportedFunc struct {
	Name    string
	Package string
	File    string
}

// validateExpectedFunctions validates that expected functions have required fields
func validateExpectedFunctions(lists ...[]ExpectedFunc) error {
	for _, expected := range lists {
		for i, exp := range expected {
			if strings.TrimSpace(exp.FuncName) == "" {
				return fmt.Errorf("expected function at index %d has empty or missing 'func' field", i)
			}
		}
	}
	return nil
}

// findMatch returns the index of the first unclaimed reported function the
// expectation matches, or -1. claimed may be nil when claiming is not
// tracked.
func findMatch(exp ExpectedFunc, funcs []ReportedFunc, claimed []bool) int {
	for i, act := range funcs {
		if claimed != nil && claimed[i] {
			continue
		}
		if act.Name != exp.FuncName {
			continue
		}
		if exp.Package != "" && act.Package != exp.Package {
			continue
		}
		return i
	}
	return -1
}

// validateResults checks reachable verdicts by membership and requires the
// unreachable report to match expected_unreachable exactly: every expected
// entry must claim a distinct reported function and no reported function may
// go unclaimed.
func validateResults(cfgResult *ConfigurationResult, cfg BuildConfiguration, reachable, unreachable []ReportedFunc) {
	var details []string
	success := true

	// Every expected_reachable function must have been reached.
	var notReached []string
	for _, exp := range cfg.ExpectedReachable {
		if findMatch(exp, reachable, nil) < 0 {
			notReached = append(notReached, fmt.Sprintf("%s (%s)", exp.FuncName, exp.Reason))
			success = false
		}
	}

	var missing []string
	claimed := make([]bool, len(unreachable))
	for _, exp := range cfg.ExpectedUnreachable {
		idx := findMatch(exp, unreachable, claimed)
		if idx < 0 {
			missing = append(missing, fmt.Sprintf("%s (%s)", exp.FuncName, exp.Reason))
			success = false
			continue
		}
		claimed[idx] = true

		if exp.File != "" && !strings.HasSuffix(unreachable[idx].File, exp.File) {
			details = append(details, fmt.Sprintf(
				"File mismatch for %s: expected file ending with %q, got %q",
				exp.FuncName, exp.File, unreachable[idx].File))
			success = false
		}
	}

	// Anything reported but claimed by no expectation is unexpected.
	var unexpected []string
	for i, act := range unreachable {
		if !claimed[i] {
			unexpected = append(unexpected, fmt.Sprintf("%s (%s)", act.Name, act.Package))
			success = false
		}
	}

	// Sort for consistent output.
	sort.Strings(notReached)
	sort.Strings(missing)
	sort.Strings(unexpected)

	for _, m := range notReached {
		details = append(details, "Should have been reached: "+m)
	}
	for _, m := range missing {
		details = append(details, "Should have been reported unreachable: "+m)
	}
	for _, u := range unexpected {
		details = append(details, "Should have been reached or rooted: "+u)
	}

	var message string
	if success {
		message = fmt.Sprintf("All %d reachability verdicts hold",
			len(cfg.ExpectedReachable)+len(cfg.ExpectedUnreachable))
	} else {
		message = fmt.Sprintf("Test failed: %d not reached, %d missing, %d unexpected",
			len(notReached), len(missing), len(unexpected))
	}

	cfgResult.Success = success
	cfgResult.Message = message
	cfgResult.Details = details
}

// getRelativeFile extracts the relative file path from a position for a specific configuration
func getRelativeFile(root string, pos token.Pos, funcInfo *analysis.FuncInfo) string {
	if funcInfo.Package == nil || funcInfo.Package.Fset == nil {
		return ""
	}

	position := funcInfo.Package.Fset.Position(pos)
	if position.Filename == "" {
		return ""
	}

	// Get relative path from the testdata root.
	relPath, err := filepath.Rel(root, position.Filename)
	if err != nil {
		// If we can't get relative path, just return the base filename.
		return filepath.Base(position.Filename)
	}
	return relPath
}

// getDisplayPackageName returns the appropriate package name for display/comparison
// For main packages, it uses the module path if available, otherwise "main".
// For other packages, it uses the package path.
func getDisplayPackageName(pkg *packages.Package) string {
	const pkgMain = "main"
	if pkg == nil {
		return "unknown"
	}

	packageName := pkg.PkgPath
	if pkg.Name == pkgMain {
		// For main packages, only use module path if this is the root package.
		// (i.e., package path equals module path)
		if pkg.Module != nil && pkg.Module.Path != "" && pkg.PkgPath == pkg.Module.Path {
			if pkg.Module.Path != pkgMain {
				packageName = pkg.Module.Path
			} else {
				packageName = pkgMain
			}
		}
		// For main packages in subdirectories, keep the full package path.
	}
	return packageName
}
