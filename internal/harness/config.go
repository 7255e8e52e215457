// Package harness provides test harness infrastructure for validating the
// analyzer against scenario codebases under testdata.
package harness

// BuildConfiguration represents a single build configuration to test.
type BuildConfiguration struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name"`

	// BuildTags are the build tags to use when loading packages.
	BuildTags []string `yaml:"build_tags"`

	// EnableCGo indicates whether CGo should be enabled.
	EnableCGo bool `yaml:"enable_cgo"`

	// GOOS sets the target operating system.
	GOOS string `yaml:"goos,omitempty"`

	// GOARCH sets the target architecture.
	GOARCH string `yaml:"goarch,omitempty"`

	// Entry overrides the entry function for this configuration.
	// Empty means "main".
	Entry string `yaml:"entry,omitempty"`

	// WithCallGraph precomputes a static call graph before querying.
	WithCallGraph bool `yaml:"with_callgraph,omitempty"`

	// ExpectedReachable lists functions that must be reached by some query.
	ExpectedReachable []ExpectedFunc `yaml:"expected_reachable"`

	// ExpectedUnreachable lists exactly the functions expected in the
	// unreachable report for this configuration.
	ExpectedUnreachable []ExpectedFunc `yaml:"expected_unreachable"`

	// ExpectedErrors lists any expected error messages for this configuration.
	ExpectedErrors []string `yaml:"expected_errors"`
}

// TestCase represents a single test scenario.
type TestCase struct {
	// Dir is the directory containing the test code.
	Dir string `yaml:"-"`

	// BuildConfigurations defines multiple build configurations to test.
	BuildConfigurations []BuildConfiguration `yaml:"build_configurations"`
}

// ExpectedFunc names a function a scenario makes a claim about.
type ExpectedFunc struct {
	// FuncName is the name of the function.
	FuncName string `yaml:"func"`

	// Reason documents why the verdict holds.
	Reason string `yaml:"reason,omitempty"`

	// Package optionally pins the verdict to one package, for scenarios
	// declaring same-named functions in several packages.
	Package string `yaml:"package,omitempty"`

	// File is the optional file path (relative to test dir)
	File string `yaml:"file,omitempty"`
}
