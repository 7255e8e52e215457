// Package main implements the CLI driver for the reachfunc analyzer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"runtime/pprof"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/715d/reachfunc/internal/analysis"
	"github.com/715d/reachfunc/pkg/reachfunc"
)

// Config holds all command-line configuration options for the reachfunc analyzer.
type Config struct {
	Packages        []string // the Go packages to analyze
	Entry           string   // entry function each query starts from
	Verbose         bool     // enables detailed output and statistics
	JSON            bool     // enables JSON output format
	BuildTags       []string // build tags to use during package loading
	Profile         bool     // enables CPU and memory profiling
	UnreachableOnly bool     // list only functions no query reached
	WithCallGraph   bool     // precompute a static call graph before querying
}

const (
	exitUnreachableFound = 1
	exitError            = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "reachfunc [packages...]",
		Short: "Compute function reachability from an entry point",
		Long: `reachfunc computes the set of functions reachable from a program's entry
point, following direct calls, indirect calls through function values and
callbacks passed as arguments.

Indirect calls are resolved by signature: every function whose type matches
the called type counts as a candidate, so the result is a conservative
over-approximation and never misses a function the program could invoke.`,
		Example: `  reachfunc ./...                     # Analyze all packages from main
  reachfunc --entry Serve ./...       # Start queries at Serve instead of main
  reachfunc --unreachable-only ./...  # List only unreached functions
  reachfunc -json . > report.json     # JSON output to file`,
		Args:               cobra.ArbitraryArgs,
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	// Set custom version template to include build info.
	rootCmd.SetVersionTemplate(fmt.Sprintf("reachfunc version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	// Define flags.
	rootCmd.PersistentFlags().StringVar(&cfg.Entry, "entry", "main", "Entry function each reachability query starts from")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.BuildTags, "build-tags", []string{}, "Build tags to use during package loading")
	rootCmd.PersistentFlags().BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")
	rootCmd.PersistentFlags().BoolVar(&cfg.UnreachableOnly, "unreachable-only", false, "List only functions no query reached")
	rootCmd.PersistentFlags().BoolVar(&cfg.WithCallGraph, "with-callgraph", false, "Precompute a static call graph before querying")

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr *codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		cfg.Packages = args
	} else {
		cfg.Packages = []string{"./..."}
	}

	slog.Info("starting reachability analysis", "packages", cfg.Packages, "entry", cfg.Entry)

	result, err := runAnalysis(cmd.Context(), &cfg)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeResults(result, &cfg); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}

	if result.Stats.UnreachableFunctions > 0 {
		return errWithCode(nil, exitUnreachableFound)
	}
	return nil
}

// Result represents the analysis output, covering every defined function and
// execution statistics.
type Result struct {
	Functions []reachfunc.Function `json:"functions"`
	Stats     struct {
		TotalFunctions       int           `json:"total_functions"`
		ReachableFunctions   int           `json:"reachable_functions"`
		UnreachableFunctions int           `json:"unreachable_functions"`
		RootFunctions        int           `json:"root_functions"`
		AnalysisDuration     time.Duration `json:"analysis_duration"`
	} `json:"stats"`
}

func runAnalysis(ctx context.Context, cfg *Config) (*Result, error) {
	start := time.Now()

	slog.Info("loading packages", "packages", cfg.Packages)
	if len(cfg.BuildTags) > 0 {
		slog.Info("using build tags", "tags", cfg.BuildTags)
	}

	pkgs, err := reachfunc.LoadPackages(ctx, reachfunc.LoaderOptions{
		Packages:  cfg.Packages,
		BuildTags: cfg.BuildTags,
	})
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	slog.Info("loaded packages", "num", len(pkgs))

	slog.Info("running analysis")
	analyzer := reachfunc.NewAnalyzer(reachfunc.AnalyzerOptions{
		Entry:        cfg.Entry,
		UseCallGraph: cfg.WithCallGraph,
	})
	result, err := analyzer.Analyze(pkgs)
	if err != nil {
		return nil, fmt.Errorf("analyze packages: %w", err)
	}
	duration := time.Since(start)
	slog.Info("analysis completed", "dur", duration)

	return convertToResult(result, duration), nil
}

func convertToResult(funcs map[types.Object]*analysis.FuncInfo, dur time.Duration) *Result {
	var r Result
	r.Stats.AnalysisDuration = dur

	sortedFuncs := slices.SortedFunc(maps.Values(funcs), func(a, b *analysis.FuncInfo) int {
		// Sort by package path, then by name.
		if a.Package != nil && b.Package != nil {
			if cmp := strings.Compare(a.Package.PkgPath, b.Package.PkgPath); cmp != 0 {
				return cmp
			}
		}
		return strings.Compare(a.Name, b.Name)
	})

	for _, f := range sortedFuncs {
		r.Stats.TotalFunctions++
		if f.IsReachable {
			r.Stats.ReachableFunctions++
		}
		if f.IsEntry || f.IsRoot() {
			r.Stats.RootFunctions++
		}
		if f.ShouldReport() {
			r.Stats.UnreachableFunctions++
		}

		pos := token.NoPos
		if f.DeclarationPos.IsValid() {
			pos = f.DeclarationPos
		}

		var position token.Position
		if f.Package != nil && f.Package.Fset != nil {
			position = f.Package.Fset.Position(pos)
		} else {
			position = token.Position{
				Filename: "unknown",
				Line:     0,
				Column:   0,
			}
		}

		packagePath := ""
		if f.Package != nil {
			packagePath = f.Package.PkgPath
		}

		var root string
		switch {
		case f.IsEntry:
			root = "entry"
		case f.IsRoot():
			root = f.RootReason
		}

		r.Functions = append(r.Functions, reachfunc.Function{
			Name:      f.Name,
			Position:  position,
			Package:   packagePath,
			Reachable: f.IsReachable,
			Entry:     f.IsEntry,
			Root:      root,
			External:  f.IsExternal,
		})
	}

	return &r
}

func writeResults(result *Result, cfg *Config) error {
	var output string
	var err error

	if cfg.JSON {
		output, err = formatJSONOutput(result)
	} else {
		output = formatTextOutput(result, cfg)
	}

	if err != nil {
		return err
	}

	fmt.Print(output)
	return nil
}

func formatJSONOutput(result *Result) (string, error) {
	functions := result.Functions
	if functions == nil {
		functions = []reachfunc.Function{}
	}

	data, err := json.MarshalIndent(jOutput{
		Functions: functions,
		Stats:     result.Stats,
		Version:   version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json output: %w", err)
	}
	return string(data), nil
}

func formatTextOutput(result *Result, cfg *Config) string {
	var output strings.Builder

	if cfg.Verbose {
		slog.Info("",
			"total_functions", result.Stats.TotalFunctions,
			"reachable_functions", result.Stats.ReachableFunctions,
			"unreachable_functions", result.Stats.UnreachableFunctions,
			"root_functions", result.Stats.RootFunctions,
			"analysis_duration", result.Stats.AnalysisDuration.String())
	}

	for _, f := range result.Functions {
		if cfg.UnreachableOnly && f.Reachable {
			continue
		}

		marker := "---"
		if f.Reachable {
			marker = "+++"
		}

		if !cfg.Verbose {
			output.WriteString(fmt.Sprintf("%s %s.%s\n", marker, f.Package, f.Name))
		} else {
			detail := ""
			if f.Root != "" {
				detail = fmt.Sprintf(" (%s)", f.Root)
			}
			output.WriteString(fmt.Sprintf("%s %s.%s %s:%d:%d%s\n",
				marker, f.Package, f.Name, f.Position.Filename, f.Position.Line, f.Position.Column, detail))
		}
	}

	return output.String()
}

type jOutput struct {
	Functions []reachfunc.Function `json:"functions"`
	Stats     any                  `json:"stats"`
	Version   string               `json:"version"`
	Timestamp string               `json:"timestamp"`
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		logger := slog.New(handler)
		slog.SetDefault(logger)
	}

	if !cfg.Profile {
		return nil
	}

	// Start CPU profiling.
	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	// Stop CPU profiling and close file.
	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	// Write memory profile.
	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return &codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}
