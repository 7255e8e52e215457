// Package runtime detects compiler and runtime directives that make a
// function reachable outside the visible call structure.
//
// A //go:linkname'd function may be called from another package under a
// different symbol, a //export'ed function from C, and runtime hooks from
// the scheduler or GC. All of them seed their own reachability query.
package runtime

import (
	"go/ast"
	"strings"
)

// DirectiveType represents different types of Go compiler directives.
type DirectiveType int

const (
	DirectiveNone DirectiveType = iota
	DirectiveNosplit
	DirectiveNoinline
	DirectiveNorace
	DirectiveNocheckptr
	DirectiveLinkname
	DirectiveCGoExport // CGo export directive
)

// DirectiveInfo describes a directive found on a function declaration.
type DirectiveInfo struct {
	Type      DirectiveType
	Directive string
	Valid     bool
}

// directiveTypes maps directive strings to their types.
var directiveTypes = map[string]DirectiveType{
	"go:nosplit":    DirectiveNosplit,
	"go:noinline":   DirectiveNoinline,
	"go:norace":     DirectiveNorace,
	"go:nocheckptr": DirectiveNocheckptr,
	"go:linkname":   DirectiveLinkname,
}

// hookFunctions contains function names the Go runtime may invoke on its own,
// with no call site visible to static analysis.
var hookFunctions = map[string]bool{
	"mallocHook":      true,
	"freeHook":        true,
	"gcCallback":      true,
	"runGCCallbacks":  true,
	"panicHook":       true,
	"recoverHook":     true,
	"scheduleHook":    true,
	"preemptHook":     true,
	"sighandler":      true,
	"cpuProfilerHook": true,
	"memprofHook":     true,
	"uintptrEscapes":  true,
	"allocNotInHeap":  true,
}

// FindDirective checks a function declaration for a compiler or runtime
// directive in its doc comment group.
func FindDirective(fn *ast.FuncDecl) *DirectiveInfo {
	if fn.Doc == nil || len(fn.Doc.List) == 0 {
		return &DirectiveInfo{Type: DirectiveNone}
	}

	for _, comment := range fn.Doc.List {
		if d := parseDirective(comment.Text); d.Type != DirectiveNone {
			return d
		}
	}
	return &DirectiveInfo{Type: DirectiveNone}
}

// parseDirective parses one comment line for a recognized directive.
func parseDirective(comment string) *DirectiveInfo {
	text := strings.TrimPrefix(comment, "//")

	// CGo export has the form "//export FuncName", no colon.
	if strings.HasPrefix(text, "export ") {
		return &DirectiveInfo{
			Type:      DirectiveCGoExport,
			Directive: "export",
			Valid:     true,
		}
	}

	// A space after "//" disqualifies the comment: real directives are
	// spelled exactly "//go:".
	if strings.HasPrefix(comment, "// ") {
		return &DirectiveInfo{Type: DirectiveNone}
	}

	for directive, directiveType := range directiveTypes {
		if after, ok := strings.CutPrefix(text, directive); ok {
			if after == "" || strings.HasPrefix(after, " ") {
				return &DirectiveInfo{
					Type:      directiveType,
					Directive: directive,
					Valid:     true,
				}
			}
		}
	}

	return &DirectiveInfo{Type: DirectiveNone}
}

// IsHookFunction checks whether a function name is a known runtime hook.
func IsHookFunction(name string) bool {
	return hookFunctions[name]
}
