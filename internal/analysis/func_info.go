// Package analysis provides function metadata and classification for the
// reachability report.
package analysis

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// FuncInfo describes one defined function of the analyzed program and how the
// reachability queries classified it.
type FuncInfo struct {
	// Object is the types.Object representing this function.
	Object types.Object

	// Name is the display name, including generic type instantiation.
	// For non-generic functions this is the same as Object.Name();
	// for generic code it includes type parameters (e.g. "Container[T].Clear").
	Name string

	// Signature is the display form of the function's type, used in reports.
	Signature string

	// IsReachable indicates whether any query reached this function.
	IsReachable bool

	// IsEntry indicates whether this function was the entry of a query
	// (the program's main, or the function selected with --entry).
	IsEntry bool

	// RootReason is non-empty when the function seeded its own query as an
	// extra root, e.g. "called from assembly" or "cgo export".
	RootReason string

	// IsExported indicates whether the function is exported.
	IsExported bool

	// IsExternal indicates the function has no Go body (assembly
	// implementation or linkname import). External functions are never
	// members of a reachable set.
	IsExternal bool

	// HasRuntimeDirective indicates a compiler/runtime directive on the
	// declaration (go:linkname, go:nosplit, ...).
	HasRuntimeDirective bool

	// HasCGoExport indicates a //export directive for CGo.
	HasCGoExport bool

	// HasAssemblyBody indicates the body lives in a .s file.
	HasAssemblyBody bool

	// CalledFromAssembly indicates a CALL to this function from assembly.
	CalledFromAssembly bool

	// IsMarkedRoot indicates a //reachfunc:root annotation on the declaration.
	IsMarkedRoot bool

	// DeclarationPos is the position where this function is declared.
	DeclarationPos token.Pos

	// Package is the package containing this function.
	Package *packages.Package
}

// NewFuncInfo creates a FuncInfo for the given function object and package.
func NewFuncInfo(obj types.Object, pkg *packages.Package, nameCache *NameCache) *FuncInfo {
	if obj == nil {
		return &FuncInfo{Package: pkg}
	}

	return &FuncInfo{
		Object:         obj,
		Name:           nameCache.ComputeObjectName(obj),
		Signature:      nameCache.ComputeTypeName(obj.Type()),
		IsExported:     obj.Exported(),
		Package:        pkg,
		DeclarationPos: obj.Pos(),
	}
}

// IsRoot reports whether this function seeds its own reachability query in
// addition to the program entry: code invoked by the runtime, by assembly,
// through CGo, or explicitly annotated as a root.
func (fi *FuncInfo) IsRoot() bool {
	return fi.CalledFromAssembly ||
		fi.HasCGoExport ||
		fi.HasRuntimeDirective ||
		fi.IsMarkedRoot
}

// ShouldReport determines whether this function belongs in the unreachable
// listing: it has an analyzable Go body yet no query reached it. External
// functions are excluded because they cannot be instrumented either way.
func (fi *FuncInfo) ShouldReport() bool {
	if fi.IsReachable {
		return false
	}
	if fi.IsExternal || fi.HasAssemblyBody {
		return false
	}
	return !fi.IsRoot()
}
