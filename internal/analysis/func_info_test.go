package analysis

import (
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

// TestFuncInfo_NewFuncInfo tests the creation of new FuncInfo instances.
func TestFuncInfo_NewFuncInfo(t *testing.T) {
	tests := []struct {
		name             string
		funcName         string
		expectedExported bool
	}{
		{
			name:             "exported func",
			funcName:         "ExportedFunc",
			expectedExported: true,
		},
		{
			name:             "unexported func",
			funcName:         "unexportedFunc",
			expectedExported: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := &packages.Package{
				ID:      "example.com/test",
				PkgPath: "example.com/test",
			}
			obj := types.NewFunc(token.NoPos, pkg.Types, tt.funcName, nil)

			f := NewFuncInfo(obj, pkg, NewNameCache())
			require.NotNil(t, f, "NewFuncInfo returned nil")

			require.Equal(t, obj, f.Object)
			require.Equal(t, tt.expectedExported, f.IsExported)
			require.Equal(t, pkg, f.Package)

			// Classification starts blank until the queries run.
			require.False(t, f.IsReachable, "Expected IsReachable to be false by default")
			require.False(t, f.IsEntry)
			require.False(t, f.IsRoot())
		})
	}
}

func TestFuncInfo_NewFuncInfoNilObject(t *testing.T) {
	pkg := &packages.Package{ID: "example.com/test", PkgPath: "example.com/test"}
	f := NewFuncInfo(nil, pkg, NewNameCache())

	require.NotNil(t, f)
	require.Nil(t, f.Object)
	require.Empty(t, f.Name)
	require.Equal(t, pkg, f.Package)
}

// TestFuncInfo_IsRoot tests extra-root classification.
func TestFuncInfo_IsRoot(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*FuncInfo)
		expected bool
	}{
		{"plain function", func(*FuncInfo) {}, false},
		{"called from assembly", func(f *FuncInfo) { f.CalledFromAssembly = true }, true},
		{"cgo export", func(f *FuncInfo) { f.HasCGoExport = true }, true},
		{"runtime directive", func(f *FuncInfo) { f.HasRuntimeDirective = true }, true},
		{"marked root", func(f *FuncInfo) { f.IsMarkedRoot = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := &packages.Package{ID: "example.com/test", PkgPath: "example.com/test"}
			obj := types.NewFunc(token.NoPos, pkg.Types, "hook", nil)
			f := NewFuncInfo(obj, pkg, NewNameCache())

			tt.mutate(f)
			require.Equal(t, tt.expected, f.IsRoot())
		})
	}
}

// TestFuncInfo_ShouldReport tests the unreachable-listing logic.
func TestFuncInfo_ShouldReport(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*FuncInfo)
		expected    bool
		description string
	}{
		{
			name:        "unreachable function with a body",
			mutate:      func(*FuncInfo) {},
			expected:    true,
			description: "should report unreachable defined funcs",
		},
		{
			name:        "reachable function",
			mutate:      func(f *FuncInfo) { f.IsReachable = true },
			expected:    false,
			description: "should not report reachable funcs",
		},
		{
			name:        "external function",
			mutate:      func(f *FuncInfo) { f.IsExternal = true },
			expected:    false,
			description: "bodiless funcs cannot be instrumented either way",
		},
		{
			name:        "assembly implementation",
			mutate:      func(f *FuncInfo) { f.HasAssemblyBody = true },
			expected:    false,
			description: "assembly bodies are opaque to the analysis",
		},
		{
			name:        "unreachable root",
			mutate:      func(f *FuncInfo) { f.IsMarkedRoot = true },
			expected:    false,
			description: "roots seed their own query and are reachable by definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := &packages.Package{ID: "example.com/test", PkgPath: "example.com/test"}
			obj := types.NewFunc(token.NoPos, pkg.Types, "candidate", nil)
			f := NewFuncInfo(obj, pkg, NewNameCache())

			tt.mutate(f)
			require.Equal(t, tt.expected, f.ShouldReport(), tt.description)
		})
	}
}
