package runtime

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFuncDecl(t *testing.T, src string) *ast.FuncDecl {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	require.NoError(t, err)
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			return fn
		}
	}
	t.Fatal("no function declaration in source")
	return nil
}

func TestFindDirective(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected DirectiveType
		valid    bool
	}{
		{
			name: "linkname",
			src: `package p

//go:linkname fastrand runtime.fastrand
func fastrand() uint32
`,
			expected: DirectiveLinkname,
			valid:    true,
		},
		{
			name: "nosplit",
			src: `package p

//go:nosplit
func tiny() {}
`,
			expected: DirectiveNosplit,
			valid:    true,
		},
		{
			name: "cgo export",
			src: `package p

//export Entry
func Entry() {}
`,
			expected: DirectiveCGoExport,
			valid:    true,
		},
		{
			name: "no doc comment",
			src: `package p

func plain() {}
`,
			expected: DirectiveNone,
		},
		{
			name: "ordinary comment is not a directive",
			src: `package p

// go:linkname is mentioned, not applied.
func doc() {}
`,
			expected: DirectiveNone,
		},
		{
			name: "prefix collision is not a directive",
			src: `package p

//go:linknamed
func odd() {}
`,
			expected: DirectiveNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := parseFuncDecl(t, tt.src)
			d := FindDirective(fn)
			assert.Equal(t, tt.expected, d.Type)
			assert.Equal(t, tt.valid, d.Valid)
		})
	}
}

func TestIsHookFunction(t *testing.T) {
	assert.True(t, IsHookFunction("gcCallback"))
	assert.True(t, IsHookFunction("sighandler"))
	assert.False(t, IsHookFunction("ordinaryFunc"))
	assert.False(t, IsHookFunction(""))
}
