// Package mark implements comment-based root annotations.
//
// A function annotated with //reachfunc:root is treated as an additional
// entry point of the reachability analysis. The annotation exists for code
// the static analysis cannot see being invoked, typically reflection or
// plugin lookup.
package mark

import (
	"fmt"
	"go/ast"
	"go/token"
	"regexp"
	"strings"
)

// Checker collects root annotations from source comments.
type Checker struct {
	// roots maps a function's declaration position to the annotation reason.
	roots map[token.Pos]string

	// fset is the file set for position calculations
	fset *token.FileSet
}

// Annotation represents a parsed root annotation.
type Annotation struct {
	Position token.Pos
	Reason   string
}

// rootPattern matches //reachfunc:root comments with an optional reason,
// e.g. "//reachfunc:root // invoked via reflect.Value.Call".
var rootPattern = regexp.MustCompile(`//\s*reachfunc:root(?:\s+//\s*(.+))?`)

// NewChecker creates a new annotation checker.
func NewChecker() *Checker {
	return &Checker{
		roots: make(map[token.Pos]string),
	}
}

// Load parses root annotations from AST files. An annotation applies to the
// function declared on the same line or the line immediately below it.
func (c *Checker) Load(fset *token.FileSet, files []*ast.File) error {
	if fset == nil {
		return fmt.Errorf("fset cannot be nil")
	}
	if files == nil {
		return fmt.Errorf("files cannot be nil")
	}
	c.fset = fset

	for _, file := range files {
		annotationsByLine := make(map[int]*Annotation)

		for _, commentGroup := range file.Comments {
			for _, comment := range commentGroup.List {
				if ann := parseComment(comment); ann != nil {
					pos := fset.Position(comment.Pos())
					annotationsByLine[pos.Line] = ann
				}
			}
		}

		// Second pass: attach annotations to the functions they precede.
		ast.Inspect(file, func(n ast.Node) bool {
			funcDecl, ok := n.(*ast.FuncDecl)
			if !ok {
				return true
			}
			// The name position is what types.Object.Pos() reports.
			funcPos := funcDecl.Name.Pos()
			line := fset.Position(funcPos).Line

			ann, exists := annotationsByLine[line-1]
			if !exists {
				ann, exists = annotationsByLine[line]
			}
			if exists {
				reason := ann.Reason
				if reason == "" {
					reason = "annotated root"
				}
				c.roots[funcPos] = reason
			}
			return true
		})
	}

	return nil
}

// parseComment checks whether a comment is a root annotation.
func parseComment(comment *ast.Comment) *Annotation {
	matches := rootPattern.FindStringSubmatch(comment.Text)
	if matches == nil {
		return nil
	}
	reason := ""
	if len(matches) > 1 {
		reason = strings.TrimSpace(matches[1])
	}
	return &Annotation{
		Position: comment.Pos(),
		Reason:   reason,
	}
}

// IsRoot checks whether the function declared at pos carries a root
// annotation, returning the reason when it does.
func (c *Checker) IsRoot(pos token.Pos) (bool, string) {
	if reason, exists := c.roots[pos]; exists {
		return true, reason
	}
	return false, ""
}

// Clear removes all loaded annotations.
func (c *Checker) Clear() {
	c.roots = make(map[token.Pos]string)
}
