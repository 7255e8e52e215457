package reach

import (
	"fmt"
	"io"
	"sort"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// WriteListing writes a plain listing of the program's source functions,
// reachable ones prefixed with "+++" and unreachable ones with "---".
// Purely informational; external declarations and synthetic wrappers are
// omitted.
func WriteListing(w io.Writer, prog *ssa.Program, reachable Set[*ssa.Function]) error {
	var lines []string
	for fn := range ssautil.AllFunctions(prog) {
		if fn.Blocks == nil || fn.Synthetic != "" {
			continue
		}
		prefix := "---"
		if reachable.Has(fn) {
			prefix = "+++"
		}
		lines = append(lines, fmt.Sprintf("%s %s", prefix, fn.RelString(nil)))
	}
	sort.Strings(lines)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write listing: %w", err)
		}
	}
	return nil
}
