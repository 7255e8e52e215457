package reach

import (
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// collectDirect inserts into out every defined function statically reachable
// from entry. The membership check in out is the sole guard against cycles,
// so recursive and mutually recursive call chains terminate. An explicit
// stack replaces recursion to stay safe on deep call graphs.
func (a *Analysis) collectDirect(entry *ssa.Function, out Set[*ssa.Function]) {
	if a.graph != nil {
		if node := a.graph.Nodes[entry]; node != nil {
			a.collectFromGraph(node, out)
			return
		}
		// The precomputed graph does not know this root; fall through to the
		// call-site scan, which yields the same set.
	}
	a.collectFromSites(entry, out)
}

// collectFromGraph walks the precomputed call graph depth-first.
func (a *Analysis) collectFromGraph(node *callgraph.Node, out Set[*ssa.Function]) {
	stack := []*callgraph.Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == nil || n.Func == nil || n.Func.Blocks == nil {
			continue
		}
		if !out.Add(n.Func) {
			continue
		}
		for _, edge := range n.Out {
			stack = append(stack, edge.Callee)
		}
	}
}

// collectFromSites performs the same traversal without a call graph, by
// scanning each function's call sites for statically known callees.
func (a *Analysis) collectFromSites(entry *ssa.Function, out Set[*ssa.Function]) {
	stack := []*ssa.Function{entry}
	for len(stack) > 0 {
		fn := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fn == nil || fn.Blocks == nil {
			continue
		}
		if !out.Add(fn) {
			continue
		}
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				site, ok := instr.(ssa.CallInstruction)
				if !ok {
					continue
				}
				if callee := site.Common().StaticCallee(); callee != nil {
					stack = append(stack, callee)
				}
			}
		}
	}
}
