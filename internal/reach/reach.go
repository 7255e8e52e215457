// Package reach computes the set of functions that a program can execute
// starting from an entry function.
//
// The result is a conservative over-approximation: the direct call graph is
// walked first, then a fixpoint worklist adds targets of indirect calls and
// callback-style arguments, resolved by exact signature match. A function
// with a matching signature is always treated as a possible callee; no
// points-to analysis is attempted. Missing a truly reachable function would
// leave code unprotected by downstream instrumentation, while a spurious one
// only costs instrumentation overhead, so over-approximation is the safe
// direction.
package reach

import (
	"errors"
	"fmt"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// ErrMissingEntry is reported when the requested entry function cannot be
// resolved in the program. The query produces no result in that case.
var ErrMissingEntry = errors.New("entry function not found")

// Set is a mutable collection of unique items.
type Set[T comparable] map[T]struct{}

// Add inserts v and reports whether it was newly added.
func (s Set[T]) Add(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Has reports whether v is a member.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Analysis answers reachability queries over one immutable program snapshot.
//
// The signature index is built once and shared read-only by all queries, so
// concurrent ReachableFrom calls on the same Analysis are safe. If the
// underlying SSA program is mutated, the Analysis must be rebuilt.
type Analysis struct {
	// prog is the SSA program under analysis. Never mutated.
	prog *ssa.Program

	// graph is an optional precomputed static call graph. When nil, direct
	// reachability scans call sites instead, with identical results.
	graph *callgraph.Graph

	// index maps each function signature to the defined functions sharing it.
	index *signatureIndex
}

// New creates an Analysis for the given program. graph may be nil; it is an
// acceleration, not a semantic requirement.
func New(prog *ssa.Program, graph *callgraph.Graph) *Analysis {
	return &Analysis{
		prog:  prog,
		graph: graph,
		index: buildSignatureIndex(prog),
	}
}

// ReachableFrom returns every defined function the program can execute when
// control starts at entry.
//
// The result is the smallest set containing entry that is closed under
// static call edges, exact-signature resolution of indirect call sites, and
// function values passed as call arguments. External functions (no body)
// never appear in the result.
//
// On a malformed call site the partial result is returned alongside the
// error; the query is abandoned but the caller's pipeline is not.
func (a *Analysis) ReachableFrom(entry *ssa.Function) (Set[*ssa.Function], error) {
	if entry == nil {
		return nil, ErrMissingEntry
	}

	reachable := make(Set[*ssa.Function])
	a.collectDirect(entry, reachable)

	if err := a.expandIndirect(reachable); err != nil {
		return reachable, fmt.Errorf("expand indirect calls from %s: %w", entry.RelString(nil), err)
	}
	return reachable, nil
}
