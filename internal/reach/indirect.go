package reach

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// expandIndirect grows reachable to its closure under indirect-call and
// callback-argument edges.
//
// Every member is scanned at most once for indirect edges (the processed
// set), and each newly discovered candidate contributes both itself and its
// entire static call tree before the worklist advances. The universe of
// defined functions is finite and reachable only grows, so the fixpoint
// terminates.
func (a *Analysis) expandIndirect(reachable Set[*ssa.Function]) error {
	queue := make([]*ssa.Function, 0, len(reachable))
	for fn := range reachable {
		queue = append(queue, fn)
	}
	processed := make(Set[*ssa.Function], len(reachable))

	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		if !processed.Add(fn) {
			continue
		}

		candidates, err := a.calledIndirectly(fn)
		if err != nil {
			return err
		}
		for _, c := range candidates {
			if !reachable.Add(c) {
				continue
			}
			queue = append(queue, c)

			// Pull in everything statically reachable from the new candidate
			// so the set is never left with a partially expanded subtree.
			direct := make(Set[*ssa.Function])
			a.collectDirect(c, direct)
			for d := range direct {
				if reachable.Add(d) {
					queue = append(queue, d)
				}
			}
		}
	}
	return nil
}

// calledIndirectly returns the candidate targets of fn's indirect calls plus
// every function value handed to a callee as an argument, deduplicated in
// discovery order. A function without a body contributes nothing.
func (a *Analysis) calledIndirectly(fn *ssa.Function) ([]*ssa.Function, error) {
	var out []*ssa.Function
	seen := make(Set[*ssa.Function])
	add := func(f *ssa.Function) {
		if f.Blocks != nil && seen.Add(f) {
			out = append(out, f)
		}
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			site, ok := instr.(ssa.CallInstruction)
			if !ok {
				continue
			}
			if err := a.resolveSite(fn, site.Common(), add); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// resolveSite feeds add with the candidate callees of one call site.
//
// An unresolved call contributes every defined function whose signature is
// identical to the called type. Arguments are inspected regardless of how
// the call itself resolves: a function value passed directly is a candidate
// callback, and a function-typed argument slot conservatively matches all
// same-signature functions since the concrete value is not statically known
// here.
func (a *Analysis) resolveSite(fn *ssa.Function, common *ssa.CallCommon, add func(*ssa.Function)) error {
	if common.StaticCallee() == nil {
		sig, err := calledSignature(common)
		if err != nil {
			return fmt.Errorf("call site in %s: %w", fn.RelString(nil), err)
		}
		for _, cand := range a.index.lookup(sig) {
			add(cand)
		}
	}

	for _, arg := range common.Args {
		switch v := arg.(type) {
		case *ssa.Function:
			add(v)
		case *ssa.MakeClosure:
			if f, ok := v.Fn.(*ssa.Function); ok {
				add(f)
			}
		default:
			if sig, ok := arg.Type().Underlying().(*types.Signature); ok {
				for _, cand := range a.index.lookup(sig) {
					add(cand)
				}
			}
		}
	}
	return nil
}

// calledSignature extracts the signature of an unresolved call expression.
// A callee whose type is not a function signature means the SSA form is
// malformed; that is an invariant violation, not a user error.
func calledSignature(common *ssa.CallCommon) (*types.Signature, error) {
	if common.IsInvoke() {
		sig, ok := common.Method.Type().(*types.Signature)
		if !ok {
			return nil, fmt.Errorf("invoked method %s has non-signature type %s", common.Method.Name(), common.Method.Type())
		}
		return sig, nil
	}
	if _, ok := common.Value.(*ssa.Builtin); ok {
		// Builtins are not defined functions and never match the index.
		return nil, nil
	}
	sig, ok := common.Value.Type().Underlying().(*types.Signature)
	if !ok {
		return nil, fmt.Errorf("callee %s has non-function type %s", common.Value.Name(), common.Value.Type())
	}
	return sig, nil
}
