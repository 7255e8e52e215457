package reach

import (
	"go/types"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
	"golang.org/x/tools/go/types/typeutil"
)

// signatureIndex groups the program's defined functions by the structural
// shape of their signature. Lookup and equality follow types.Identical, so
// two independently obtained descriptors of the same parameter and result
// types land in the same bucket regardless of parameter names or receivers.
//
// Functions without a body are deliberately absent: an indirect call can only
// be resolved to code that can actually be analyzed and instrumented, and
// external functions are opaque.
type signatureIndex struct {
	m typeutil.Map // *types.Signature → []*ssa.Function
}

// buildSignatureIndex indexes every defined function of prog, including
// methods and synthetic wrappers, since any of them may be invoked through a
// function value of matching shape.
func buildSignatureIndex(prog *ssa.Program) *signatureIndex {
	idx := &signatureIndex{}
	for fn := range ssautil.AllFunctions(prog) {
		if fn.Blocks == nil {
			continue
		}
		idx.add(fn.Signature, fn)
	}
	return idx
}

func (idx *signatureIndex) add(sig *types.Signature, fn *ssa.Function) {
	funcs, _ := idx.m.At(sig).([]*ssa.Function)
	idx.m.Set(sig, append(funcs, fn))
}

// lookup returns all defined functions whose signature is identical to sig.
// A signature matched only by external declarations yields nothing.
func (idx *signatureIndex) lookup(sig *types.Signature) []*ssa.Function {
	if sig == nil {
		return nil
	}
	funcs, _ := idx.m.At(sig).([]*ssa.Function)
	return funcs
}
