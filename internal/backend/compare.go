package backend

import (
	"io"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/heap"
	"github.com/clj-core/clj/internal/runtime"
)

// Divergence reports the first point at which the two backends disagreed:
// either the returned Values aren't structurally equal (spec §4.5's final
// bullet, "=" per spec §3.3), or one backend threw and the other didn't, or
// both threw but with different Exception kinds. Pos is the offending
// top-level Form's source position, per spec §7's "differences are
// reported with the offending Node's source position" — this backend
// doesn't retain the analyzer.Node past each RunTop call, so the Form's own
// position (identical to its root Node's) stands in for it.
type Divergence struct {
	Pos      errs.Position
	Reason   string
	EvalVal  runtime.Value
	EvalErr  error
	VMVal    runtime.Value
	VMErr    error
}

// Compare runs every Form through a fresh Evaluator and a fresh VM, each
// over its own independent Env/Arena pair so neither backend's def/atom
// side effects leak into the other's run, and returns the first Divergence
// found (nil if every form produced equal results). Both backends' print
// output is discarded: compare mode is a correctness oracle, not a way to
// run a program, so doubling its visible side effects would be surprising.
func Compare(forms []*ast.Form) (*Divergence, error) {
	tw := NewTreeWalk(runtime.NewEnv(), heap.NewArena(), io.Discard)
	vmb := NewVM(runtime.NewEnv(), heap.NewArena(), io.Discard)

	for _, f := range forms {
		evalVal, evalErr := tw.RunTop(f)
		vmVal, vmErr := vmb.RunTop(f)

		if d := diverge(f.Pos, evalVal, evalErr, vmVal, vmErr); d != nil {
			return d, nil
		}
	}
	return nil, nil
}

func diverge(pos errs.Position, evalVal runtime.Value, evalErr error, vmVal runtime.Value, vmErr error) *Divergence {
	evalExc, evalThrew := evalErr.(*runtime.Exception)
	vmExc, vmThrew := vmErr.(*runtime.Exception)

	switch {
	case evalErr == nil && vmErr == nil:
		if !runtime.ValuesEqual(evalVal, vmVal) {
			return &Divergence{Pos: pos, Reason: "results not equal", EvalVal: evalVal, VMVal: vmVal}
		}
		return nil
	case evalErr != nil && vmErr != nil:
		if evalThrew && vmThrew {
			if evalExc.Kind != vmExc.Kind {
				return &Divergence{Pos: pos, Reason: "exception kinds differ", EvalErr: evalErr, VMErr: vmErr}
			}
			return nil
		}
		if evalThrew != vmThrew {
			return &Divergence{Pos: pos, Reason: "one backend raised a non-exception error", EvalErr: evalErr, VMErr: vmErr}
		}
		// both errored for a reason neither could catch (a ReadError/
		// AnalyzeError surfacing straight through RunTop); treat matching
		// Go error text as agreement rather than forcing exact type parity.
		if evalErr.Error() != vmErr.Error() {
			return &Divergence{Pos: pos, Reason: "errors differ", EvalErr: evalErr, VMErr: vmErr}
		}
		return nil
	default:
		return &Divergence{Pos: pos, Reason: "only one backend raised an error", EvalVal: evalVal, EvalErr: evalErr, VMVal: vmVal, VMErr: vmErr}
	}
}
