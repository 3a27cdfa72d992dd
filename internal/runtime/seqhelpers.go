package runtime

import "github.com/clj-core/clj/internal/errs"

// LazyPanic carries an evaluation error out of a LazySeq thunk: Force()
// has no error return (spec §3.1's Seq contract is pure Go), so a thunk
// that fails panics with this type and every caller that forces a seq
// recovers it back into an ordinary error via SeqOf/SeqStep below. Both
// internal/evaluator and internal/vm force lazy seqs through these same
// three functions, so the panic/recover boundary lives in one place.
type LazyPanic struct{ Err error }

// SeqOf walks any Value through the Seqable contract (spec §3.1: nil,
// lists, vectors, sets, maps, lazy seqs, strings), recovering a LazyPanic
// from a forced thunk into a plain error.
func SeqOf(v Value) (s Seq, err error) {
	defer func() {
		if r := recover(); r != nil {
			if lp, ok := r.(LazyPanic); ok {
				s, err = nil, lp.Err
				return
			}
			panic(r)
		}
	}()
	if v == nil {
		return Nil{}.Seq(), nil
	}
	if existing, ok := v.(Seq); ok {
		return existing, nil
	}
	seqable, ok := v.(Seqable)
	if !ok {
		return nil, NewException(ExType, "value is not seqable: "+PrintValue(v), nil, errs.Position{})
	}
	return seqable.Seq(), nil
}

// SeqStep advances s by one element, recovering a LazyPanic from a
// LazySeq's Rest()/Empty() the same way SeqOf does.
func SeqStep(s Seq) (empty bool, rest Seq, first Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if lp, ok := r.(LazyPanic); ok {
				err = lp.Err
				return
			}
			panic(r)
		}
	}()
	if s.Empty() {
		return true, nil, nil, nil
	}
	return false, s.Rest(), s.First(), nil
}

// SeqToSlice fully realizes v into a slice, used by `apply`'s trailing
// coll arg and by eager pipeline operations (reduce, sort-by, group-by,
// and the VM's dedicated combinator opcodes) that need every element up
// front.
func SeqToSlice(v Value) ([]Value, error) {
	s, err := SeqOf(v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		empty, rest, first, err := SeqStep(s)
		if err != nil {
			return nil, err
		}
		if empty {
			return out, nil
		}
		out = append(out, first)
		s = rest
	}
}

// CompareValues orders the handful of types spec-level `sort-by`/`<`/`>`
// are expected to work over: numbers, strings and chars. Mixed
// incomparable types report a type_error, matching the language's other
// type mismatches (spec §3.1 gives no total order over arbitrary Values).
func CompareValues(a, b Value) (bool, error) {
	switch av := a.(type) {
	case Int:
		switch bv := b.(type) {
		case Int:
			return av < bv, nil
		case Float:
			return float64(av) < float64(bv), nil
		}
	case Float:
		switch bv := b.(type) {
		case Int:
			return float64(av) < float64(bv), nil
		case Float:
			return av < bv, nil
		}
	case String:
		if bv, ok := b.(String); ok {
			return av < bv, nil
		}
	case Char:
		if bv, ok := b.(Char); ok {
			return av < bv, nil
		}
	}
	return false, NewException(ExType,
		"cannot compare "+PrintValue(a)+" and "+PrintValue(b), nil, errs.Position{})
}

// ConjOne implements per-type `conj` semantics (spec §3.1), shared by the
// evaluator's `conj`/`into` builtins and the VM's OpConj.
func ConjOne(coll Value, x Value) (Value, error) {
	switch c := coll.(type) {
	case *Vector:
		return c.Conj(x), nil
	case *List:
		return Cons(x, c), nil
	case *Set:
		return c.Conj(x), nil
	case *PersistentMap:
		pair, ok := x.(*Vector)
		if !ok || pair.Count() != 2 {
			return nil, NewException(ExType, "conj onto a map takes a 2-element vector pair", nil, errs.Position{})
		}
		k, _ := pair.Nth(0)
		v, _ := pair.Nth(1)
		return c.Assoc(k, v), nil
	case Nil:
		return NewList(x), nil
	default:
		return nil, NewException(ExType, "cannot conj onto "+PrintValue(coll), nil, errs.Position{})
	}
}
