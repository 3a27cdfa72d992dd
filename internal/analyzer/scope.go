package analyzer

// Scope is the analyzer's lexical chain: each `let`/`loop`/`fn`/`letfn`
// binding introduces a link pointing at its parent (spec §3.4's
// lexical-scope half of the Environment). Each link carries a slot
// number, which disambiguates shadowed names; neither the tree-walking
// evaluator nor the VM compiler reads slots (both resolve locals by name). Slots are assigned from a
// counter shared by a top-level form's analysis, and each fn arity body
// starts a fresh counter, so a slot is unique within one top-level form
// body or one fn arity body.
type Scope struct {
	parent *Scope
	name   string
	slot   int

	// recur marks this link as a valid `recur` target (a `loop` or a `fn`
	// arity) and records the arity recur must match.
	recur     bool
	recurSize int
}

// slotCounter is shared by every Scope created while analyzing one
// top-level form, handed down from the Analyzer; parseFnArityForm starts
// a new one for each fn arity.
type slotCounter struct{ next int }

func (c *slotCounter) alloc() int {
	s := c.next
	c.next++
	return s
}

// bind extends s with one new name -> slot link.
func (s *Scope) bind(name string, slot int) *Scope {
	return &Scope{parent: s, name: name, slot: slot}
}

// markRecur wraps s as a recur target of the given arity (a loop's
// binding count, or a fn arity's parameter count), without introducing a
// new name.
func (s *Scope) markRecur(size int) *Scope {
	return &Scope{parent: s, recur: true, recurSize: size}
}

// lookup finds name's slot by walking outward, or reports absence so the
// caller falls through to a Var resolution.
func (s *Scope) lookup(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.slot, true
		}
	}
	return 0, false
}

// nearestRecurTarget returns the innermost enclosing loop/fn-arity size,
// used to reject a `recur` with no enclosing loop/fn and to catch an
// arity mismatch at analysis time rather than at call time. Whether the
// `recur` is in tail position of that loop/fn is not checked.
func (s *Scope) nearestRecurTarget() (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.recur {
			return cur.recurSize, true
		}
	}
	return 0, false
}
