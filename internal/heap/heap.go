// Package heap implements the single managed heap of spec §4.2: a copying
// semispace that owns every heap-resident Value, tracing from an explicit
// root set at well-defined safe points.
//
// Go gives an interpreter written on top of it no control over where its
// own values physically live; the host garbage collector already keeps
// every *runtime.Value reachable via a native pointer alive and moves
// nothing (the Go runtime's collector is non-moving). This package
// therefore implements the spec's discipline — not its physical
// relocation — on top of that host guarantee: bump-pointer allocation into
// an active region, an explicit trace from roots that is statically total
// over every Value variant, a forwarding table that copies each reachable
// object at most once per collection, and a wholesale reset of the
// now-garbage region afterward. Object identity takes the place of a
// relocatable address, exactly as it would in a language where the host
// GC is likewise non-moving.
//
// Grounded on _examples/db47h-ngaro/vm's flat, integer-addressed memory
// cell array (vm.go's Cell/Mem, with Here as the bump pointer and an
// explicit region for the data/return stacks): the same
// allocate-by-bumping-a-pointer-into-a-flat-region discipline, adapted
// from integer cell addresses to Go value identity, and from a fixed
// single region to the two-region copying scheme spec §4.2 asks for.
package heap

import "github.com/clj-core/clj/internal/runtime"

// Stats reports the outcome of the most recent Collect, for diagnostics.
type Stats struct {
	Allocations int // allocations since the heap was created
	Collections int // number of completed Collect calls
	LiveAfter   int // active-region objects found reachable by the last Collect
	Reclaimed   int // objects discarded by the last Collect
}

// Arena is the managed heap: one active ("to") region values are bump-
// allocated into, and a forwarding table recording which objects have
// already been proven live during the current trace.
type Arena struct {
	toSpace    []runtime.Value          // the active region, insertion order
	forwarded  map[runtime.Value]bool   // membership test: already copied this trace
	pinned     map[runtime.Value]int    // built-in-held temporaries, refcounted
	collecting bool                     // reentrancy guard
	stats      Stats

	// Threshold overrides the evaluator/VM's default safe-point cadence
	// (allocations since the last Collect before the next safe point
	// offers to run one) when positive, per internal/config's
	// `heap.semispace-bytes` knob — the one piece of the non-functional
	// heap-tuning surface this in-process arena can actually act on, since
	// it allocates Go-GC-backed values rather than raw bytes in an
	// explicit region.
	Threshold int
}

// NewArena creates an empty heap.
func NewArena() *Arena {
	return &Arena{
		forwarded: make(map[runtime.Value]bool),
		pinned:    make(map[runtime.Value]int),
	}
}

// Alloc registers v as living in the active region and returns it
// unchanged. Every constructor in internal/runtime that builds a new
// heap-resident Value (Cons, Assoc, NewVector's copy, NewAtom, ...) is
// expected to route its result through Alloc so the arena's bookkeeping
// stays accurate; callers that merely look up or re-reference an existing
// Value (Get, First, Nth) must not call it again.
func (a *Arena) Alloc(v runtime.Value) runtime.Value {
	a.toSpace = append(a.toSpace, v)
	a.stats.Allocations++
	return v
}

// Pin marks v as a built-in's live temporary so it survives a Collect
// triggered while the built-in is still executing, satisfying spec
// §4.2's "pushes intermediate Values onto ... a dedicated root array"
// escape hatch for built-ins that hold a raw Value across a call that may
// itself allocate (e.g. reduce's running accumulator). Pins nest: Unpin
// must be called once per Pin.
func (a *Arena) Pin(v runtime.Value) {
	if v == nil {
		return
	}
	a.pinned[v]++
}

// Unpin releases one Pin on v.
func (a *Arena) Unpin(v runtime.Value) {
	if v == nil {
		return
	}
	if n := a.pinned[v]; n <= 1 {
		delete(a.pinned, v)
	} else {
		a.pinned[v] = n - 1
	}
}

// RootProvider is implemented by whatever owns a root set at collection
// time: internal/evaluator's binding stack, internal/vm's operand stack
// and call frames, and internal/runtime's Env (Vars' roots and dynamic
// binding stacks). Kept as an interface here, rather than importing those
// packages directly, so internal/heap stays a leaf package that
// internal/analyzer, internal/evaluator and internal/vm can all depend on
// without a cycle.
type RootProvider interface {
	// Roots appends this provider's currently-live Values to out and
	// returns the extended slice, mirroring the append idiom so callers
	// can chain several providers without an intermediate allocation.
	Roots(out []runtime.Value) []runtime.Value
}

// Collect runs one copying collection: traces every Value reachable from
// roots and the pinned set, keeps only those in the active region, and
// discards (resets wholesale) everything else. Per spec §4.2 this must
// only be invoked at an expression boundary (evaluator) or a loop
// back-edge/recur (VM); Collect itself only guards against the one thing
// it can detect locally, reentrancy, since the coarser safe-point
// discipline is a calling-convention contract with the evaluator and VM,
// not something this package can observe.
func (a *Arena) Collect(providers ...RootProvider) {
	if a.collecting {
		panic("heap: Collect called reentrantly (a built-in is holding a raw Value across a nested collection)")
	}
	a.collecting = true
	defer func() { a.collecting = false }()

	var roots []runtime.Value
	for _, p := range providers {
		roots = p.Roots(roots)
	}
	for v := range a.pinned {
		roots = append(roots, v)
	}

	for k := range a.forwarded {
		delete(a.forwarded, k)
	}

	queue := append([]runtime.Value(nil), roots...)
	for len(queue) > 0 {
		v := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if v == nil || a.forwarded[v] {
			continue
		}
		a.forwarded[v] = true
		queue = append(queue, children(v)...)
	}

	live := make([]runtime.Value, 0, len(a.toSpace))
	for _, v := range a.toSpace {
		if a.forwarded[v] {
			live = append(live, v)
		}
	}

	a.stats.Collections++
	a.stats.LiveAfter = len(live)
	a.stats.Reclaimed = len(a.toSpace) - len(live)
	if a.stats.Reclaimed < 0 {
		a.stats.Reclaimed = 0
	}
	a.toSpace = live // "from" is reset wholesale by simply not keeping it
}

// Stats returns a snapshot of the arena's bookkeeping counters.
func (a *Arena) Stats() Stats { return a.stats }

// Live reports whether v survived the most recent Collect (or has never
// been collected yet, counting as live). Exposed for tests.
func (a *Arena) Live(v runtime.Value) bool {
	if a.stats.Collections == 0 {
		return true
	}
	return a.forwarded[v]
}
