package runtime

import "strings"

// List is a persistent singly-linked list, Clojure's cons-cell sequence.
// Every operation returns a new list; existing references observe the old
// contents (spec §3.1's persistence invariant). Grounded on
// internal/evaluator/object_collections.go's List, generalized from a
// slice-backed value to a cons-cell representation so that `conj`/`cons`
// on a list is O(1) and structure-sharing, matching the mainstream
// contract spec §9(b) asks us to follow.
type List struct {
	head Value
	tail *List // nil tail means empty
	len  int
}

// EmptyList is the canonical empty list singleton.
var EmptyList = &List{}

func NewList(items ...Value) *List {
	l := EmptyList
	for i := len(items) - 1; i >= 0; i-- {
		l = l.Cons(items[i])
	}
	return l
}

func (l *List) Type() ValueType { return TypeList }

func (l *List) IsEmpty() bool { return l == nil || l.tail == nil && l.head == nil && l.len == 0 }

func (l *List) Count() int { return l.len }

// Cons returns a new list with v prepended; l is untouched.
func (l *List) Cons(v Value) *List {
	return &List{head: v, tail: l, len: l.len + 1}
}

func (l *List) First() Value {
	if l.IsEmpty() {
		return Nil{}
	}
	return l.head
}

func (l *List) restList() *List {
	if l.IsEmpty() || l.tail == nil {
		return EmptyList
	}
	return l.tail
}

// Seq/Seqable implementation: a List already is its own Seq.
func (l *List) Seq() Seq {
	if l.IsEmpty() {
		return emptySeq{}
	}
	return l
}
func (l *List) Empty() bool { return l.IsEmpty() }
func (l *List) Rest() Seq   { return l.restList().Seq() }

func (l *List) ToSlice() []Value {
	out := make([]Value, 0, l.len)
	for cur := l; !cur.IsEmpty(); cur = cur.restList() {
		out = append(out, cur.head)
	}
	return out
}

func (l *List) Print() string {
	var sb strings.Builder
	sb.WriteByte('(')
	first := true
	for cur := l; !cur.IsEmpty(); cur = cur.restList() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(PrintValue(cur.head))
	}
	sb.WriteByte(')')
	return sb.String()
}

func (l *List) Hash() uint32 { return hashSeq(l) }

// printSeq/hashSeq are shared by every sequential Seqable (list, vector,
// lazy-seq-once-realized, string-as-char-seq) so that spec §9(c)'s
// "sequential collections of equal elements are =" rule has one place
// computing both sides of the equality the spec requires.
func printSeq(s Seq) string {
	var sb strings.Builder
	sb.WriteByte('(')
	first := true
	for cur := s; !cur.Empty(); cur = cur.Rest() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(PrintValue(cur.First()))
	}
	sb.WriteByte(')')
	return sb.String()
}

func hashSeq(s Seq) uint32 {
	var hs []uint32
	for cur := s; !cur.Empty(); cur = cur.Rest() {
		hs = append(hs, HashValue(cur.First()))
	}
	return combineHashOrdered(hs...)
}
