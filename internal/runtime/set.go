package runtime

import "strings"

// Set is a persistent unordered(-by-contract)-but-insertion-ordered
// collection of distinct Values, built the same way PersistentMap is (an
// ordered entry list plus a lazily-built HAMT presence index), since a set
// is exactly a map discarding its values. Grounded on
// internal/evaluator/persistent_map.go via PersistentMap, reused by
// composition rather than duplicated.
type Set struct {
	m *PersistentMap
}

var emptySetSingleton = &Set{m: EmptyMap()}

func EmptySet() *Set { return emptySetSingleton }

func NewSet(items ...Value) *Set {
	m := EmptyMap()
	for _, it := range items {
		m = m.Assoc(it, Bool(true))
	}
	return &Set{m: m}
}

func (s *Set) Type() ValueType { return TypeSet }
func (s *Set) Count() int      { return s.m.Count() }

func (s *Set) Contains(v Value) bool {
	_, ok := s.m.Get(v)
	return ok
}

func (s *Set) Conj(v Value) *Set {
	if s.Contains(v) {
		return s
	}
	return &Set{m: s.m.Assoc(v, Bool(true))}
}

func (s *Set) Disj(v Value) *Set {
	if !s.Contains(v) {
		return s
	}
	return &Set{m: s.m.Dissoc(v)}
}

func (s *Set) Items() []Value { return s.m.Keys() }

func (s *Set) Seq() Seq {
	items := s.Items()
	if len(items) == 0 {
		return emptySeq{}
	}
	return NewList(items...)
}

func (s *Set) Print() string {
	var sb strings.Builder
	sb.WriteString("#{")
	for i, it := range s.Items() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(PrintValue(it))
	}
	sb.WriteByte('}')
	return sb.String()
}

func (s *Set) Hash() uint32 {
	var hs []uint32
	for _, it := range s.Items() {
		hs = append(hs, HashValue(it))
	}
	return combineHashUnordered(hs...)
}
