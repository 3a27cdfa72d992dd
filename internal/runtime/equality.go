package runtime

// ValuesEqual implements the structural `=` of spec §3.1: integer and float
// compare numerically across tags (1 = 1.0), sequential collections
// (list/vector/lazy-seq once realized/string-as-chars) compare
// element-wise regardless of concrete tag (spec §9(c)), and maps/sets
// compare as unordered collections of entries.
func ValuesEqual(a, b Value) bool {
	if a == nil {
		a = Nil{}
	}
	if b == nil {
		b = Nil{}
	}
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return float64(av) == float64(bv)
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Int:
			return float64(av) == float64(bv)
		case Float:
			return av == bv
		}
		return false
	case Char:
		bv, ok := b.(Char)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		if ok {
			return av == bv
		}
		return sequentialEqual(a, b)
	case *Symbol:
		bv, ok := b.(*Symbol)
		return ok && av.NS == bv.NS && av.Name == bv.Name
	case *Keyword:
		bv, ok := b.(*Keyword)
		return ok && av.NS == bv.NS && av.Name == bv.Name
	case *PersistentMap:
		bv, ok := b.(*PersistentMap)
		if !ok || av.Count() != bv.Count() {
			return false
		}
		for _, e := range av.Entries() {
			ov, ok := bv.Get(e.Key)
			if !ok || !ValuesEqual(e.Val, ov) {
				return false
			}
		}
		return true
	case *Set:
		bv, ok := b.(*Set)
		if !ok || av.Count() != bv.Count() {
			return false
		}
		for _, it := range av.Items() {
			if !bv.Contains(it) {
				return false
			}
		}
		return true
	}
	// Sequential collections (list, vector, lazy-seq, string-as-chars) are
	// = to each other when their elements match pairwise, per spec §9(c).
	if isSequential(a) && isSequential(b) {
		return sequentialEqual(a, b)
	}
	return false
}

func isSequential(v Value) bool {
	switch v.(type) {
	case *List, *Vector, *LazySeq, Seq:
		return true
	}
	_, ok := v.(Seqable)
	return ok
}

func sequentialEqual(a, b Value) bool {
	as, aok := toSeq(a)
	bs, bok := toSeq(b)
	if !aok || !bok {
		return false
	}
	for {
		if as.Empty() != bs.Empty() {
			return false
		}
		if as.Empty() {
			return true
		}
		if !ValuesEqual(as.First(), bs.First()) {
			return false
		}
		as, bs = as.Rest(), bs.Rest()
	}
}

func toSeq(v Value) (Seq, bool) {
	if s, ok := v.(Seq); ok {
		return s, true
	}
	if s, ok := v.(Seqable); ok {
		return s.Seq(), true
	}
	return nil, false
}

// HashValue must agree with ValuesEqual: a = b implies equal hashes.
func HashValue(v Value) uint32 {
	if v == nil {
		return Nil{}.Hash()
	}
	switch vv := v.(type) {
	case Int:
		return vv.Hash()
	case Float:
		// Cross-tag numeric equality (1 = 1.0) requires equal hashes when
		// the float has an exact integer value.
		if float64(int64(vv)) == float64(vv) {
			return Int(int64(vv)).Hash()
		}
		return vv.Hash()
	default:
		return v.Hash()
	}
}
