package runtime

// PrintValue renders v using the canonical printer contract of spec §6:
// re-reading the result yields an equal value, with the documented
// exceptions of functions/atoms/opaque handles which print as
// `#<...>` tags. Consolidated into one entry point (rather than spread
// across object_*.go Inspect() methods as the teacher does) because the
// round-trip property is a tested invariant that needs one place provably
// total over every Value variant (spec §4.2's "statically total over
// variants" discipline, applied here to printing instead of GC tracing).
func PrintValue(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Print()
}

// Str implements Clojure's `str`: like Print but strings/chars render their
// raw content instead of a re-readable literal.
func Str(v Value) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case Nil:
		return ""
	case String:
		return string(vv)
	case Char:
		return string(rune(vv))
	default:
		return v.Print()
	}
}
