package runtime

import "github.com/google/uuid"

// Gensym produces a unique symbol name so macro expansions never capture a
// user binding (SPEC_FULL §B, §C). Grounded on the teacher's use of
// `github.com/google/uuid` in internal/ext's test fixtures for generating
// collision-proof identifiers; repurposed here from "unique temp directory
// name" to "unique hygienic binding name", the same underlying need for an
// identifier nothing else in the running process could also produce.
func Gensym(prefix string) string {
	if prefix == "" {
		prefix = "G"
	}
	id := uuid.New()
	return prefix + "__" + id.String()[:8]
}
