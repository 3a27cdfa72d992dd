// Package errs defines the two ahead-of-execution error domains of the
// language: reader errors and analyzer errors. The third domain, catchable
// runtime exceptions, lives in internal/runtime as the Exception Value
// variant, since a runtime exception must be assignable to a catch binding
// and therefore must satisfy Value, which this package cannot import without
// a cycle.
package errs

import "fmt"

// Position is a source location, carried by Forms, Nodes and errors alike.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}
