package errs

import "fmt"

// AnalyzeErrorKind enumerates malformed-program cases the analyzer
// recognizes: bad special forms, unresolved symbols, misplaced recur.
type AnalyzeErrorKind string

const (
	UnresolvedSymbol    AnalyzeErrorKind = "unresolved_symbol"
	MalformedBinding    AnalyzeErrorKind = "malformed_binding"
	MisplacedRecur      AnalyzeErrorKind = "misplaced_recur"
	BadArity            AnalyzeErrorKind = "bad_arity"
	BadSpecialForm      AnalyzeErrorKind = "bad_special_form"
	BadDestructure      AnalyzeErrorKind = "bad_destructure"
	MacroExpansionError AnalyzeErrorKind = "macro_expansion_error"
)

// AnalyzeError is returned by the analyzer. Like ReadError, it is never
// catchable from inside the language; it aborts analysis of the top-level
// form and surfaces directly to the driver.
type AnalyzeError struct {
	Kind AnalyzeErrorKind
	Pos  Position
	Msg  string
}

func (e *AnalyzeError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Pos, e.Msg, e.Kind)
}

func NewAnalyzeError(kind AnalyzeErrorKind, pos Position, msg string) *AnalyzeError {
	return &AnalyzeError{Kind: kind, Pos: pos, Msg: msg}
}
