package runtime

import (
	"fmt"

	"github.com/clj-core/clj/internal/errs"
)

// ExceptionKind tags a runtime exception's cause, per spec §7's "kind tag"
// requirement.
type ExceptionKind string

const (
	ExUser             ExceptionKind = "user"    // raised by (throw v) where v isn't an Exception
	ExArity            ExceptionKind = "arity_error"
	ExType             ExceptionKind = "type_error"
	ExArithmetic       ExceptionKind = "arithmetic_error"
	ExNoMatchingMethod ExceptionKind = "no_matching_method"
	ExNoProtocolImpl   ExceptionKind = "no_protocol_impl"
	ExAssertion        ExceptionKind = "assertion_error"
	ExUnresolvedVar    ExceptionKind = "unresolved_var"
)

// Exception is the one runtime-error domain catchable by try/catch (spec
// §7). It is simultaneously a Value (so a catch clause can bind it) and a
// Go error (so the evaluator/VM can return it through ordinary Go error
// returns until a `try` frame intercepts it). Grounded on the teacher's
// evaluator.Error, which is likewise both an Object and an error.
type Exception struct {
	Kind    ExceptionKind
	Message string
	Data    Value // optional data map passed to ex-info, or nil
	Pos     errs.Position
	// Payload, when non-nil, is the exact Value passed to `throw` — used
	// when user code throws a plain Value rather than constructing an
	// Exception via ex-info, so `catch` can rebind the original value.
	Payload Value
}

func NewException(kind ExceptionKind, msg string, data Value, pos errs.Position) *Exception {
	return &Exception{Kind: kind, Message: msg, Data: data, Pos: pos}
}

func (e *Exception) Type() ValueType { return TypeException }
func (e *Exception) Print() string {
	return fmt.Sprintf("#<exception %s: %s>", e.Kind, e.Message)
}
func (e *Exception) Hash() uint32 { return hashString("exception:" + e.Kind + ":" + e.Message) }
func (e *Exception) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Message)
}
func (e *Exception) Position() errs.Position { return e.Pos }

// CatchValue returns the Value a `catch` clause should bind: the original
// thrown Value when `throw` was given one directly, otherwise the
// Exception itself (so `(:x (ex-data e))` in spec §8 scenario 4 works
// uniformly).
func (e *Exception) CatchValue() Value {
	if e.Payload != nil {
		return e.Payload
	}
	return e
}

// ExInfo builds the Exception backing `(ex-info msg data)` (SPEC_FULL §C).
func ExInfo(msg string, data Value, pos errs.Position) *Exception {
	return &Exception{Kind: ExUser, Message: msg, Data: data, Pos: pos}
}

// ExData projects back the :data map passed to ex-info, or Nil{} if e
// carries none — `ex-data`'s contract.
func (e *Exception) ExData() Value {
	if e.Data == nil {
		return Nil{}
	}
	return e.Data
}
