package analyzer

import (
	"fmt"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/runtime"
)

// MacroInvoker calls a macro function Value with its (unevaluated,
// quoted) argument Values and returns the Form-shaped Value it produces.
// The Analyzer cannot invoke a function itself — that needs the full
// Eval/Apply machinery internal/evaluator owns, and evaluator already
// imports analyzer (for Node), so the dependency must run the other way:
// the evaluator constructs an Analyzer and hands it a closure over its
// own Apply, satisfying spec §4.3 step 6's "macro invocation runs on the
// evaluator with a context carrying the current environment."
type MacroInvoker func(fn runtime.Value, args []runtime.Value) (runtime.Value, error)

// Analyzer turns Forms into Nodes (spec §4.3). One Analyzer is shared by
// an entire REPL/file session so that `def`-interned Vars and macro
// definitions from earlier top-level forms are visible to later ones.
type Analyzer struct {
	Env    *runtime.Env
	Invoke MacroInvoker
}

func New(env *runtime.Env) *Analyzer {
	return &Analyzer{Env: env}
}

// AnalyzeTop analyzes one top-level form with a fresh slot counter, per
// spec §4.3 (a later top-level form does not share lexical slots with an
// earlier one; only the Env's Vars persist across top-level forms).
func (a *Analyzer) AnalyzeTop(f *ast.Form) (*Node, error) {
	return a.analyze(f, nil, &slotCounter{})
}

// analyze is the recursive entry point: literal lowering, collection
// literals, symbol resolution, special forms, then macro expansion,
// finally falling through to an ordinary call (spec §4.3 steps 1-6).
func (a *Analyzer) analyze(f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	switch f.Kind {
	case ast.KindNil:
		return &Node{Kind: KConstant, Pos: f.Pos, Const: runtime.Nil{}}, nil
	case ast.KindBool:
		return &Node{Kind: KConstant, Pos: f.Pos, Const: runtime.Bool(f.Bool)}, nil
	case ast.KindInt:
		return &Node{Kind: KConstant, Pos: f.Pos, Const: runtime.Int(f.Int)}, nil
	case ast.KindFloat:
		return &Node{Kind: KConstant, Pos: f.Pos, Const: runtime.Float(f.Float)}, nil
	case ast.KindChar:
		return &Node{Kind: KConstant, Pos: f.Pos, Const: runtime.Char(f.Char)}, nil
	case ast.KindString:
		return &Node{Kind: KConstant, Pos: f.Pos, Const: runtime.String(f.Str)}, nil
	case ast.KindKeyword:
		return &Node{Kind: KConstant, Pos: f.Pos, Const: runtime.InternKeyword(f.NS, f.Str)}, nil
	case ast.KindSymbol:
		return a.analyzeSymbol(f, scope)
	case ast.KindVector:
		return a.analyzeCollection(f, scope, sc, "vector")
	case ast.KindSet:
		return a.analyzeCollection(f, scope, sc, "hash-set")
	case ast.KindMap:
		return a.analyzeCollection(f, scope, sc, "hash-map")
	case ast.KindList:
		return a.analyzeList(f, scope, sc)
	default:
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, fmt.Sprintf("unknown form kind %v", f.Kind))
	}
}

func (a *Analyzer) analyzeSymbol(f *ast.Form, scope *Scope) (*Node, error) {
	if f.NS == "" {
		if slot, ok := scope.lookup(f.Str); ok {
			return &Node{Kind: KLocalRef, Pos: f.Pos, Name: f.Str, Slot: slot}, nil
		}
	}
	v, ok := a.Env.Resolve(f.NS, f.Str)
	if !ok {
		return nil, errs.NewAnalyzeError(errs.UnresolvedSymbol, f.Pos,
			fmt.Sprintf("unable to resolve symbol: %s", f.QualifiedName()))
	}
	return &Node{Kind: KVarRef, Pos: f.Pos, Var: v}, nil
}

// analyzeCollection lowers a literal vector/set/map: spec §4.3 step 2
// folds it to a constant Node when every element is itself constant,
// otherwise lowers to a call of the corresponding built-in constructor so
// that nested non-constant expressions are still evaluated in order.
func (a *Analyzer) analyzeCollection(f *ast.Form, scope *Scope, sc *slotCounter, ctor string) (*Node, error) {
	items := make([]*Node, len(f.Items))
	allConst := true
	for i, it := range f.Items {
		n, err := a.analyze(it, scope, sc)
		if err != nil {
			return nil, err
		}
		items[i] = n
		if n.Kind != KConstant {
			allConst = false
		}
	}
	if allConst {
		vals := make([]runtime.Value, len(items))
		for i, n := range items {
			vals[i] = n.Const
		}
		return &Node{Kind: KConstant, Pos: f.Pos, Const: foldCollection(ctor, vals)}, nil
	}
	fnNode, err := a.analyzeSymbol(ast.Sym("", ctor, f.Pos), scope)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KCall, Pos: f.Pos, Fn: fnNode, Args: items}, nil
}

func foldCollection(ctor string, vals []runtime.Value) runtime.Value {
	switch ctor {
	case "vector":
		return runtime.NewVector(vals...)
	case "hash-set":
		return runtime.NewSet(vals...)
	case "hash-map":
		return runtime.NewMap(vals...)
	default:
		return runtime.Nil{}
	}
}

// analyzeList dispatches a list form: the empty list is itself a
// constant, a special-form or macro head is recognized by name, and
// everything else is an ordinary call.
func (a *Analyzer) analyzeList(f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) == 0 {
		return &Node{Kind: KConstant, Pos: f.Pos, Const: runtime.EmptyList}, nil
	}
	head := f.Items[0]
	if head.Kind == ast.KindSymbol && head.NS == "" {
		if fn, ok := specialForms[head.Str]; ok {
			return fn(a, f, scope, sc)
		}
		if expand, ok := builtinMacros[head.Str]; ok {
			expanded, err := expand(f)
			if err != nil {
				return nil, err
			}
			return a.analyze(expanded, scope, sc)
		}
		// User macro expansion (spec §4.3 step 6): a Var marked :macro is
		// invoked with the unevaluated argument Forms (quoted) and its
		// result re-analyzed. The actual invocation runs on the evaluator
		// (it needs Eval machinery this package must not import), so
		// expandUserMacro calls the macro through the evaluator-supplied
		// Invoke hook and the returned Form is re-analyzed here.
		if v, ok := a.Env.Resolve("", head.Str); ok && v.IsMacro {
			expanded, err := a.expandUserMacro(v, f, scope, sc)
			if err != nil {
				return nil, err
			}
			if expanded != nil {
				return a.analyze(expanded, scope, sc)
			}
		}
	}
	return a.analyzeCall(f, scope, sc)
}

// expandUserMacro runs one step of spec §4.3's step 6: the macro Fn is
// invoked with its raw argument Forms converted to quoted Values, and the
// returned Value is converted back into a Form for re-analysis.
func (a *Analyzer) expandUserMacro(v *runtime.Var, f *ast.Form, scope *Scope, sc *slotCounter) (*ast.Form, error) {
	if a.Invoke == nil {
		return nil, errs.NewAnalyzeError(errs.MacroExpansionError, f.Pos,
			fmt.Sprintf("macro %s cannot be expanded: no evaluator wired for macro invocation", v.Name))
	}
	args := make([]runtime.Value, len(f.Items)-1)
	for i, it := range f.Items[1:] {
		args[i] = formToValue(it)
	}
	result, err := a.Invoke(v.Get(), args)
	if err != nil {
		return nil, errs.NewAnalyzeError(errs.MacroExpansionError, f.Pos,
			fmt.Sprintf("macro %s expansion failed: %s", v.Name, err))
	}
	return valueToForm(result, f.Pos), nil
}

func (a *Analyzer) analyzeCall(f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	fnNode, err := a.analyze(f.Items[0], scope, sc)
	if err != nil {
		return nil, err
	}
	args := make([]*Node, len(f.Items)-1)
	for i, it := range f.Items[1:] {
		n, err := a.analyze(it, scope, sc)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	return &Node{Kind: KCall, Pos: f.Pos, Fn: fnNode, Args: args}, nil
}

// analyzeBody analyzes a sequence of Forms sharing one scope/slotCounter,
// used by do/let/fn/try bodies.
func (a *Analyzer) analyzeBody(forms []*ast.Form, scope *Scope, sc *slotCounter) ([]*Node, error) {
	out := make([]*Node, len(forms))
	for i, f := range forms {
		n, err := a.analyze(f, scope, sc)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// formToValue converts a Form into the literal Value `quote` denotes
// (spec §3.3 `quote(value)`), without analyzing it: a quoted list is a
// runtime.List of (recursively quoted) elements, never a call.
func formToValue(f *ast.Form) runtime.Value {
	switch f.Kind {
	case ast.KindNil:
		return runtime.Nil{}
	case ast.KindBool:
		return runtime.Bool(f.Bool)
	case ast.KindInt:
		return runtime.Int(f.Int)
	case ast.KindFloat:
		return runtime.Float(f.Float)
	case ast.KindChar:
		return runtime.Char(f.Char)
	case ast.KindString:
		return runtime.String(f.Str)
	case ast.KindSymbol:
		return runtime.InternSymbol(f.NS, f.Str)
	case ast.KindKeyword:
		return runtime.InternKeyword(f.NS, f.Str)
	case ast.KindList:
		vals := make([]runtime.Value, len(f.Items))
		for i, it := range f.Items {
			vals[i] = formToValue(it)
		}
		return runtime.NewList(vals...)
	case ast.KindVector:
		vals := make([]runtime.Value, len(f.Items))
		for i, it := range f.Items {
			vals[i] = formToValue(it)
		}
		return runtime.NewVector(vals...)
	case ast.KindSet:
		vals := make([]runtime.Value, len(f.Items))
		for i, it := range f.Items {
			vals[i] = formToValue(it)
		}
		return runtime.NewSet(vals...)
	case ast.KindMap:
		vals := make([]runtime.Value, len(f.Items))
		for i, it := range f.Items {
			vals[i] = formToValue(it)
		}
		return runtime.NewMap(vals...)
	default:
		return runtime.Nil{}
	}
}

// valueToForm is quote's inverse, needed so a macro expansion produced as
// data (e.g. by a user macro returning a built list) can be re-analyzed
// as code. Pos is attached uniformly since synthesized code has no single
// source location of its own.
func valueToForm(v runtime.Value, pos errs.Position) *ast.Form {
	switch val := v.(type) {
	case runtime.Nil:
		return ast.Nil(pos)
	case runtime.Bool:
		return ast.Bool(bool(val), pos)
	case runtime.Int:
		return ast.Int(int64(val), pos)
	case runtime.Float:
		return ast.Float(float64(val), pos)
	case runtime.Char:
		return ast.Char(rune(val), pos)
	case runtime.String:
		return ast.Str(string(val), pos)
	case *runtime.Symbol:
		return ast.Sym(val.NS, val.Name, pos)
	case *runtime.Keyword:
		return ast.Kw(val.NS, val.Name, pos)
	case *runtime.Vector:
		items := make([]*ast.Form, val.Count())
		for i, it := range val.Items() {
			items[i] = valueToForm(it, pos)
		}
		return ast.Vector(items, pos)
	case *runtime.Set:
		its := val.Items()
		items := make([]*ast.Form, len(its))
		for i, it := range its {
			items[i] = valueToForm(it, pos)
		}
		return ast.SetForm(items, pos)
	case *runtime.PersistentMap:
		var items []*ast.Form
		for _, e := range val.Entries() {
			items = append(items, valueToForm(e.Key, pos), valueToForm(e.Val, pos))
		}
		return ast.MapForm(items, pos)
	default:
		// Lists, and anything Seqable (lazy seqs, cons cells), are the
		// common case for macro return values built with list/cons.
		if s, ok := v.(runtime.Seqable); ok {
			var items []*ast.Form
			for cur := s.Seq(); !cur.Empty(); cur = cur.Rest() {
				items = append(items, valueToForm(cur.First(), pos))
			}
			return ast.List(items, pos)
		}
		return ast.Nil(pos)
	}
}
