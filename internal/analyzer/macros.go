package analyzer

import (
	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/runtime"
)

// macroExpandFn rewrites one built-in-macro call Form into the Form it
// stands for; the analyzer re-analyzes the result (spec §4.3 step 5:
// "Each produces a Form that is re-analyzed, so expansion composes").
type macroExpandFn func(f *ast.Form) (*ast.Form, error)

var builtinMacros map[string]macroExpandFn

func init() {
	builtinMacros = map[string]macroExpandFn{
		"cond":           expandCond,
		"when":           expandWhen,
		"when-not":       expandWhenNot,
		"if-not":         expandIfNot,
		"if-let":         expandIfLet,
		"when-let":       expandWhenLet,
		"if-some":        expandIfSome,
		"when-some":      expandWhenSome,
		"and":            expandAnd,
		"or":             expandOr,
		"->":             expandThreadFirst,
		"->>":            expandThreadLast,
		"some->":         expandSomeThreadFirst,
		"some->>":        expandSomeThreadLast,
		"as->":           expandAsThread,
		"cond->":         expandCondThreadFirst,
		"cond->>":        expandCondThreadLast,
		"case":           expandCase,
		"condp":          expandCondp,
		"dotimes":        expandDotimes,
		"doseq":          expandDoseq,
		"for":            expandFor,
		"while":          expandWhile,
		"doto":           expandDoto,
		"defn":           expandDefn,
		"defn-":          expandDefn,
		"defonce":        expandDefonce,
		"declare":        expandDeclare,
		"assert":         expandAssert,
		"comment":        expandComment,
		"complement":     expandComplement,
		"constantly":     expandConstantly,
		"some-fn":        expandSomeFn,
		"every-pred":     expandEveryPred,
		"fnil":           expandFnil,
		"update":         expandUpdate,
		"extend-protocol": expandExtendProtocol,
		"every?":         expandEveryPred_,
		"some":           expandSome,
		"not-every?":     expandNotEvery,
		"not-any?":       expandNotAny,
		"mapv":           expandMapv,
		"filterv":        expandFilterv,
		"mapcat":         expandMapcat,
		"keep":           expandKeep,
		"keep-indexed":   expandKeepIndexed,
		"run!":           expandRunBang,
		"doall":          expandDoall,
		"dorun":          expandDorun,
		"when-first":     expandWhenFirst,
	}
}

func sym(name string, pos errs.Position) *ast.Form { return ast.Sym("", name, pos) }
func gsym(prefix string, pos errs.Position) *ast.Form {
	return ast.Sym("", runtime.Gensym(prefix), pos)
}
func lst(pos errs.Position, items ...*ast.Form) *ast.Form { return ast.List(items, pos) }
func vecOf(pos errs.Position, items ...*ast.Form) *ast.Form { return ast.Vector(items, pos) }

func expandCond(f *ast.Form) (*ast.Form, error) {
	clauses := f.Items[1:]
	if len(clauses)%2 != 0 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "cond expects an even number of test/expr forms")
	}
	return buildCond(clauses, f.Pos), nil
}

func buildCond(clauses []*ast.Form, pos errs.Position) *ast.Form {
	if len(clauses) == 0 {
		return ast.Nil(pos)
	}
	test, expr := clauses[0], clauses[1]
	if test.IsSymbolNamed(":else") {
		return expr
	}
	rest := buildCond(clauses[2:], pos)
	return lst(pos, sym("if", pos), test, expr, rest)
}

func expandWhen(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "when expects a test")
	}
	body := append([]*ast.Form{sym("do", f.Pos)}, f.Items[2:]...)
	return lst(f.Pos, sym("if", f.Pos), f.Items[1], lst(f.Pos, body...), ast.Nil(f.Pos)), nil
}

func expandWhenNot(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "when-not expects a test")
	}
	body := append([]*ast.Form{sym("do", f.Pos)}, f.Items[2:]...)
	return lst(f.Pos, sym("if", f.Pos), f.Items[1], ast.Nil(f.Pos), lst(f.Pos, body...)), nil
}

func expandIfNot(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "if-not expects (if-not test then else?)")
	}
	elseF := ast.Nil(f.Pos)
	if len(f.Items) >= 4 {
		elseF = f.Items[3]
	}
	return lst(f.Pos, sym("if", f.Pos), f.Items[1], elseF, f.Items[2]), nil
}

func bindingPairOf(f *ast.Form) (pattern, init *ast.Form, err error) {
	if len(f.Items) < 2 || f.Items[1].Kind != ast.KindVector || len(f.Items[1].Items) != 2 {
		return nil, nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "expects a single [binding init] vector")
	}
	return f.Items[1].Items[0], f.Items[1].Items[1], nil
}

func expandIfLet(f *ast.Form) (*ast.Form, error) {
	pattern, init, err := bindingPairOf(f)
	if err != nil {
		return nil, err
	}
	if len(f.Items) < 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "if-let expects a then branch")
	}
	then := f.Items[2]
	elseF := ast.Nil(f.Pos)
	if len(f.Items) >= 4 {
		elseF = f.Items[3]
	}
	tmp := gsym("iflet", f.Pos)
	innerLet := lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, pattern, tmp), then)
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, tmp, init),
		lst(f.Pos, sym("if", f.Pos), tmp, innerLet, elseF)), nil
}

func expandWhenLet(f *ast.Form) (*ast.Form, error) {
	pattern, init, err := bindingPairOf(f)
	if err != nil {
		return nil, err
	}
	tmp := gsym("whenlet", f.Pos)
	body := append([]*ast.Form{sym("do", f.Pos)}, f.Items[2:]...)
	innerLet := lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, pattern, tmp), lst(f.Pos, body...))
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, tmp, init),
		lst(f.Pos, sym("if", f.Pos), tmp, innerLet, ast.Nil(f.Pos))), nil
}

func expandIfSome(f *ast.Form) (*ast.Form, error) {
	pattern, init, err := bindingPairOf(f)
	if err != nil {
		return nil, err
	}
	if len(f.Items) < 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "if-some expects a then branch")
	}
	then := f.Items[2]
	elseF := ast.Nil(f.Pos)
	if len(f.Items) >= 4 {
		elseF = f.Items[3]
	}
	tmp := gsym("ifsome", f.Pos)
	innerLet := lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, pattern, tmp), then)
	test := lst(f.Pos, sym("nil?", f.Pos), tmp)
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, tmp, init),
		lst(f.Pos, sym("if", f.Pos), test, elseF, innerLet)), nil
}

func expandWhenSome(f *ast.Form) (*ast.Form, error) {
	pattern, init, err := bindingPairOf(f)
	if err != nil {
		return nil, err
	}
	tmp := gsym("whensome", f.Pos)
	body := append([]*ast.Form{sym("do", f.Pos)}, f.Items[2:]...)
	innerLet := lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, pattern, tmp), lst(f.Pos, body...))
	test := lst(f.Pos, sym("nil?", f.Pos), tmp)
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, tmp, init),
		lst(f.Pos, sym("if", f.Pos), test, ast.Nil(f.Pos), innerLet)), nil
}

func expandAnd(f *ast.Form) (*ast.Form, error) {
	return buildAnd(f.Items[1:], f.Pos), nil
}

func buildAnd(args []*ast.Form, pos errs.Position) *ast.Form {
	switch len(args) {
	case 0:
		return ast.Bool(true, pos)
	case 1:
		return args[0]
	default:
		tmp := gsym("and", pos)
		rest := buildAnd(args[1:], pos)
		return lst(pos, sym("let", pos), vecOf(pos, tmp, args[0]),
			lst(pos, sym("if", pos), tmp, rest, tmp))
	}
}

func expandOr(f *ast.Form) (*ast.Form, error) {
	return buildOr(f.Items[1:], f.Pos), nil
}

func buildOr(args []*ast.Form, pos errs.Position) *ast.Form {
	switch len(args) {
	case 0:
		return ast.Nil(pos)
	case 1:
		return args[0]
	default:
		tmp := gsym("or", pos)
		rest := buildOr(args[1:], pos)
		return lst(pos, sym("let", pos), vecOf(pos, tmp, args[0]),
			lst(pos, sym("if", pos), tmp, tmp, rest))
	}
}

// insertFirst inserts x as the second element of a list call (f x
// args...), or wraps (f x) when form isn't itself a call.
func insertFirst(form, x *ast.Form, pos errs.Position) *ast.Form {
	if form.Kind == ast.KindList {
		items := append([]*ast.Form{form.Items[0], x}, form.Items[1:]...)
		return ast.List(items, pos)
	}
	return lst(pos, form, x)
}

// insertLast inserts x as the last argument of a list call (f args... x),
// or wraps (f x) when form isn't itself a call.
func insertLast(form, x *ast.Form, pos errs.Position) *ast.Form {
	if form.Kind == ast.KindList {
		items := append(append([]*ast.Form{}, form.Items...), x)
		return ast.List(items, pos)
	}
	return lst(pos, form, x)
}

func expandThreadFirst(f *ast.Form) (*ast.Form, error) {
	return threadChain(f.Items[1], f.Items[2:], f.Pos, insertFirst), nil
}

func expandThreadLast(f *ast.Form) (*ast.Form, error) {
	return threadChain(f.Items[1], f.Items[2:], f.Pos, insertLast), nil
}

func threadChain(initial *ast.Form, steps []*ast.Form, pos errs.Position, insert func(form, x *ast.Form, pos errs.Position) *ast.Form) *ast.Form {
	cur := initial
	for _, step := range steps {
		cur = insert(step, cur, pos)
	}
	return cur
}

func expandSomeThreadFirst(f *ast.Form) (*ast.Form, error) {
	return someThreadChain(f.Items[1], f.Items[2:], f.Pos, insertFirst), nil
}

func expandSomeThreadLast(f *ast.Form) (*ast.Form, error) {
	return someThreadChain(f.Items[1], f.Items[2:], f.Pos, insertLast), nil
}

func someThreadChain(initial *ast.Form, steps []*ast.Form, pos errs.Position, insert func(form, x *ast.Form, pos errs.Position) *ast.Form) *ast.Form {
	if len(steps) == 0 {
		return initial
	}
	tmp := gsym("some", pos)
	stepped := insert(steps[0], tmp, pos)
	rest := someThreadChain(stepped, steps[1:], pos, insert)
	return lst(pos, sym("let", pos), vecOf(pos, tmp, initial),
		lst(pos, sym("if", pos), lst(pos, sym("nil?", pos), tmp), ast.Nil(pos), rest))
}

func expandAsThread(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "as-> expects (as-> expr name forms...)")
	}
	expr, name := f.Items[1], f.Items[2]
	bindings := []*ast.Form{name, expr}
	for _, step := range f.Items[3:] {
		bindings = append(bindings, name, step)
	}
	return lst(f.Pos, sym("let", f.Pos), ast.Vector(bindings, f.Pos), name), nil
}

func expandCondThreadFirst(f *ast.Form) (*ast.Form, error) {
	return condThread(f, insertFirst)
}

func expandCondThreadLast(f *ast.Form) (*ast.Form, error) {
	return condThread(f, insertLast)
}

func condThread(f *ast.Form, insert func(form, x *ast.Form, pos errs.Position) *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "cond-> expects (cond-> expr test1 form1 ...)")
	}
	clauses := f.Items[2:]
	if len(clauses)%2 != 0 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "cond-> expects an even number of test/form pairs")
	}
	name := gsym("condthread", f.Pos)
	bindings := []*ast.Form{name, f.Items[1]}
	for i := 0; i+1 < len(clauses); i += 2 {
		test, step := clauses[i], clauses[i+1]
		stepped := insert(step, name, f.Pos)
		bindings = append(bindings, name, lst(f.Pos, sym("if", f.Pos), test, stepped, name))
	}
	return lst(f.Pos, sym("let", f.Pos), ast.Vector(bindings, f.Pos), name), nil
}

func expandCase(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "case expects (case e clauses...)")
	}
	e := f.Items[1]
	tmp := gsym("case", f.Pos)
	body := buildCaseClauses(tmp, f.Items[2:], f.Pos)
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, tmp, e), body), nil
}

func buildCaseClauses(tmp *ast.Form, clauses []*ast.Form, pos errs.Position) *ast.Form {
	if len(clauses) == 0 {
		return lst(pos, sym("throw", pos), lst(pos, sym("ex-info", pos),
			ast.Str("No matching clause", pos), ast.MapForm(nil, pos)))
	}
	if len(clauses) == 1 {
		// trailing default expression
		return clauses[0]
	}
	test, expr := clauses[0], clauses[1]
	eqTest := lst(pos, sym("=", pos), tmp, test)
	rest := buildCaseClauses(tmp, clauses[2:], pos)
	return lst(pos, sym("if", pos), eqTest, expr, rest)
}

func expandCondp(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "condp expects (condp pred expr clauses...)")
	}
	pred, e := f.Items[1], f.Items[2]
	tmp := gsym("condp", f.Pos)
	body := buildCondpClauses(pred, tmp, f.Items[3:], f.Pos)
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, tmp, e), body), nil
}

func buildCondpClauses(pred, tmp *ast.Form, clauses []*ast.Form, pos errs.Position) *ast.Form {
	if len(clauses) == 0 {
		return lst(pos, sym("throw", pos), lst(pos, sym("ex-info", pos),
			ast.Str("No matching clause", pos), ast.MapForm(nil, pos)))
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	test, result := clauses[0], clauses[1]
	rest := buildCondpClauses(pred, tmp, clauses[2:], pos)
	return lst(pos, sym("if", pos), lst(pos, pred, test, tmp), result, rest)
}

func expandDotimes(f *ast.Form) (*ast.Form, error) {
	pattern, init, err := bindingPairOf(f)
	if err != nil {
		return nil, err
	}
	if pattern.Kind != ast.KindSymbol {
		return nil, errs.NewAnalyzeError(errs.BadDestructure, pattern.Pos, "dotimes binding must be a symbol")
	}
	body := append([]*ast.Form{sym("do", f.Pos)}, f.Items[2:]...)
	cond := lst(f.Pos, sym("<", f.Pos), pattern, init)
	recurCall := lst(f.Pos, sym("recur", f.Pos), lst(f.Pos, sym("inc", f.Pos), pattern))
	loopBody := lst(f.Pos, sym("when", f.Pos), cond, lst(f.Pos, body...), recurCall)
	return lst(f.Pos, sym("loop", f.Pos), vecOf(f.Pos, pattern, ast.Int(0, f.Pos)), loopBody), nil
}

func expandDoseq(f *ast.Form) (*ast.Form, error) {
	pattern, coll, err := bindingPairOf(f)
	if err != nil {
		return nil, err
	}
	s := gsym("doseq", f.Pos)
	body := append([]*ast.Form{sym("do", f.Pos)}, f.Items[2:]...)
	letBody := lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, pattern, lst(f.Pos, sym("first", f.Pos), s)), lst(f.Pos, body...))
	recurCall := lst(f.Pos, sym("recur", f.Pos), lst(f.Pos, sym("next", f.Pos), s))
	loopBody := lst(f.Pos, sym("when", f.Pos), s, letBody, recurCall)
	return lst(f.Pos, sym("loop", f.Pos), vecOf(f.Pos, s, lst(f.Pos, sym("seq", f.Pos), coll)), loopBody), nil
}

// expandFor implements a single-binding list comprehension as a lazy
// map, a deliberate simplification of Clojure's multi-clause, filtering
// `for`: it iterates a single binding lazily and does not support the
// full nested-clause/​`:when`/`:while` grammar.
func expandFor(f *ast.Form) (*ast.Form, error) {
	pattern, coll, err := bindingPairOf(f)
	if err != nil {
		return nil, err
	}
	if len(f.Items) < 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "for expects a body expression")
	}
	fnForm := lst(f.Pos, sym("fn", f.Pos), vecOf(f.Pos, pattern), f.Items[2])
	return lst(f.Pos, sym("map", f.Pos), fnForm, coll), nil
}

func expandWhile(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "while expects a test")
	}
	body := append([]*ast.Form{sym("do", f.Pos)}, f.Items[2:]...)
	recurCall := lst(f.Pos, sym("recur", f.Pos))
	loopBody := lst(f.Pos, sym("when", f.Pos), f.Items[1], lst(f.Pos, body...), recurCall)
	return lst(f.Pos, sym("loop", f.Pos), vecOf(f.Pos), loopBody), nil
}

func expandDoto(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "doto expects (doto x forms...)")
	}
	tmp := gsym("doto", f.Pos)
	stmts := []*ast.Form{}
	for _, step := range f.Items[2:] {
		stmts = append(stmts, insertFirst(step, tmp, f.Pos))
	}
	stmts = append(stmts, tmp)
	body := append([]*ast.Form{sym("do", f.Pos)}, stmts...)
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, tmp, f.Items[1]), lst(f.Pos, body...)), nil
}

// expandDefn handles `defn`/`defn-`, one or multiple arities, with an
// optional leading doc-string stripped (and currently not stored
// anywhere, a minor simplification since no component reads fn docs back).
func expandDefn(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 3 || f.Items[1].Kind != ast.KindSymbol {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "defn expects (defn name doc? [params] body...)")
	}
	name := f.Items[1]
	rest := f.Items[2:]
	if len(rest) > 0 && rest[0].Kind == ast.KindString {
		rest = rest[1:]
	}
	fnForm := ast.List(append([]*ast.Form{sym("fn", f.Pos), name}, rest...), f.Pos)
	return lst(f.Pos, sym("def", f.Pos), name, fnForm), nil
}

func expandDefonce(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 || f.Items[1].Kind != ast.KindSymbol {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "defonce expects (defonce name init)")
	}
	return lst(f.Pos, sym("def", f.Pos), f.Items[1], f.Items[2]), nil
}

func expandDeclare(f *ast.Form) (*ast.Form, error) {
	stmts := []*ast.Form{sym("do", f.Pos)}
	for _, name := range f.Items[1:] {
		stmts = append(stmts, lst(f.Pos, sym("def", f.Pos), name))
	}
	return lst(f.Pos, stmts...), nil
}

func expandAssert(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "assert expects a test")
	}
	msg := ast.Str("Assert failed", f.Pos)
	if len(f.Items) >= 3 {
		msg = f.Items[2]
	}
	throwForm := lst(f.Pos, sym("throw", f.Pos),
		lst(f.Pos, sym("ex-info", f.Pos), msg, ast.MapForm(nil, f.Pos)))
	return lst(f.Pos, sym("if", f.Pos), f.Items[1], ast.Nil(f.Pos), throwForm), nil
}

func expandComment(f *ast.Form) (*ast.Form, error) { return ast.Nil(f.Pos), nil }

func expandComplement(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "complement expects one function")
	}
	argsSym := sym("args", f.Pos)
	body := lst(f.Pos, sym("not", f.Pos), lst(f.Pos, sym("apply", f.Pos), f.Items[1], argsSym))
	return lst(f.Pos, sym("fn", f.Pos), vecOf(f.Pos, sym("&", f.Pos), argsSym), body), nil
}

func expandConstantly(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "constantly expects one value")
	}
	return lst(f.Pos, sym("fn", f.Pos), vecOf(f.Pos, sym("&", f.Pos), sym("args", f.Pos)), f.Items[1]), nil
}

func expandSomeFn(f *ast.Form) (*ast.Form, error) {
	argsSym := sym("args", f.Pos)
	var calls []*ast.Form
	for _, fn := range f.Items[1:] {
		calls = append(calls, lst(f.Pos, sym("apply", f.Pos), fn, argsSym))
	}
	body := append([]*ast.Form{sym("or", f.Pos)}, calls...)
	return lst(f.Pos, sym("fn", f.Pos), vecOf(f.Pos, sym("&", f.Pos), argsSym), lst(f.Pos, body...)), nil
}

func expandEveryPred(f *ast.Form) (*ast.Form, error) {
	argsSym := sym("args", f.Pos)
	var calls []*ast.Form
	for _, fn := range f.Items[1:] {
		calls = append(calls, lst(f.Pos, sym("apply", f.Pos), fn, argsSym))
	}
	body := append([]*ast.Form{sym("and", f.Pos)}, calls...)
	return lst(f.Pos, sym("fn", f.Pos), vecOf(f.Pos, sym("&", f.Pos), argsSym), lst(f.Pos, body...)), nil
}

func expandFnil(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "fnil expects (fnil f default)")
	}
	fn, def := f.Items[1], f.Items[2]
	x, rest := sym("x", f.Pos), sym("rest", f.Pos)
	xOrDef := lst(f.Pos, sym("if", f.Pos), lst(f.Pos, sym("nil?", f.Pos), x), def, x)
	call := lst(f.Pos, sym("apply", f.Pos), fn, xOrDef, rest)
	return lst(f.Pos, sym("fn", f.Pos), vecOf(f.Pos, x, sym("&", f.Pos), rest), call), nil
}

func expandUpdate(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 4 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "update expects (update m k f args...)")
	}
	m, k, fn := f.Items[1], f.Items[2], f.Items[3]
	getCall := lst(f.Pos, sym("get", f.Pos), m, k)
	callArgs := append([]*ast.Form{fn, getCall}, f.Items[4:]...)
	return lst(f.Pos, sym("assoc", f.Pos), m, k, ast.List(callArgs, f.Pos)), nil
}

// expandExtendProtocol rewrites `(extend-protocol Proto TypeA (m [args]
// body) ... TypeB ...)` into one `extend-type` per grouped type.
func expandExtendProtocol(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) < 2 || f.Items[1].Kind != ast.KindSymbol {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "extend-protocol expects (extend-protocol Proto TypeA impls...)")
	}
	proto := f.Items[1]
	rest := f.Items[2:]
	stmts := []*ast.Form{sym("do", f.Pos)}
	for i := 0; i < len(rest); {
		if rest[i].Kind != ast.KindSymbol {
			return nil, errs.NewAnalyzeError(errs.BadSpecialForm, rest[i].Pos, "expected a type name")
		}
		typeName := rest[i]
		i++
		items := []*ast.Form{sym("extend-type", f.Pos), typeName, proto}
		for i < len(rest) && rest[i].Kind == ast.KindList {
			items = append(items, rest[i])
			i++
		}
		stmts = append(stmts, ast.List(items, f.Pos))
	}
	return lst(f.Pos, stmts...), nil
}

func expandEveryPred_(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "every? expects (every? pred coll)")
	}
	pred, coll := f.Items[1], f.Items[2]
	s := gsym("every", f.Pos)
	testNil := lst(f.Pos, sym("nil?", f.Pos), s)
	predCall := lst(f.Pos, pred, lst(f.Pos, sym("first", f.Pos), s))
	recurCall := lst(f.Pos, sym("recur", f.Pos), lst(f.Pos, sym("next", f.Pos), s))
	loopBody := lst(f.Pos, sym("if", f.Pos), testNil, ast.Bool(true, f.Pos),
		lst(f.Pos, sym("if", f.Pos), predCall, recurCall, ast.Bool(false, f.Pos)))
	return lst(f.Pos, sym("loop", f.Pos), vecOf(f.Pos, s, lst(f.Pos, sym("seq", f.Pos), coll)), loopBody), nil
}

func expandSome(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "some expects (some pred coll)")
	}
	pred, coll := f.Items[1], f.Items[2]
	s := gsym("some", f.Pos)
	r := gsym("someres", f.Pos)
	testNil := lst(f.Pos, sym("nil?", f.Pos), s)
	predCall := lst(f.Pos, pred, lst(f.Pos, sym("first", f.Pos), s))
	recurCall := lst(f.Pos, sym("recur", f.Pos), lst(f.Pos, sym("next", f.Pos), s))
	inner := lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, r, predCall),
		lst(f.Pos, sym("if", f.Pos), r, r, recurCall))
	loopBody := lst(f.Pos, sym("if", f.Pos), testNil, ast.Nil(f.Pos), inner)
	return lst(f.Pos, sym("loop", f.Pos), vecOf(f.Pos, s, lst(f.Pos, sym("seq", f.Pos), coll)), loopBody), nil
}

func expandNotEvery(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "not-every? expects (not-every? pred coll)")
	}
	every := lst(f.Pos, sym("every?", f.Pos), f.Items[1], f.Items[2])
	return lst(f.Pos, sym("not", f.Pos), every), nil
}

func expandNotAny(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "not-any? expects (not-any? pred coll)")
	}
	some := lst(f.Pos, sym("some", f.Pos), f.Items[1], f.Items[2])
	return lst(f.Pos, sym("not", f.Pos), some), nil
}

func expandMapv(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "mapv expects (mapv f coll)")
	}
	return lst(f.Pos, sym("vec", f.Pos), lst(f.Pos, sym("map", f.Pos), f.Items[1], f.Items[2])), nil
}

func expandFilterv(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "filterv expects (filterv pred coll)")
	}
	return lst(f.Pos, sym("vec", f.Pos), lst(f.Pos, sym("filter", f.Pos), f.Items[1], f.Items[2])), nil
}

func expandMapcat(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "mapcat expects (mapcat f coll)")
	}
	mapped := lst(f.Pos, sym("map", f.Pos), f.Items[1], f.Items[2])
	return lst(f.Pos, sym("apply", f.Pos), sym("concat", f.Pos), mapped), nil
}

func expandKeep(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "keep expects (keep f coll)")
	}
	x := sym("x", f.Pos)
	notNil := lst(f.Pos, sym("fn", f.Pos), vecOf(f.Pos, x), lst(f.Pos, sym("not", f.Pos), lst(f.Pos, sym("nil?", f.Pos), x)))
	mapped := lst(f.Pos, sym("map", f.Pos), f.Items[1], f.Items[2])
	return lst(f.Pos, sym("filter", f.Pos), notNil, mapped), nil
}

func expandKeepIndexed(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "keep-indexed expects (keep-indexed f coll)")
	}
	x := sym("x", f.Pos)
	notNil := lst(f.Pos, sym("fn", f.Pos), vecOf(f.Pos, x), lst(f.Pos, sym("not", f.Pos), lst(f.Pos, sym("nil?", f.Pos), x)))
	mapped := lst(f.Pos, sym("map-indexed", f.Pos), f.Items[1], f.Items[2])
	return lst(f.Pos, sym("filter", f.Pos), notNil, mapped), nil
}

func expandRunBang(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 3 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "run! expects (run! f coll)")
	}
	mapped := lst(f.Pos, sym("map", f.Pos), f.Items[1], f.Items[2])
	return lst(f.Pos, sym("dorun", f.Pos), mapped), nil
}

func expandDorun(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "dorun expects (dorun coll)")
	}
	s := gsym("dorun", f.Pos)
	recurCall := lst(f.Pos, sym("recur", f.Pos), lst(f.Pos, sym("next", f.Pos), s))
	loopBody := lst(f.Pos, sym("when", f.Pos), s, recurCall)
	return lst(f.Pos, sym("loop", f.Pos), vecOf(f.Pos, s, lst(f.Pos, sym("seq", f.Pos), f.Items[1])), loopBody), nil
}

func expandDoall(f *ast.Form) (*ast.Form, error) {
	if len(f.Items) != 2 {
		return nil, errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, "doall expects (doall coll)")
	}
	tmp := gsym("doall", f.Pos)
	body := lst(f.Pos, sym("do", f.Pos), lst(f.Pos, sym("dorun", f.Pos), tmp), tmp)
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, tmp, f.Items[1]), body), nil
}

func expandWhenFirst(f *ast.Form) (*ast.Form, error) {
	pattern, coll, err := bindingPairOf(f)
	if err != nil {
		return nil, err
	}
	s := gsym("whenfirst", f.Pos)
	body := append([]*ast.Form{sym("do", f.Pos)}, f.Items[2:]...)
	innerLet := lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, pattern, lst(f.Pos, sym("first", f.Pos), s)), lst(f.Pos, body...))
	return lst(f.Pos, sym("let", f.Pos), vecOf(f.Pos, s, lst(f.Pos, sym("seq", f.Pos), coll)),
		lst(f.Pos, sym("if", f.Pos), s, innerLet, ast.Nil(f.Pos))), nil
}
