package analyzer

import (
	"fmt"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
)

type specialFormFn func(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error)

var specialForms map[string]specialFormFn

func init() {
	specialForms = map[string]specialFormFn{
		"if":            analyzeIf,
		"do":            analyzeDo,
		"let":           analyzeLet,
		"let*":          analyzeLet,
		"loop":          analyzeLoop,
		"loop*":         analyzeLoop,
		"recur":         analyzeRecur,
		"fn":            analyzeFn,
		"fn*":           analyzeFn,
		"letfn":         analyzeLetFn,
		"def":           analyzeDef,
		"quote":         analyzeQuote,
		"defmacro":      analyzeDefMacro,
		"throw":         analyzeThrow,
		"try":           analyzeTry,
		"swap!":         analyzeSwap,
		"apply":         analyzeApply,
		"partial":       analyzePartial,
		"comp":          analyzeComp,
		"reduce":        analyzeReduce,
		"map":           analyzeMap,
		"filter":        analyzeFilter,
		"take-while":    analyzeTakeWhile,
		"drop-while":    analyzeDropWhile,
		"map-indexed":   analyzeMapIndexed,
		"sort-by":       analyzeSortBy,
		"group-by":      analyzeGroupBy,
		"defmulti":      analyzeDefMulti,
		"defmethod":     analyzeDefMethod,
		"defprotocol":   analyzeDefProtocol,
		"extend-type":   analyzeExtendType,
		"lazy-seq":      analyzeLazySeq,
	}
}

func argErr(f *ast.Form, want string) error {
	return errs.NewAnalyzeError(errs.BadSpecialForm, f.Pos, fmt.Sprintf("%s: %s", f.Items[0].Str, want))
}

func analyzeIf(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 3 || len(f.Items) > 4 {
		return nil, argErr(f, "expects (if test then else?)")
	}
	test, err := a.analyze(f.Items[1], scope, sc)
	if err != nil {
		return nil, err
	}
	then, err := a.analyze(f.Items[2], scope, sc)
	if err != nil {
		return nil, err
	}
	var elseN *Node
	if len(f.Items) == 4 {
		elseN, err = a.analyze(f.Items[3], scope, sc)
		if err != nil {
			return nil, err
		}
	}
	return &Node{Kind: KIf, Pos: f.Pos, Test: test, Then: then, Else: elseN}, nil
}

func analyzeDo(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	stmts, err := a.analyzeBody(f.Items[1:], scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KDo, Pos: f.Pos, Stmts: stmts}, nil
}

// analyzeLazySeq handles `(lazy-seq body...)`: the body is analyzed as an
// ordinary `do` block but wrapped as a Thunk rather than run eagerly, so
// the evaluator can defer it behind a LazySeq cell forced on first
// `first`/`rest`/`seq` (spec §3.3 lazy_seq(thunk_node)).
func analyzeLazySeq(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	stmts, err := a.analyzeBody(f.Items[1:], scope, sc)
	if err != nil {
		return nil, err
	}
	thunk := &Node{Kind: KDo, Pos: f.Pos, Stmts: stmts}
	return &Node{Kind: KLazySeq, Pos: f.Pos, Thunk: thunk}, nil
}

// bindingFormPairs validates and returns the raw (pattern, init) Forms of
// a `let`/`loop` binding vector.
func bindingFormPairs(f *ast.Form) ([]*ast.Form, error) {
	if len(f.Items) < 2 || f.Items[1].Kind != ast.KindVector {
		return nil, argErr(f, "expects a binding vector")
	}
	bv := f.Items[1]
	if len(bv.Items)%2 != 0 {
		return nil, errs.NewAnalyzeError(errs.MalformedBinding, bv.Pos, "binding vector must have an even number of forms")
	}
	return bv.Items, nil
}

// analyzeBindings lowers and analyzes a let/loop binding vector in
// sequence, growing scope one name at a time so each init sees the
// previous bindings (spec §3.3's "(name, init) in lexical order").
func (a *Analyzer) analyzeBindings(items []*ast.Form, scope *Scope, sc *slotCounter) ([]Binding, *Scope, error) {
	var out []Binding
	cur := scope
	for i := 0; i+1 < len(items); i += 2 {
		pairs, err := lowerBindingPattern(items[i], items[i+1], items[i].Pos)
		if err != nil {
			return nil, nil, err
		}
		for _, bp := range pairs {
			initNode, err := a.analyze(bp.Init, cur, sc)
			if err != nil {
				return nil, nil, err
			}
			slot := sc.alloc()
			out = append(out, Binding{Name: bp.Name, Slot: slot, Init: initNode})
			cur = cur.bind(bp.Name, slot)
		}
	}
	return out, cur, nil
}

func analyzeLet(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	items, err := bindingFormPairs(f)
	if err != nil {
		return nil, err
	}
	bindings, inner, err := a.analyzeBindings(items, scope, sc)
	if err != nil {
		return nil, err
	}
	body, err := a.analyzeBody(f.Items[2:], inner, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KLet, Pos: f.Pos, Bindings: bindings, Body: body}, nil
}

func analyzeLoop(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	items, err := bindingFormPairs(f)
	if err != nil {
		return nil, err
	}
	bindings, inner, err := a.analyzeBindings(items, scope, sc)
	if err != nil {
		return nil, err
	}
	recurScope := inner.markRecur(len(bindings))
	body, err := a.analyzeBody(f.Items[2:], recurScope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KLet, Pos: f.Pos, IsLoop: true, Bindings: bindings, Body: body}, nil
}

func analyzeRecur(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	args, err := a.analyzeBody(f.Items[1:], scope, sc)
	if err != nil {
		return nil, err
	}
	size, ok := scope.nearestRecurTarget()
	if !ok {
		return nil, errs.NewAnalyzeError(errs.MisplacedRecur, f.Pos, "recur used outside a loop or fn tail position")
	}
	if size != len(args) {
		return nil, errs.NewAnalyzeError(errs.BadArity, f.Pos,
			fmt.Sprintf("recur expects %d argument(s), got %d", size, len(args)))
	}
	return &Node{Kind: KRecur, Pos: f.Pos, RecurArgs: args}, nil
}

// parseFnArityForm lowers one `([params...] body...)` arity, including
// parameter destructuring (spec §4.3 step 7): a destructuring parameter
// gets a synthetic name and the body is wrapped in the generated `let`.
func (a *Analyzer) parseFnArityForm(arityForm *ast.Form, outerScope *Scope) (FnArity, error) {
	if arityForm.Kind != ast.KindList || len(arityForm.Items) == 0 || arityForm.Items[0].Kind != ast.KindVector {
		return FnArity{}, errs.NewAnalyzeError(errs.BadSpecialForm, arityForm.Pos, "fn arity must be ([params...] body...)")
	}
	paramForms := arityForm.Items[0].Items
	sc := &slotCounter{}
	scope := outerScope

	var params []string
	var slots []int
	variadic := false
	var letBindingsPrefix []bindingPair

	i := 0
	for i < len(paramForms) {
		p := paramForms[i]
		if p.IsSymbolNamed("&") {
			variadic = true
			i++
			if i >= len(paramForms) {
				return FnArity{}, errs.NewAnalyzeError(errs.MalformedBinding, p.Pos, "missing binding after & in fn params")
			}
			p = paramForms[i]
		}
		if isDestructuringPattern(p) {
			synthetic := fmt.Sprintf("p%d", len(params))
			slot := sc.alloc()
			params = append(params, synthetic)
			slots = append(slots, slot)
			scope = scope.bind(synthetic, slot)
			pairs, err := lowerBindingPattern(p, ast.Sym("", synthetic, p.Pos), p.Pos)
			if err != nil {
				return FnArity{}, err
			}
			letBindingsPrefix = append(letBindingsPrefix, pairs...)
		} else if p.Kind == ast.KindSymbol {
			slot := sc.alloc()
			params = append(params, p.Str)
			slots = append(slots, slot)
			scope = scope.bind(p.Str, slot)
		} else {
			return FnArity{}, errs.NewAnalyzeError(errs.MalformedBinding, p.Pos, "fn parameter must be a symbol or destructuring pattern")
		}
		i++
	}

	recurScope := scope.markRecur(len(params))

	// Any destructured parameters lower into a prefix of synthetic let
	// bindings wrapping the real body, analyzed in the same frame.
	bodyScope := recurScope
	var bindings []Binding
	for _, bp := range letBindingsPrefix {
		initNode, err := a.analyze(bp.Init, bodyScope, sc)
		if err != nil {
			return FnArity{}, err
		}
		slot := sc.alloc()
		bindings = append(bindings, Binding{Name: bp.Name, Slot: slot, Init: initNode})
		bodyScope = bodyScope.bind(bp.Name, slot)
	}

	bodyForms, err := a.analyzeBody(arityForm.Items[1:], bodyScope, sc)
	if err != nil {
		return FnArity{}, err
	}
	body := bodyForms
	var bodyNode *Node
	if len(bindings) > 0 {
		bodyNode = &Node{Kind: KLet, Pos: arityForm.Pos, Bindings: bindings, Body: body}
	} else if len(body) == 1 {
		bodyNode = body[0]
	} else {
		bodyNode = &Node{Kind: KDo, Pos: arityForm.Pos, Stmts: body}
	}

	return FnArity{Params: params, Slots: slots, Variadic: variadic, Body: bodyNode}, nil
}

func analyzeFn(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	rest := f.Items[1:]
	name := ""
	if len(rest) > 0 && rest[0].Kind == ast.KindSymbol {
		name = rest[0].Str
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return nil, argErr(f, "expects at least one arity")
	}

	fnScope := scope
	if name != "" {
		// A named fn literal can call itself recursively; give it its own
		// slot in the enclosing scope bound to the Fn value being built
		// (the evaluator installs this self-binding when it constructs
		// the closure).
		fnScope = scope.bind(name, sc.alloc())
	}

	var arities []FnArity
	if rest[0].Kind == ast.KindVector {
		arity, err := a.parseFnArityForm(ast.List(append([]*ast.Form{rest[0]}, rest[1:]...), f.Pos), fnScope)
		if err != nil {
			return nil, err
		}
		arities = []FnArity{arity}
	} else {
		for _, af := range rest {
			arity, err := a.parseFnArityForm(af, fnScope)
			if err != nil {
				return nil, err
			}
			arities = append(arities, arity)
		}
	}
	return &Node{Kind: KFn, Pos: f.Pos, FnName: name, Arities: arities}, nil
}

// analyzeLetFn handles `(letfn [(name [params] body...) ...] body...)`:
// unlike `let`'s binding vector, each element is itself a function
// definition, not a (pattern, init) pair, and every name is visible to
// every other binding's body (spec §3.3 letfn: "all names are visible to
// every body", for mutual recursion).
func analyzeLetFn(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 2 || f.Items[1].Kind != ast.KindVector {
		return nil, argErr(f, "expects a vector of (name [params] body...) definitions")
	}
	defs := f.Items[1].Items
	inner := scope
	names := make([]string, len(defs))
	slots := make([]int, len(defs))
	for i, d := range defs {
		if d.Kind != ast.KindList || len(d.Items) < 2 || d.Items[0].Kind != ast.KindSymbol {
			return nil, errs.NewAnalyzeError(errs.MalformedBinding, d.Pos, "letfn binding must be (name [params] body...)")
		}
		slot := sc.alloc()
		inner = inner.bind(d.Items[0].Str, slot)
		names[i] = d.Items[0].Str
		slots[i] = slot
	}
	var bindings []Binding
	for i, d := range defs {
		fnForm := ast.List(append([]*ast.Form{ast.Sym("", "fn", d.Pos)}, d.Items[1:]...), d.Pos)
		fnNode, err := analyzeFn(a, fnForm, inner, sc)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Name: names[i], Slot: slots[i], Init: fnNode})
	}
	body, err := a.analyzeBody(f.Items[2:], inner, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KLetFn, Pos: f.Pos, LetFnBindings: bindings, Body: body}, nil
}

func analyzeDef(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 2 || f.Items[1].Kind != ast.KindSymbol {
		return nil, argErr(f, "expects (def name init?)")
	}
	name := f.Items[1].Str
	// Forward references: intern before analyzing the init expression.
	a.Env.Intern("", name)
	var init *Node
	if len(f.Items) >= 3 {
		var err error
		init, err = a.analyze(f.Items[2], scope, sc)
		if err != nil {
			return nil, err
		}
	}
	return &Node{Kind: KDef, Pos: f.Pos, Name: name, Init: init}, nil
}

func analyzeQuote(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) != 2 {
		return nil, argErr(f, "expects (quote form)")
	}
	return &Node{Kind: KQuote, Pos: f.Pos, QuoteVal: formToValue(f.Items[1])}, nil
}

func analyzeDefMacro(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	// (defmacro name [params] body...) desugars to the same shape `fn`
	// parses, rewriting the head symbol so parseFnArityForm's ([params]
	// body...) expectation is met uniformly whether one or many arities
	// are given.
	fnForm := ast.List(append([]*ast.Form{ast.Sym("", "fn", f.Pos)}, f.Items[2:]...), f.Pos)
	fnNode, err := analyzeFn(a, fnForm, scope, sc)
	if err != nil {
		return nil, err
	}
	if len(f.Items) < 2 || f.Items[1].Kind != ast.KindSymbol {
		return nil, argErr(f, "expects (defmacro name [params] body...)")
	}
	name := f.Items[1].Str
	a.Env.Intern("", name)
	return &Node{Kind: KDef, Pos: f.Pos, Name: name, Init: fnNode, IsMacro: true}, nil
}

func analyzeThrow(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) != 2 {
		return nil, argErr(f, "expects (throw expr)")
	}
	expr, err := a.analyze(f.Items[1], scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KThrow, Pos: f.Pos, Expr: expr}, nil
}

func analyzeTry(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	var body []*ast.Form
	var catches []CatchClause
	var finallyForms []*ast.Form
	for _, item := range f.Items[1:] {
		if item.Head() != nil && item.Head().IsSymbolNamed("catch") {
			if len(item.Items) < 3 || item.Items[2].Kind != ast.KindSymbol {
				return nil, errs.NewAnalyzeError(errs.BadSpecialForm, item.Pos, "catch expects (catch Class binding body...)")
			}
			binding := item.Items[2].Str
			slot := sc.alloc()
			inner := scope.bind(binding, slot)
			catchBody, err := a.analyzeBody(item.Items[3:], inner, sc)
			if err != nil {
				return nil, err
			}
			class := ""
			if item.Items[1].Kind == ast.KindSymbol {
				class = item.Items[1].Str
			}
			catches = append(catches, CatchClause{ExClass: class, Binding: binding, Slot: slot, Body: catchBody})
			continue
		}
		if item.Head() != nil && item.Head().IsSymbolNamed("finally") {
			var err error
			finallyForms, err = a.analyzeBody(item.Items[1:], scope, sc)
			if err != nil {
				return nil, err
			}
			continue
		}
		body = append(body, item)
	}
	bodyNodes, err := a.analyzeBody(body, scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KTry, Pos: f.Pos, TryBody: bodyNodes, Catches: catches, Finally: finallyForms}, nil
}

func analyzeSwap(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 3 {
		return nil, argErr(f, "expects (swap! atom fn args...)")
	}
	atom, err := a.analyze(f.Items[1], scope, sc)
	if err != nil {
		return nil, err
	}
	fn, err := a.analyze(f.Items[2], scope, sc)
	if err != nil {
		return nil, err
	}
	args, err := a.analyzeBody(f.Items[3:], scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KSwap, Pos: f.Pos, Atom: atom, Fn: fn, Args: args}, nil
}

func analyzeApply(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 3 {
		return nil, argErr(f, "expects (apply fn args... coll)")
	}
	fn, err := a.analyze(f.Items[1], scope, sc)
	if err != nil {
		return nil, err
	}
	rest := f.Items[2:]
	args, err := a.analyzeBody(rest[:len(rest)-1], scope, sc)
	if err != nil {
		return nil, err
	}
	seqTail, err := a.analyze(rest[len(rest)-1], scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KApply, Pos: f.Pos, Fn: fn, Args: args, SeqTail: seqTail}, nil
}

func analyzePartial(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 2 {
		return nil, argErr(f, "expects (partial fn args...)")
	}
	fn, err := a.analyze(f.Items[1], scope, sc)
	if err != nil {
		return nil, err
	}
	args, err := a.analyzeBody(f.Items[2:], scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KPartial, Pos: f.Pos, Fn: fn, Args: args}, nil
}

func analyzeComp(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	fns, err := a.analyzeBody(f.Items[1:], scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KComp, Pos: f.Pos, Args: fns}, nil
}

// analyzeReduce handles `(reduce f coll)` and `(reduce f init coll)`;
// map/filter/take-while/drop-while and the other fn-plus-one-coll forms go
// through analyzeTwoArgPipeline. All are kept as first-class Nodes rather
// than lowered to ordinary calls so the backends may recognize and fuse
// them (spec §3.3).
func analyzeReduce(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	var fn, init, coll *Node
	var err error
	switch len(f.Items) {
	case 3:
		fn, err = a.analyze(f.Items[1], scope, sc)
		if err != nil {
			return nil, err
		}
		coll, err = a.analyze(f.Items[2], scope, sc)
	case 4:
		fn, err = a.analyze(f.Items[1], scope, sc)
		if err != nil {
			return nil, err
		}
		init, err = a.analyze(f.Items[2], scope, sc)
		if err != nil {
			return nil, err
		}
		coll, err = a.analyze(f.Items[3], scope, sc)
	default:
		return nil, argErr(f, "expects (reduce fn [init] coll)")
	}
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KReduce, Pos: f.Pos, Fn: fn, Init: init, Coll: coll}, nil
}

func analyzeTwoArgPipeline(kind Kind) specialFormFn {
	return func(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
		if len(f.Items) != 3 {
			return nil, argErr(f, "expects two arguments")
		}
		fn, err := a.analyze(f.Items[1], scope, sc)
		if err != nil {
			return nil, err
		}
		coll, err := a.analyze(f.Items[2], scope, sc)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: kind, Pos: f.Pos, Fn: fn, Coll: coll}, nil
	}
}

var analyzeMap = analyzeTwoArgPipeline(KMap)
var analyzeFilter = analyzeTwoArgPipeline(KFilter)
var analyzeTakeWhile = analyzeTwoArgPipeline(KTakeWhile)
var analyzeDropWhile = analyzeTwoArgPipeline(KDropWhile)
var analyzeMapIndexed = analyzeTwoArgPipeline(KMapIndexed)
var analyzeGroupBy = analyzeTwoArgPipeline(KGroupBy)

func analyzeSortBy(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) != 3 {
		return nil, argErr(f, "expects (sort-by keyfn coll)")
	}
	keyFn, err := a.analyze(f.Items[1], scope, sc)
	if err != nil {
		return nil, err
	}
	coll, err := a.analyze(f.Items[2], scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KSortBy, Pos: f.Pos, KeyFn: keyFn, Coll: coll}, nil
}

func analyzeDefMulti(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) != 3 || f.Items[1].Kind != ast.KindSymbol {
		return nil, argErr(f, "expects (defmulti name dispatch-fn)")
	}
	name := f.Items[1].Str
	a.Env.Intern("", name)
	dispatchFn, err := a.analyze(f.Items[2], scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KDefMulti, Pos: f.Pos, Name: name, DispatchFn: dispatchFn}, nil
}

func analyzeDefMethod(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 4 || f.Items[1].Kind != ast.KindSymbol {
		return nil, argErr(f, "expects (defmethod name dispatch-val & fn-tail)")
	}
	name := f.Items[1].Str
	dispatchVal, err := a.analyze(f.Items[2], scope, sc)
	if err != nil {
		return nil, err
	}
	fnForm := ast.List(append([]*ast.Form{ast.Sym("", "fn", f.Pos)}, f.Items[3:]...), f.Pos)
	methodFn, err := analyzeFn(a, fnForm, scope, sc)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KDefMethod, Pos: f.Pos, Name: name, DispatchVal: dispatchVal, MethodFn: methodFn}, nil
}

func analyzeDefProtocol(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 2 || f.Items[1].Kind != ast.KindSymbol {
		return nil, argErr(f, "expects (defprotocol Name sigs...)")
	}
	name := f.Items[1].Str
	var sigs []ProtoMethod
	for _, sigForm := range f.Items[2:] {
		if sigForm.Kind != ast.KindList || len(sigForm.Items) < 2 || sigForm.Items[0].Kind != ast.KindSymbol {
			return nil, errs.NewAnalyzeError(errs.BadSpecialForm, sigForm.Pos, "defprotocol method signature must be (name [params...])")
		}
		arity := 0
		if sigForm.Items[1].Kind == ast.KindVector {
			arity = len(sigForm.Items[1].Items)
		}
		sigs = append(sigs, ProtoMethod{Name: sigForm.Items[0].Str, Arity: arity})
	}
	return &Node{Kind: KDefProtocol, Pos: f.Pos, ProtoName: name, Sigs: sigs}, nil
}

func analyzeExtendType(a *Analyzer, f *ast.Form, scope *Scope, sc *slotCounter) (*Node, error) {
	if len(f.Items) < 2 || f.Items[1].Kind != ast.KindSymbol {
		return nil, argErr(f, "expects (extend-type TypeName Protocol method-impls...)")
	}
	typeName := f.Items[1].Str
	var exts []ProtoExtension
	rest := f.Items[2:]
	for i := 0; i < len(rest); {
		if rest[i].Kind != ast.KindSymbol {
			return nil, errs.NewAnalyzeError(errs.BadSpecialForm, rest[i].Pos, "expected a protocol name")
		}
		proto := rest[i].Str
		i++
		methods := map[string]*Node{}
		for i < len(rest) && rest[i].Kind == ast.KindList && len(rest[i].Items) > 0 && rest[i].Items[0].Kind == ast.KindSymbol {
			methodForm := rest[i]
			methodName := methodForm.Items[0].Str
			fnForm := ast.List(append([]*ast.Form{ast.Sym("", "fn", methodForm.Pos), methodForm.Items[1]}, methodForm.Items[2:]...), methodForm.Pos)
			fnNode, err := analyzeFn(a, fnForm, scope, sc)
			if err != nil {
				return nil, err
			}
			methods[methodName] = fnNode
			i++
		}
		exts = append(exts, ProtoExtension{Protocol: proto, Methods: methods})
	}
	return &Node{Kind: KExtendType, Pos: f.Pos, TypeName: typeName, Extensions: exts}, nil
}
