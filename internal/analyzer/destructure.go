package analyzer

import (
	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
	"github.com/clj-core/clj/internal/runtime"
)

// bindingPair is one (name, init-form) step of a destructuring's flat
// `let` lowering (spec §4.3 step 7).
type bindingPair struct {
	Name string
	Init *ast.Form
}

// lowerBindingPattern expands one `let`/`fn`-parameter binding pattern
// against an already-bound init form into the sequence of flat
// (name, init) pairs that reproduce it: a bare symbol passes through
// unchanged, a vector pattern lowers to nth/rest calls, a map pattern
// lowers to get calls. The result must be bound strictly in order, since
// later pairs reference the temp introduced by the first.
func lowerBindingPattern(pattern *ast.Form, init *ast.Form, pos errs.Position) ([]bindingPair, error) {
	switch pattern.Kind {
	case ast.KindSymbol:
		return []bindingPair{{Name: pattern.QualifiedName(), Init: init}}, nil
	case ast.KindVector:
		return lowerSeqPattern(pattern, init, pos)
	case ast.KindMap:
		return lowerMapPattern(pattern, init, pos)
	default:
		return nil, errs.NewAnalyzeError(errs.BadDestructure, pattern.Pos, "binding form must be a symbol, vector, or map pattern")
	}
}

func call(name string, pos errs.Position, args ...*ast.Form) *ast.Form {
	items := append([]*ast.Form{ast.Sym("", name, pos)}, args...)
	return ast.List(items, pos)
}

// lowerSeqPattern handles `[a b & rest :as all]`.
func lowerSeqPattern(pattern *ast.Form, init *ast.Form, pos errs.Position) ([]bindingPair, error) {
	tmp := runtime.Gensym("vec")
	out := []bindingPair{{Name: tmp, Init: init}}
	tmpRef := ast.Sym("", tmp, pos)

	items := pattern.Items
	i := 0
	idx := 0
	for i < len(items) {
		el := items[i]
		if el.IsSymbolNamed("&") {
			if i+1 >= len(items) {
				return nil, errs.NewAnalyzeError(errs.BadDestructure, el.Pos, "missing binding after & in destructuring pattern")
			}
			rest := tmpRef
			for k := 0; k < idx; k++ {
				rest = call("rest", pos, rest)
			}
			sub, err := lowerBindingPattern(items[i+1], rest, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			i += 2
			continue
		}
		if el.Kind == ast.KindKeyword && el.NS == "" && el.Str == "as" {
			if i+1 >= len(items) || items[i+1].Kind != ast.KindSymbol {
				return nil, errs.NewAnalyzeError(errs.BadDestructure, el.Pos, ":as must be followed by a symbol")
			}
			out = append(out, bindingPair{Name: items[i+1].Str, Init: tmpRef})
			i += 2
			continue
		}
		nthCall := call("nth", pos, tmpRef, ast.Int(int64(idx), pos), ast.Nil(pos))
		sub, err := lowerBindingPattern(el, nthCall, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
		idx++
		i++
	}
	return out, nil
}

// lowerMapPattern handles `{:keys [a b] :strs [s] x :x :or {a 1} :as m}`.
func lowerMapPattern(pattern *ast.Form, init *ast.Form, pos errs.Position) ([]bindingPair, error) {
	tmp := runtime.Gensym("map")
	out := []bindingPair{{Name: tmp, Init: init}}
	tmpRef := ast.Sym("", tmp, pos)

	defaults := map[string]*ast.Form{}
	var asName string
	var directPairs []bindingPair
	var keysNames []string
	var strsNames []string

	kv := pattern.Items
	for i := 0; i+1 < len(kv); i += 2 {
		k, v := kv[i], kv[i+1]
		switch {
		case k.Kind == ast.KindKeyword && k.NS == "" && k.Str == "keys" && v.Kind == ast.KindVector:
			for _, sym := range v.Items {
				keysNames = append(keysNames, sym.Str)
			}
		case k.Kind == ast.KindKeyword && k.NS == "" && k.Str == "strs" && v.Kind == ast.KindVector:
			for _, sym := range v.Items {
				strsNames = append(strsNames, sym.Str)
			}
		case k.Kind == ast.KindKeyword && k.NS == "" && k.Str == "or" && v.Kind == ast.KindMap:
			for j := 0; j+1 < len(v.Items); j += 2 {
				defaults[v.Items[j].Str] = v.Items[j+1]
			}
		case k.Kind == ast.KindKeyword && k.NS == "" && k.Str == "as":
			asName = v.Str
		case k.Kind == ast.KindSymbol:
			// explicit `sym key-form` pair, e.g. `x :x`
			getCall := call("get", pos, tmpRef, v)
			directPairs = append(directPairs, bindingPair{Name: k.Str, Init: getCall})
		}
	}

	for _, name := range keysNames {
		def, hasDef := defaults[name]
		key := ast.Kw("", name, pos)
		var getCall *ast.Form
		if hasDef {
			getCall = call("get", pos, tmpRef, key, def)
		} else {
			getCall = call("get", pos, tmpRef, key)
		}
		out = append(out, bindingPair{Name: name, Init: getCall})
	}
	for _, name := range strsNames {
		def, hasDef := defaults[name]
		key := ast.Str(name, pos)
		var getCall *ast.Form
		if hasDef {
			getCall = call("get", pos, tmpRef, key, def)
		} else {
			getCall = call("get", pos, tmpRef, key)
		}
		out = append(out, bindingPair{Name: name, Init: getCall})
	}
	out = append(out, directPairs...)
	if asName != "" {
		out = append(out, bindingPair{Name: asName, Init: tmpRef})
	}
	return out, nil
}

// isDestructuringPattern reports whether f is anything but a plain
// binding symbol, used by `fn` to decide whether a parameter needs a
// synthetic name plus a generated `let` wrapping the body.
func isDestructuringPattern(f *ast.Form) bool {
	return f.Kind == ast.KindVector || f.Kind == ast.KindMap
}
