package reader

import (
	"strconv"
	"strings"

	"github.com/clj-core/clj/internal/ast"
	"github.com/clj-core/clj/internal/errs"
)

// Limits bounds nesting depth and total form count, per spec §4.1. Exceeding
// either fails with errs.ReaderLimit rather than overflowing the Go stack.
type Limits struct {
	MaxDepth int
	MaxForms int
}

func DefaultLimits() Limits {
	return Limits{MaxDepth: 512, MaxForms: 1_000_000}
}

// Reader wraps a Lexer with one token of lookahead and produces Forms.
type Reader struct {
	lex      *Lexer
	lookahead *Token
	limits   Limits
	depth    int
	formCount int
}

func New(src, file string) *Reader {
	return NewWithLimits(src, file, DefaultLimits())
}

func NewWithLimits(src, file string, limits Limits) *Reader {
	return &Reader{lex: NewLexer(src, file), limits: limits}
}

func (r *Reader) next() (Token, *errs.ReadError) {
	if r.lookahead != nil {
		t := *r.lookahead
		r.lookahead = nil
		return t, nil
	}
	return r.lex.Next()
}

func (r *Reader) peek() (Token, *errs.ReadError) {
	if r.lookahead == nil {
		t, err := r.lex.Next()
		if err != nil {
			return Token{}, err
		}
		r.lookahead = &t
	}
	return *r.lookahead, nil
}

// ReadOne reads a single Form. It returns (nil, nil) at end of input.
func (r *Reader) ReadOne() (*Form, *errs.ReadError) {
	return r.readForm()
}

// ReadAll reads every Form in the input.
func (r *Reader) ReadAll() ([]*Form, *errs.ReadError) {
	var forms []*Form
	for {
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		if f == nil {
			return forms, nil
		}
		forms = append(forms, f)
	}
}

type Form = ast.Form

func (r *Reader) readForm() (*Form, *errs.ReadError) {
	tok, err := r.next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case TokEOF:
		return nil, nil
	case TokLParen:
		return r.readSeq(TokRParen, ast.KindList, tok.Pos)
	case TokLBracket:
		return r.readSeq(TokRBracket, ast.KindVector, tok.Pos)
	case TokSetOpen:
		return r.readSeq(TokRBrace, ast.KindSet, tok.Pos)
	case TokLBrace:
		return r.readMap(tok.Pos)
	case TokRParen, TokRBracket, TokRBrace:
		return nil, errs.NewReadError(errs.UnmatchedDelim, tok.Pos, "unexpected closing delimiter")
	case TokInt:
		return r.parseInt(tok)
	case TokFloat:
		return r.parseFloat(tok)
	case TokString:
		return ast.Str(tok.Lexeme, tok.Pos), nil
	case TokChar:
		return r.parseChar(tok)
	case TokSymbol:
		return r.parseSymbol(tok), nil
	case TokKeyword:
		return r.parseKeyword(tok), nil
	case TokQuote:
		return r.wrap("quote", tok.Pos)
	case TokQuasiquote:
		return r.readQuasiquote(tok.Pos)
	case TokUnquote:
		return r.wrap("unquote", tok.Pos)
	case TokUnquoteSplice:
		return r.wrap("unquote-splicing", tok.Pos)
	case TokVarQuote:
		return r.wrap("var", tok.Pos)
	case TokDeref:
		return r.wrap("deref", tok.Pos)
	case TokMeta:
		return r.readMeta(tok.Pos)
	case TokDiscard:
		if _, derr := r.readForm(); derr != nil {
			return nil, derr
		}
		return r.readForm()
	case TokFnLiteral:
		return r.readFnLiteral(tok.Pos)
	case TokRegex:
		return ast.List([]*Form{ast.Sym("", "re-pattern", tok.Pos), ast.Str(tok.Lexeme, tok.Pos)}, tok.Pos), nil
	}
	return nil, errs.NewReadError(errs.UnterminatedToken, tok.Pos, "unrecognized token")
}

func (r *Reader) wrap(sym string, pos errs.Position) (*Form, *errs.ReadError) {
	inner, err := r.readForm()
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, errs.NewReadError(errs.EOFInString, pos, "EOF after "+sym+" reader macro")
	}
	return ast.List([]*Form{ast.Sym("", sym, pos), inner}, pos), nil
}

func (r *Reader) readMeta(pos errs.Position) (*Form, *errs.ReadError) {
	meta, err := r.readForm()
	if err != nil {
		return nil, err
	}
	target, err := r.readForm()
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errs.NewReadError(errs.EOFInString, pos, "EOF after ^metadata")
	}
	if meta.Kind == ast.KindKeyword {
		meta = ast.MapForm([]*Form{meta, ast.Bool(true, pos)}, pos)
	}
	target.Meta = meta
	return target, nil
}

func (r *Reader) readFnLiteral(pos errs.Position) (*Form, *errs.ReadError) {
	body, err := r.readSeq(TokRParen, ast.KindList, pos)
	if err != nil {
		return nil, err
	}
	maxArg, variadic := scanPercentArgs(body)
	params := make([]*Form, 0, maxArg)
	for i := 1; i <= maxArg; i++ {
		params = append(params, ast.Sym("", "%"+strconv.Itoa(i), pos))
	}
	if variadic {
		params = append(params, ast.Sym("", "&", pos), ast.Sym("", "%&", pos))
	}
	fnBody := substitutePercentRefs(body)
	paramVec := ast.Vector(params, pos)
	return ast.List([]*Form{ast.Sym("", "fn", pos), paramVec, fnBody}, pos), nil
}

func scanPercentArgs(f *Form) (maxArg int, variadic bool) {
	if f == nil {
		return
	}
	if f.Kind == ast.KindSymbol && f.NS == "" {
		switch {
		case f.Str == "%" || f.Str == "%1":
			if maxArg < 1 {
				maxArg = 1
			}
		case f.Str == "%&":
			variadic = true
		case strings.HasPrefix(f.Str, "%") && len(f.Str) > 1:
			if n, err := strconv.Atoi(f.Str[1:]); err == nil && n > maxArg {
				maxArg = n
			}
		}
	}
	for _, it := range f.Items {
		m, v := scanPercentArgs(it)
		if m > maxArg {
			maxArg = m
		}
		variadic = variadic || v
	}
	return
}

func substitutePercentRefs(f *Form) *Form {
	if f == nil {
		return nil
	}
	if f.Kind == ast.KindSymbol && f.NS == "" && f.Str == "%" {
		cp := *f
		cp.Str = "%1"
		return &cp
	}
	if len(f.Items) == 0 {
		return f
	}
	cp := *f
	cp.Items = make([]*Form, len(f.Items))
	for i, it := range f.Items {
		cp.Items[i] = substitutePercentRefs(it)
	}
	return &cp
}

func (r *Reader) readQuasiquote(pos errs.Position) (*Form, *errs.ReadError) {
	inner, err := r.readForm()
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, errs.NewReadError(errs.EOFInString, pos, "EOF after quasiquote")
	}
	return ast.List([]*Form{ast.Sym("", "quasiquote", pos), inner}, pos), nil
}

func (r *Reader) enterDepth(pos errs.Position) *errs.ReadError {
	r.depth++
	if r.depth > r.limits.MaxDepth {
		return errs.NewReadError(errs.ReaderLimit, pos, "max nesting depth exceeded")
	}
	return nil
}

func (r *Reader) readSeq(closing TokenType, kind ast.Kind, pos errs.Position) (*Form, *errs.ReadError) {
	if derr := r.enterDepth(pos); derr != nil {
		return nil, derr
	}
	defer func() { r.depth-- }()
	var items []*Form
	for {
		tok, err := r.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokEOF {
			return nil, errs.NewReadError(errs.UnmatchedDelim, pos, "unterminated collection")
		}
		if tok.Type == closing {
			r.next()
			break
		}
		item, err := r.readForm()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, errs.NewReadError(errs.UnmatchedDelim, pos, "unterminated collection")
		}
		r.formCount++
		if r.formCount > r.limits.MaxForms {
			return nil, errs.NewReadError(errs.ReaderLimit, pos, "max form count exceeded")
		}
		items = append(items, item)
	}
	f := &Form{Kind: kind, Items: items, Pos: pos}
	return f, nil
}

func (r *Reader) readMap(pos errs.Position) (*Form, *errs.ReadError) {
	f, err := r.readSeq(TokRBrace, ast.KindMap, pos)
	if err != nil {
		return nil, err
	}
	if len(f.Items)%2 != 0 {
		return nil, errs.NewReadError(errs.OddMapForms, pos, "map literal has an odd number of forms")
	}
	return f, nil
}

func (r *Reader) parseInt(tok Token) (*Form, *errs.ReadError) {
	s := strings.TrimSuffix(tok.Lexeme, "N")
	v, perr := strconv.ParseInt(s, 10, 64)
	if perr != nil {
		return nil, errs.NewReadError(errs.InvalidNumber, tok.Pos, "invalid integer literal "+tok.Lexeme)
	}
	return ast.Int(v, tok.Pos), nil
}

func (r *Reader) parseFloat(tok Token) (*Form, *errs.ReadError) {
	s := strings.TrimSuffix(tok.Lexeme, "M")
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		num, nerr := strconv.ParseFloat(s[:idx], 64)
		den, derr := strconv.ParseFloat(s[idx+1:], 64)
		if nerr != nil || derr != nil || den == 0 {
			return nil, errs.NewReadError(errs.InvalidNumber, tok.Pos, "invalid ratio literal "+tok.Lexeme)
		}
		return ast.Float(num/den, tok.Pos), nil
	}
	v, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return nil, errs.NewReadError(errs.InvalidNumber, tok.Pos, "invalid float literal "+tok.Lexeme)
	}
	return ast.Float(v, tok.Pos), nil
}

func (r *Reader) parseChar(tok Token) (*Form, *errs.ReadError) {
	if strings.HasPrefix(tok.Lexeme, "u") && len(tok.Lexeme) == 5 {
		var v rune
		for _, c := range tok.Lexeme[1:] {
			v <<= 4
			switch {
			case c >= '0' && c <= '9':
				v |= c - '0'
			case c >= 'a' && c <= 'f':
				v |= c - 'a' + 10
			case c >= 'A' && c <= 'F':
				v |= c - 'A' + 10
			default:
				return nil, errs.NewReadError(errs.InvalidEscape, tok.Pos, "bad \\uXXXX char literal")
			}
		}
		return ast.Char(v, tok.Pos), nil
	}
	runes := []rune(tok.Lexeme)
	return ast.Char(runes[0], tok.Pos), nil
}

func (r *Reader) parseSymbol(tok Token) *Form {
	switch tok.Lexeme {
	case "nil":
		return ast.Nil(tok.Pos)
	case "true":
		return ast.Bool(true, tok.Pos)
	case "false":
		return ast.Bool(false, tok.Pos)
	}
	ns, name := splitQualified(tok.Lexeme)
	return ast.Sym(ns, name, tok.Pos)
}

func (r *Reader) parseKeyword(tok Token) *Form {
	lexeme := tok.Lexeme
	if strings.HasPrefix(lexeme, ":") {
		// ::name auto-resolved keyword; namespace filled in by the analyzer
		// against the current namespace, marked with a leading NS of "::".
		lexeme = lexeme[1:]
		ns, name := splitQualified(lexeme)
		if ns == "" {
			ns = "::"
		}
		return ast.Kw(ns, name, tok.Pos)
	}
	ns, name := splitQualified(lexeme)
	return ast.Kw(ns, name, tok.Pos)
}

func splitQualified(s string) (ns, name string) {
	if s == "/" {
		return "", "/"
	}
	idx := strings.IndexByte(s, '/')
	if idx <= 0 || idx == len(s)-1 {
		return "", s
	}
	return s[:idx], s[idx+1:]
}
