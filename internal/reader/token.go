package reader

import "github.com/clj-core/clj/internal/errs"

// TokenType enumerates the lexical categories the lexer produces. Grouping
// follows internal/lexer/lexer.go's convention of one constant block per
// token family.
type TokenType uint8

const (
	TokEOF TokenType = iota
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokSetOpen // #{
	TokInt
	TokFloat
	TokString
	TokChar
	TokSymbol
	TokKeyword
	TokQuote        // '
	TokQuasiquote   // `
	TokUnquote      // ~
	TokUnquoteSplice // ~@
	TokMeta         // ^
	TokVarQuote     // #'
	TokRegex        // #"..."
	TokDiscard      // #_
	TokFnLiteral    // #(
	TokDeref        // @
)

// Token is one lexeme with its source position.
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    errs.Position
}
