package casec

import "fmt"

// TokenKind enumerates the lexical categories produced by the Lexer.
type TokenKind int

const (
	TokIdentifier TokenKind = iota
	TokString
	TokNumber
	TokKeyword
	TokSymbol
	TokEnd
)

func (k TokenKind) String() string {
	switch k {
	case TokIdentifier:
		return "identifier"
	case TokString:
		return "string"
	case TokNumber:
		return "number"
	case TokKeyword:
		return "keyword"
	case TokSymbol:
		return "symbol"
	case TokEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Token is the atomic unit produced by the Lexer and consumed by the
// Parser. Line is 1-based, matching source text line numbers.
type Token struct {
	Kind TokenKind
	Text string
	Line int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Line)
}

// keywords is the closed set recognized by the lexer. Anything in this
// set is tagged TokKeyword instead of TokIdentifier.
var keywords = map[string]bool{
	"Print": true, "ret": true, "return": true, "loop": true, "if": true,
	"else": true, "Fn": true, "routine": true, "call": true, "let": true,
	"while": true, "break": true, "continue": true, "switch": true,
	"case": true, "default": true, "match": true, "try": true, "catch": true,
	"throw": true, "overlay": true, "open": true, "write": true,
	"writeln": true, "read": true, "close": true, "mutate": true,
	"scale": true, "bounds": true, "checkpoint": true, "vbreak": true,
	"channel": true, "send": true, "recv": true, "sync": true,
	"schedule": true, "input": true, "true": true, "false": true,
	"class": true, "extends": true, "public": true, "private": true,
	"protected": true, "struct": true, "splice": true, "duration": true,
	"derivative": true,
}

// twoCharSymbols is scanned before single-character symbols so the lexer
// performs maximal munch.
var twoCharSymbols = []string{
	"<=", ">=", "==", "!=", "&&", "||", "+=", "-=", "*=", "/=", "%=",
	"++", "--", "->", "::", "<<", ">>",
}
