package casec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeTotalOnValidInput(t *testing.T) {
	toks, err := Tokenize(`let a = 2+3 let b = a*0`)
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	require.Equal(t, TokEnd, toks[len(toks)-1].Kind)
}

func TestTokenizeKeywordsVsIdentifiers(t *testing.T) {
	toks, err := Tokenize(`let letter`)
	require.NoError(t, err)
	require.Equal(t, TokKeyword, toks[0].Kind)
	require.Equal(t, TokIdentifier, toks[1].Kind)
}

func TestTokenizeNumberForms(t *testing.T) {
	cases := []string{"42", "3.14", "1e10", "1e-10", "0x1F", "0b101", "1_000_000"}
	for _, src := range cases {
		toks, err := Tokenize(src)
		require.NoError(t, err, src)
		require.Equal(t, TokNumber, toks[0].Kind, src)
		require.Equal(t, src, toks[0].Text, src)
	}
}

func TestTokenizeMaximalMunchSymbols(t *testing.T) {
	toks, err := Tokenize("a <= b")
	require.NoError(t, err)
	require.Equal(t, "<=", toks[1].Text)
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb\t\"c\""`)
	require.NoError(t, err)
	require.Equal(t, "a\nb\t\"c\"", toks[0].Text)
}

func TestTokenizeUnterminatedStringFails(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	require.Error(t, err)
	lexErr, ok := err.(LexError)
	require.True(t, ok)
	require.Equal(t, "UnterminatedString", lexErr.Kind)
	require.Equal(t, 1, lexErr.Line)
}

func TestTokenizeUnexpectedCharacterFails(t *testing.T) {
	_, err := Tokenize("a ` b")
	require.Error(t, err)
	lexErr, ok := err.(LexError)
	require.True(t, ok)
	require.Equal(t, "UnexpectedCharacter", lexErr.Kind)
}

func TestTokenizeSkipsCommentsAndTracksLines(t *testing.T) {
	toks, err := Tokenize("let a = 1 // comment\n# also a comment\nlet b = 2")
	require.NoError(t, err)
	require.Equal(t, 1, toks[0].Line)
	var secondLet Token
	for _, tok := range toks {
		if tok.Kind == TokKeyword && tok.Text == "let" {
			secondLet = tok
		}
	}
	require.Equal(t, 3, secondLet.Line)
}
