package rdlex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

// tokenizeAll lexes src end to end, expanding Backslash+identifier pairs the
// way the parser does, so tests can assert on a flat token list.
func tokenizeAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New([]byte(src))
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == Backslash {
			toks = append(toks, l.NextIdentifier())
			continue
		}
		if tok.Kind == EOF {
			break
		}
	}
	return toks
}

func TestNext_EmptyInput_YieldsOnlyEOF(t *testing.T) {
	toks := tokenizeAll(t, "")
	require.Equal(t, []Kind{EOF}, kinds(toks))
}

func TestNext_PlainText_SingleTextToken(t *testing.T) {
	toks := tokenizeAll(t, "hello world")
	require.Equal(t, []Kind{Text, EOF}, kinds(toks))
	require.Equal(t, "hello world", toks[0].Text)
}

func TestNext_Macro_BackslashThenIdentifierThenBraces(t *testing.T) {
	toks := tokenizeAll(t, `\name{test}`)
	require.Equal(t, []Kind{Backslash, Identifier, LBrace, Text, RBrace, EOF}, kinds(toks))
	require.Equal(t, "name", toks[1].Text)
	require.Equal(t, "test", toks[3].Text)
}

func TestNext_EscapeSequences_DecodeToLiteralText(t *testing.T) {
	toks := tokenizeAll(t, `\{\}\%\\`)
	require.Equal(t, []Kind{Text, Text, Text, Text, EOF}, kinds(toks))
	require.Equal(t, []string{"{", "}", "%", "\\"}, []string{toks[0].Text, toks[1].Text, toks[2].Text, toks[3].Text})
}

func TestNext_SingleLetterEscapes_DecodeWhenNotPartOfLongerIdentifier(t *testing.T) {
	toks := tokenizeAll(t, `\R \l \n \t`)
	// Each bare single-letter escape becomes Text with just that letter,
	// interleaved with the literal spaces between them.
	var texts []string
	for _, tok := range toks {
		if tok.Kind == Text {
			texts = append(texts, tok.Text)
		}
	}
	require.Equal(t, []string{"R", " ", "l", " ", "n", " ", "t"}, texts)
}

func TestNext_SingleLetterEscape_DoesNotTruncateLongerIdentifier(t *testing.T) {
	toks := tokenizeAll(t, `\link{x}`)
	require.Equal(t, []Kind{Backslash, Identifier, LBrace, Text, RBrace, EOF}, kinds(toks))
	require.Equal(t, "link", toks[1].Text)
}

func TestNext_IdentifierWithDigits_ScansWhole(t *testing.T) {
	toks := tokenizeAll(t, `\S3method{print}{foo}`)
	require.Equal(t, Backslash, toks[0].Kind)
	require.Equal(t, Identifier, toks[1].Kind)
	require.Equal(t, "S3method", toks[1].Text)
}

func TestNext_LineComment_EmittedAsCommentTokenNotConsumingNewline(t *testing.T) {
	toks := tokenizeAll(t, "before\n% a comment\nafter")
	require.Equal(t, []Kind{Text, Newline, Comment, Newline, Text, EOF}, kinds(toks))
	require.Equal(t, " a comment", toks[2].Text)
}

func TestNext_PercentMidLine_IsLiteralTextNotComment(t *testing.T) {
	toks := tokenizeAll(t, "50% done")
	require.Equal(t, []Kind{Text, EOF}, kinds(toks))
	require.Equal(t, "50% done", toks[0].Text)
}

func TestNext_PercentAfterLeadingWhitespace_IsComment(t *testing.T) {
	toks := tokenizeAll(t, "  % comment\nafter")
	require.Equal(t, []Kind{Text, Comment, Newline, Text, EOF}, kinds(toks))
	require.Equal(t, "  ", toks[0].Text)
	require.Equal(t, " comment", toks[1].Text)
}

func TestNext_PercentAfterMidLineWhitespace_IsComment(t *testing.T) {
	toks := tokenizeAll(t, "foo % bar")
	require.Equal(t, []Kind{Text, Text, Comment, EOF}, kinds(toks))
	require.Equal(t, "foo", toks[0].Text)
	require.Equal(t, " ", toks[1].Text)
	require.Equal(t, " bar", toks[2].Text)
}

func TestNext_PercentOperator_RequiresEscapeToStayLiteral(t *testing.T) {
	toks := tokenizeAll(t, `x \%in\% y`)
	for _, tok := range toks {
		require.NotEqual(t, Comment, tok.Kind)
	}
	var text string
	for _, tok := range toks[:len(toks)-1] {
		text += tok.Text
	}
	require.Equal(t, "x %in% y", text)
}

func TestNext_OptionalBracketArg_TokenizesBrackets(t *testing.T) {
	toks := tokenizeAll(t, `\link[pkg]{topic}`)
	require.Equal(t, []Kind{Backslash, Identifier, LBracket, Text, RBracket, LBrace, Text, RBrace, EOF}, kinds(toks))
}

func TestNext_BracketsOutsideCommand_AreStillTokenized(t *testing.T) {
	toks := tokenizeAll(t, "vector[1]")
	require.Equal(t, []Kind{Text, LBracket, Text, RBracket, EOF}, kinds(toks))
}

func TestNext_CRLFAndLoneCR_NormalizedToLF(t *testing.T) {
	toks := tokenizeAll(t, "a\r\nb\rc")
	require.Equal(t, []Kind{Text, Newline, Text, Newline, Text, EOF}, kinds(toks))
}

func TestNext_VerbatimMode_OnlyTracksBraces(t *testing.T) {
	l := New([]byte(`{a \b % c [d]}`))
	tok := l.Next()
	require.Equal(t, LBrace, tok.Kind)
	l.SetMode(ModeVerbatim)
	tok = l.Next()
	require.Equal(t, Text, tok.Kind)
	require.Equal(t, `a \b % c [d]`, tok.Text)
	tok = l.Next()
	require.Equal(t, RBrace, tok.Kind)
	l.SetMode(ModeNormal)
	tok = l.Next()
	require.Equal(t, EOF, tok.Kind)
}

func TestNext_VerbatimMode_TracksNestedBraces(t *testing.T) {
	l := New([]byte(`{x{y}z}`))
	require.Equal(t, LBrace, l.Next().Kind)
	l.SetMode(ModeVerbatim)
	require.Equal(t, Text, l.Next().Kind) // "x"
	require.Equal(t, LBrace, l.Next().Kind)
	require.Equal(t, Text, l.Next().Kind) // "y"
	require.Equal(t, RBrace, l.Next().Kind)
	require.Equal(t, Text, l.Next().Kind) // "z"
	require.Equal(t, RBrace, l.Next().Kind)
}

func TestNext_Totality_NeverPanicsAndEndsInEOF(t *testing.T) {
	inputs := []string{
		"", "}", "{{{", "\\", "\\\\\\", "%%%%\n", "[[[]]]", "\x00\x01weird",
	}
	for _, in := range inputs {
		l := New([]byte(in))
		var last Token
		for i := 0; i < 10000; i++ {
			last = l.Next()
			if last.Kind == EOF {
				break
			}
		}
		require.Equal(t, EOF, last.Kind, "input %q did not terminate in EOF", in)
	}
}
