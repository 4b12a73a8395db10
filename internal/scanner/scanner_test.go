package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextTokenPunctuationAndOperators(t *testing.T) {
	input := `( ) { } , . - + ; / * ! != = == > >= < <=`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{LeftParen, "("},
		{RightParen, ")"},
		{LeftBrace, "{"},
		{RightBrace, "}"},
		{Comma, ","},
		{Dot, "."},
		{Minus, "-"},
		{Plus, "+"},
		{Semicolon, ";"},
		{Slash, "/"},
		{Star, "*"},
		{Bang, "!"},
		{BangEqual, "!="},
		{Equal, "="},
		{EqualEqual, "=="},
		{Greater, ">"},
		{GreaterEqual, ">="},
		{Less, "<"},
		{LessEqual, "<="},
		{EOF, ""},
	}

	s := New(input)
	for i, tt := range tests {
		tok := s.NextToken()
		assert.Equal(t, tt.expectedType, tok.Type, "tests[%d] token type", i)
		assert.Equal(t, tt.expectedLexeme, tok.Lexeme, "tests[%d] lexeme", i)
	}
}

func TestNextTokenKeywordsAndIdentifiers(t *testing.T) {
	input := `and class else false for fun if nil or print return super this true var while foo _bar x2`

	tests := []TokenType{
		And, Class, Else, False, For, Fun, If, Nil, Or, Print, Return,
		Super, This, True, Var, While,
		Identifier, Identifier, Identifier,
		EOF,
	}

	s := New(input)
	for i, expected := range tests {
		tok := s.NextToken()
		assert.Equal(t, expected, tok.Type, "tests[%d]", i)
	}
}

func TestNextTokenNumbers(t *testing.T) {
	s := New(`123 45.67 8.`)

	tok := s.NextToken()
	assert.Equal(t, Number, tok.Type)
	assert.Equal(t, "123", tok.Lexeme)

	tok = s.NextToken()
	assert.Equal(t, Number, tok.Type)
	assert.Equal(t, "45.67", tok.Lexeme)

	// A trailing dot is not part of the number; it scans as DOT.
	tok = s.NextToken()
	assert.Equal(t, Number, tok.Type)
	assert.Equal(t, "8", tok.Lexeme)
	assert.Equal(t, Dot, s.NextToken().Type)
}

func TestNextTokenStringKeepsQuotes(t *testing.T) {
	s := New(`"hello there"`)
	tok := s.NextToken()
	assert.Equal(t, String, tok.Type)
	assert.Equal(t, `"hello there"`, tok.Lexeme)
}

func TestNextTokenUnterminatedString(t *testing.T) {
	s := New(`"never closed`)
	tok := s.NextToken()
	assert.Equal(t, Error, tok.Type)
	assert.Equal(t, "Unterminated string.", tok.Lexeme)
}

func TestNextTokenMultilineStringTracksLine(t *testing.T) {
	s := New("\"a\nb\" x")
	tok := s.NextToken()
	assert.Equal(t, String, tok.Type)
	assert.Equal(t, 2, tok.Line, "string token reports the line it ends on")

	tok = s.NextToken()
	assert.Equal(t, Identifier, tok.Type)
	assert.Equal(t, 2, tok.Line)
}

func TestNextTokenSkipsCommentsAndCountsLines(t *testing.T) {
	s := New("// a comment\nvar // trailing\nx")

	tok := s.NextToken()
	assert.Equal(t, Var, tok.Type)
	assert.Equal(t, 2, tok.Line)

	tok = s.NextToken()
	assert.Equal(t, Identifier, tok.Type)
	assert.Equal(t, 3, tok.Line)

	assert.Equal(t, EOF, s.NextToken().Type)
}

func TestNextTokenUnexpectedCharacter(t *testing.T) {
	s := New(`@`)
	tok := s.NextToken()
	assert.Equal(t, Error, tok.Type)
	assert.Equal(t, "Unexpected character.", tok.Lexeme)
}

func TestNextTokenEOFIsSticky(t *testing.T) {
	s := New(``)
	assert.Equal(t, EOF, s.NextToken().Type)
	assert.Equal(t, EOF, s.NextToken().Type)
}
