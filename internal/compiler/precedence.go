package compiler

import "github.com/kristofer/wisp/internal/scanner"

// Precedence orders binding strength from weakest to strongest. Parsing a
// right-hand side at precedence P only consumes infix operators whose own
// precedence is >= P.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

// parseFn compiles one expression production starting at the parser's
// previous (prefix) or current (infix, after the operator has already been
// consumed as previous) token. canAssign gates whether a trailing '=' forms
// an assignment, so that e.g. `a + b = c` reports "Invalid assignment
// target." instead of silently compiling as one.
type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is built in init rather than declared as an array literal indexed by
// TokenType, so the table stays correct regardless of how scanner.TokenType
// values are ordered.
var rules map[scanner.TokenType]parseRule

func init() {
	rules = map[scanner.TokenType]parseRule{
		scanner.LeftParen:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: PrecCall},
		scanner.RightParen:   {},
		scanner.LeftBrace:    {},
		scanner.RightBrace:   {},
		scanner.Comma:        {},
		scanner.Dot:          {infix: (*Compiler).dot, precedence: PrecCall},
		scanner.Minus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm},
		scanner.Plus:         {infix: (*Compiler).binary, precedence: PrecTerm},
		scanner.Semicolon:    {},
		scanner.Slash:        {infix: (*Compiler).binary, precedence: PrecFactor},
		scanner.Star:         {infix: (*Compiler).binary, precedence: PrecFactor},
		scanner.Bang:         {prefix: (*Compiler).unary},
		scanner.BangEqual:    {infix: (*Compiler).binary, precedence: PrecEquality},
		scanner.Equal:        {},
		scanner.EqualEqual:   {infix: (*Compiler).binary, precedence: PrecEquality},
		scanner.Greater:      {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.GreaterEqual: {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.Less:         {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.LessEqual:    {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.Identifier:   {prefix: (*Compiler).variable},
		scanner.String:       {prefix: (*Compiler).string},
		scanner.Number:       {prefix: (*Compiler).number},
		scanner.And:          {infix: (*Compiler).and_, precedence: PrecAnd},
		scanner.Class:        {},
		scanner.Else:         {},
		scanner.False:        {prefix: (*Compiler).literal},
		scanner.For:          {},
		scanner.Fun:          {},
		scanner.If:           {},
		scanner.Nil:          {prefix: (*Compiler).literal},
		scanner.Or:           {infix: (*Compiler).or_, precedence: PrecOr},
		scanner.Print:        {},
		scanner.Return:       {},
		scanner.Super:        {prefix: (*Compiler).super_},
		scanner.This:         {prefix: (*Compiler).this_},
		scanner.True:         {prefix: (*Compiler).literal},
		scanner.Var:          {},
		scanner.While:        {},
		scanner.Error:        {},
		scanner.EOF:          {},
	}
}

func getRule(t scanner.TokenType) parseRule {
	return rules[t]
}
