package compiler

import (
	"strconv"

	"github.com/kristofer/wisp/internal/object"
	"github.com/kristofer/wisp/internal/scanner"
)

// expression compiles one expression at assignment precedence — the
// weakest level that still excludes bare comma/sequencing, which the
// language doesn't have.
func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence is the heart of the Pratt parser: it consumes one prefix
// production, then keeps consuming infix productions as long as the next
// token's precedence meets the caller's minimum.
func (c *Compiler) parsePrecedence(precedence Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := precedence <= PrecAssignment
	prefix(c, canAssign)

	for precedence <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(scanner.Equal) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) grouping(bool) {
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) number(bool) {
	n, _ := strconv.ParseFloat(c.previous.Lexeme, 64)
	c.emitConstant(object.Number(n))
}

func (c *Compiler) string(bool) {
	// The lexeme still carries the enclosing quote characters.
	raw := c.previous.Lexeme
	chars := raw[1 : len(raw)-1]
	c.emitConstant(object.FromObj(c.heap.InternString(chars)))
}

func (c *Compiler) namedVariableTok(name scanner.Token, canAssign bool) {
	var getOp, setOp object.OpCode
	arg := c.resolveLocal(c.frame, name.Lexeme)
	if arg != -1 {
		getOp, setOp = object.OpGetLocal, object.OpSetLocal
	} else if arg = c.resolveUpvalue(c.frame, name.Lexeme); arg != -1 {
		getOp, setOp = object.OpGetUpvalue, object.OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(name.Lexeme))
		getOp, setOp = object.OpGetGlobal, object.OpSetGlobal
	}

	if canAssign && c.match(scanner.Equal) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariableTok(c.previous, canAssign)
}

func (c *Compiler) unary(bool) {
	opType := c.previous.Type
	c.parsePrecedence(PrecUnary)

	switch opType {
	case scanner.Bang:
		c.emitOp(object.OpNot)
	case scanner.Minus:
		c.emitOp(object.OpNegate)
	}
}

func (c *Compiler) binary(bool) {
	opType := c.previous.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case scanner.BangEqual:
		c.emitOp(object.OpEqual)
		c.emitOp(object.OpNot)
	case scanner.EqualEqual:
		c.emitOp(object.OpEqual)
	case scanner.Greater:
		c.emitOp(object.OpGreater)
	case scanner.GreaterEqual:
		c.emitOp(object.OpLess)
		c.emitOp(object.OpNot)
	case scanner.Less:
		c.emitOp(object.OpLess)
	case scanner.LessEqual:
		c.emitOp(object.OpGreater)
		c.emitOp(object.OpNot)
	case scanner.Plus:
		c.emitOp(object.OpAdd)
	case scanner.Minus:
		c.emitOp(object.OpSubtract)
	case scanner.Star:
		c.emitOp(object.OpMultiply)
	case scanner.Slash:
		c.emitOp(object.OpDivide)
	}
}

func (c *Compiler) call(bool) {
	argCount := c.argumentList()
	c.emitOpByte(object.OpCall, argCount)
}

func (c *Compiler) argumentList() byte {
	var argCount int
	if !c.check(scanner.RightParen) {
		for {
			c.expression()
			if argCount == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(scanner.Comma) {
				break
			}
		}
	}
	c.consume(scanner.RightParen, "Expect ')' after arguments.")
	return byte(argCount)
}

func (c *Compiler) literal(bool) {
	switch c.previous.Type {
	case scanner.False:
		c.emitOp(object.OpFalse)
	case scanner.Nil:
		c.emitOp(object.OpNil)
	case scanner.True:
		c.emitOp(object.OpTrue)
	}
}

func (c *Compiler) and_(bool) {
	endJump := c.emitJump(object.OpJumpIfFalse)
	c.emitOp(object.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(bool) {
	elseJump := c.emitJump(object.OpJumpIfFalse)
	endJump := c.emitJump(object.OpJump)

	c.patchJump(elseJump)
	c.emitOp(object.OpPop)

	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(scanner.Identifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Lexeme)

	switch {
	case canAssign && c.match(scanner.Equal):
		c.expression()
		c.emitOpByte(object.OpSetProperty, name)
	case c.match(scanner.LeftParen):
		argCount := c.argumentList()
		c.emitOpByte(object.OpInvoke, name)
		c.emitByte(argCount)
	default:
		c.emitOpByte(object.OpGetProperty, name)
	}
}

func (c *Compiler) this_(bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

// syntheticToken manufactures a token not present in the source, used to
// resolve the compiler-injected "this"/"super" locals the same way a
// source-level reference would be resolved.
func syntheticToken(text string) scanner.Token {
	return scanner.Token{Type: scanner.Identifier, Lexeme: text}
}

func (c *Compiler) super_(bool) {
	switch {
	case c.class == nil:
		c.error("Can't use 'super' outside of a class.")
	case !c.class.hasSuperclass:
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(scanner.Dot, "Expect '.' after 'super'.")
	c.consume(scanner.Identifier, "Expect superclass method name.")
	name := c.identifierConstant(c.previous.Lexeme)

	c.namedVariableTok(syntheticToken("this"), false)
	if c.match(scanner.LeftParen) {
		argCount := c.argumentList()
		c.namedVariableTok(syntheticToken("super"), false)
		c.emitOpByte(object.OpSuperInvoke, name)
		c.emitByte(argCount)
	} else {
		c.namedVariableTok(syntheticToken("super"), false)
		c.emitOpByte(object.OpGetSuper, name)
	}
}
