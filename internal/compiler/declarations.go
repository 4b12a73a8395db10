package compiler

import (
	"github.com/kristofer/wisp/internal/object"
	"github.com/kristofer/wisp/internal/scanner"
)

// declaration compiles one class/fun/var declaration or falls through to a
// plain statement, then resynchronizes if the previous production left the
// parser in panic mode. This is the compiler's top-level production, called
// once per top-level declaration at script scope and once per declaration
// inside a block.
func (c *Compiler) declaration() {
	switch {
	case c.match(scanner.Class):
		c.classDeclaration()
	case c.match(scanner.Fun):
		c.funDeclaration()
	case c.match(scanner.Var):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(scanner.Print):
		c.printStatement()
	case c.match(scanner.For):
		c.forStatement()
	case c.match(scanner.If):
		c.ifStatement()
	case c.match(scanner.Return):
		c.returnStatement()
	case c.match(scanner.While):
		c.whileStatement()
	case c.match(scanner.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(scanner.RightBrace) && !c.check(scanner.EOF) {
		c.declaration()
	}
	c.consume(scanner.RightBrace, "Expect '}' after block.")
}

// parseVariable consumes the declaration's name token, declares it as a
// local if one is in scope, and otherwise returns the constant-pool index
// its name was interned under (for DEFINE_GLOBAL/GET_GLOBAL family ops).
func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(scanner.Identifier, errMsg)
	name := c.previous.Lexeme
	c.declareVariable(name)
	if c.frame.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.frame.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(object.OpDefineGlobal, global)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(scanner.Equal) {
		c.expression()
	} else {
		c.emitOp(object.OpNil)
	}
	c.consume(scanner.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(typeFunction)
	c.defineVariable(global)
}

// function compiles a parameter list and body into its own frame, then
// emits a CLOSURE instruction in the enclosing frame referencing the
// resulting FunctionObj constant, followed by one (isLocal, index) byte
// pair per upvalue the body captures.
func (c *Compiler) function(fnType funcType) {
	name := c.previous.Lexeme
	c.beginFrame(fnType, name)
	c.beginScope()

	c.consume(scanner.LeftParen, "Expect '(' after function name.")
	if !c.check(scanner.RightParen) {
		for {
			c.frame.function.Arity++
			if c.frame.function.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(scanner.Comma) {
				break
			}
		}
	}
	c.consume(scanner.RightParen, "Expect ')' after parameters.")

	c.consume(scanner.LeftBrace, "Expect '{' before function body.")
	c.block()

	compiled := c.frame
	fn := c.endFrame()
	c.emitOpByte(object.OpClosure, c.makeConstant(object.FromObj(fn)))

	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := byte(0)
		if compiled.upvalues[i].isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitByte(compiled.upvalues[i].index)
	}
}

func (c *Compiler) method() {
	c.consume(scanner.Identifier, "Expect method name.")
	name := c.previous.Lexeme
	constant := c.identifierConstant(name)

	fnType := typeMethod
	if name == "init" {
		fnType = typeInitializer
	}

	c.function(fnType)
	c.emitOpByte(object.OpMethod, constant)
}

func (c *Compiler) classDeclaration() {
	c.consume(scanner.Identifier, "Expect class name.")
	className := c.previous
	nameConstant := c.identifierConstant(className.Lexeme)
	c.declareVariable(className.Lexeme)

	c.emitOpByte(object.OpClass, nameConstant)
	c.defineVariable(nameConstant)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(scanner.Less) {
		c.consume(scanner.Identifier, "Expect superclass name.")
		c.variable(false)

		if c.previous.Lexeme == className.Lexeme {
			c.error("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariableTok(className, false)
		c.emitOp(object.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariableTok(className, false)

	c.consume(scanner.LeftBrace, "Expect '{' before class body.")
	for !c.check(scanner.RightBrace) && !c.check(scanner.EOF) {
		c.method()
	}
	c.consume(scanner.RightBrace, "Expect '}' after class body.")
	c.emitOp(object.OpPop)

	if cs.hasSuperclass {
		c.endScope()
	}

	c.class = c.class.enclosing
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after expression.")
	c.emitOp(object.OpPop)
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after value.")
	c.emitOp(object.OpPrint)
}

func (c *Compiler) returnStatement() {
	if c.frame.fnType == typeScript {
		c.error("Can't return from top-level code.")
	}

	if c.match(scanner.Semicolon) {
		c.emitReturn()
		return
	}

	if c.frame.fnType == typeInitializer {
		c.error("Can't return a value from an initializer.")
	}

	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after return value.")
	c.emitOp(object.OpReturn)
}

func (c *Compiler) ifStatement() {
	c.consume(scanner.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(object.OpJumpIfFalse)
	c.emitOp(object.OpPop)
	c.statement()

	elseJump := c.emitJump(object.OpJump)

	c.patchJump(thenJump)
	c.emitOp(object.OpPop)

	if c.match(scanner.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.currentChunk().Code)

	c.consume(scanner.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(object.OpJumpIfFalse)
	c.emitOp(object.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(object.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()

	c.consume(scanner.LeftParen, "Expect '(' after 'for'.")
	switch {
	case c.match(scanner.Semicolon):
		// no initializer
	case c.match(scanner.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.currentChunk().Code)

	exitJump := -1
	if !c.match(scanner.Semicolon) {
		c.expression()
		c.consume(scanner.Semicolon, "Expect ';' after loop condition.")

		exitJump = c.emitJump(object.OpJumpIfFalse)
		c.emitOp(object.OpPop)
	}

	if !c.match(scanner.RightParen) {
		bodyJump := c.emitJump(object.OpJump)
		incrementStart := len(c.currentChunk().Code)
		c.expression()
		c.emitOp(object.OpPop)
		c.consume(scanner.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)
	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(object.OpPop)
	}

	c.endScope()
}
