// Package compiler implements wisp's single-pass Pratt compiler: it walks
// the token stream exactly once, emitting bytecode directly into a Chunk
// with no intermediate AST. Lexical scope is resolved during the same pass,
// so an identifier compiles to a local slot, an upvalue index, or a
// late-bound global name constant the moment it is parsed.
package compiler

import (
	"fmt"
	"io"
	"os"

	"github.com/kristofer/wisp/internal/object"
	"github.com/kristofer/wisp/internal/scanner"
)

const maxLocals = 256

// funcType distinguishes the four kinds of compiled function body, each
// with slightly different rules for slot 0 and for what "return" may do.
type funcType int

const (
	typeFunction funcType = iota
	typeInitializer
	typeMethod
	typeScript
)

type localVar struct {
	name       string
	depth      int
	isCaptured bool
}

type upvalueDesc struct {
	index   byte
	isLocal bool
}

// frame holds the compiler state for one function body being compiled: its
// own locals, its own upvalue descriptors, and a link to the enclosing
// frame so resolveUpvalue can walk outward. One frame is pushed per
// function/method/script compiled.
type frame struct {
	enclosing *frame
	function  *object.FunctionObj
	fnType    funcType

	locals     [maxLocals]localVar
	localCount int
	upvalues   [maxLocals]upvalueDesc
	scopeDepth int
}

type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler compiles one source string into a top-level FunctionObj. It is
// not reentrant across goroutines and not reused across Compile calls;
// every REPL line and every loaded file gets its own, independent compile.
type Compiler struct {
	heap *object.Heap
	scan *scanner.Scanner

	current  scanner.Token
	previous scanner.Token

	hadError  bool
	panicMode bool
	errOut    io.Writer

	frame *frame
	class *classState
}

// New constructs a Compiler bound to heap and registers it as the heap's
// compiler root source, so any FunctionObj under construction is reachable
// during a mid-compile collection.
func New(heap *object.Heap) *Compiler {
	c := &Compiler{heap: heap, errOut: os.Stderr}
	heap.SetCompilerRoots(c.MarkRoots)
	return c
}

// SetErrorOutput redirects where compile error diagnostics are written.
// Defaults to os.Stderr; tests and embedders that want to capture
// diagnostics (e.g. interp's Interpreter.Run) call this instead.
func (c *Compiler) SetErrorOutput(w io.Writer) { c.errOut = w }

// MarkRoots marks every FunctionObj currently under construction, walking
// the frame chain outward from the innermost function being compiled.
func (c *Compiler) MarkRoots(h *object.Heap) {
	for f := c.frame; f != nil; f = f.enclosing {
		h.MarkObject(f.function)
	}
}

// Compile compiles source into a top-level script function. The second
// return value is false if any compile error was reported, in which case
// the returned function is still populated but must not be run.
func (c *Compiler) Compile(source string) (*object.FunctionObj, bool) {
	c.scan = scanner.New(source)
	c.hadError = false
	c.panicMode = false

	c.beginFrame(typeScript, "")
	c.advance()
	for !c.match(scanner.EOF) {
		c.declaration()
		// Safe point: nothing mid-declaration is reachable only from a
		// local Go variable here, every FunctionObj under construction is
		// rooted via MarkRoots walking the frame chain.
		c.heap.MaybeCollect()
	}
	fn := c.endFrame()
	return fn, !c.hadError
}

func (c *Compiler) beginFrame(fnType funcType, name string) {
	fr := &frame{enclosing: c.frame, function: c.heap.NewFunction(), fnType: fnType}
	if fnType != typeScript {
		fr.function.Name = c.heap.InternString(name)
	}

	// Slot 0 is reserved for the call frame's receiver. In a method or
	// initializer it is addressable as "this"; in a plain function or the
	// top-level script it's unnamed and never referenced by source.
	slot0 := &fr.locals[0]
	fr.localCount = 1
	slot0.depth = 0
	if fnType == typeMethod || fnType == typeInitializer {
		slot0.name = "this"
	}

	c.frame = fr
}

func (c *Compiler) endFrame() *object.FunctionObj {
	c.emitReturn()
	fn := c.frame.function
	c.frame = c.frame.enclosing
	return fn
}

func (c *Compiler) currentChunk() *object.Chunk {
	return &c.frame.function.Chunk
}

// -------- token flow --------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scan.NextToken()
		if c.current.Type != scanner.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t scanner.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t scanner.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t scanner.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// -------- error reporting --------

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error(message string)          { c.errorAt(c.previous, message) }

func (c *Compiler) errorAt(tok scanner.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	fmt.Fprintf(c.errOut, "[line %d] Error", tok.Line)
	switch tok.Type {
	case scanner.EOF:
		fmt.Fprint(c.errOut, " at end")
	case scanner.Error:
		// nothing extra
	default:
		fmt.Fprintf(c.errOut, " at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(c.errOut, ": %s\n", message)
	c.hadError = true
}

// synchronize discards tokens until it reaches a likely statement boundary,
// so one syntax error doesn't cascade into a wall of spurious ones.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != scanner.EOF {
		if c.previous.Type == scanner.Semicolon {
			return
		}
		switch c.current.Type {
		case scanner.Class, scanner.Fun, scanner.Var, scanner.For,
			scanner.If, scanner.While, scanner.Print, scanner.Return:
			return
		}
		c.advance()
	}
}

// -------- byte emission --------

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op object.OpCode) {
	c.currentChunk().WriteOp(op, c.previous.Line)
}

func (c *Compiler) emitOpByte(op object.OpCode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *Compiler) emitReturn() {
	if c.frame.fnType == typeInitializer {
		c.emitOpByte(object.OpGetLocal, 0)
	} else {
		c.emitOp(object.OpNil)
	}
	c.emitOp(object.OpReturn)
}

func (c *Compiler) makeConstant(v object.Value) byte {
	idx, err := c.currentChunk().AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v object.Value) {
	c.emitOpByte(object.OpConstant, c.makeConstant(v))
}

// emitJump emits a jump instruction with a placeholder 16-bit operand and
// returns the operand's offset, to be patched once the jump target is known.
func (c *Compiler) emitJump(op object.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.currentChunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}
	code := c.currentChunk().Code
	code[offset] = byte((jump >> 8) & 0xff)
	code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(object.OpLoop)
	offset := len(c.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// -------- scopes, locals, upvalues --------

func (c *Compiler) beginScope() { c.frame.scopeDepth++ }

func (c *Compiler) endScope() {
	c.frame.scopeDepth--
	fr := c.frame
	for fr.localCount > 0 && fr.locals[fr.localCount-1].depth > fr.scopeDepth {
		if fr.locals[fr.localCount-1].isCaptured {
			c.emitOp(object.OpCloseUpvalue)
		} else {
			c.emitOp(object.OpPop)
		}
		fr.localCount--
	}
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(object.FromObj(c.heap.InternString(name)))
}

func (c *Compiler) addLocal(name string) {
	fr := c.frame
	if fr.localCount == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	fr.locals[fr.localCount] = localVar{name: name, depth: -1}
	fr.localCount++
}

// declareVariable registers the variable being parsed as a local (no-op at
// global scope, where definition is instead handled by DEFINE_GLOBAL).
func (c *Compiler) declareVariable(name string) {
	fr := c.frame
	if fr.scopeDepth == 0 {
		return
	}
	for i := fr.localCount - 1; i >= 0; i-- {
		local := fr.locals[i]
		if local.depth != -1 && local.depth < fr.scopeDepth {
			break
		}
		if local.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.frame.scopeDepth == 0 {
		return
	}
	c.frame.locals[c.frame.localCount-1].depth = c.frame.scopeDepth
}

// resolveLocal returns the slot index of name in fr's own locals, or -1.
// Finding a local whose initializer hasn't finished (depth == -1) reports a
// compile error but still returns the slot, so parsing can continue.
func (c *Compiler) resolveLocal(fr *frame, name string) int {
	for i := fr.localCount - 1; i >= 0; i-- {
		local := &fr.locals[i]
		if local.name == name {
			if local.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue finds name in an enclosing frame (recursively), threading
// an upvalue descriptor through every intervening frame, and returns this
// frame's upvalue index for it, or -1 if name isn't found in any enclosing
// scope.
func (c *Compiler) resolveUpvalue(fr *frame, name string) int {
	if fr.enclosing == nil {
		return -1
	}

	local := c.resolveLocal(fr.enclosing, name)
	if local != -1 {
		fr.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(fr, byte(local), true)
	}

	upvalue := c.resolveUpvalue(fr.enclosing, name)
	if upvalue != -1 {
		return c.addUpvalue(fr, byte(upvalue), false)
	}

	return -1
}

func (c *Compiler) addUpvalue(fr *frame, index byte, isLocal bool) int {
	count := fr.function.UpvalueCount
	for i := 0; i < count; i++ {
		u := fr.upvalues[i]
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if count == maxLocals {
		c.error("Too many closure variables in function.")
		return 0
	}
	fr.upvalues[count] = upvalueDesc{index: index, isLocal: isLocal}
	fr.function.UpvalueCount++
	return count
}
