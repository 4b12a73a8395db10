package object

import (
	"fmt"
	"strings"
)

// Disassembly is a debugging utility only; the compiler and VM never
// consult it on their hot paths.

// DisassembleChunk renders every instruction in c as human-readable text,
// labelled with name (typically the owning function's name or "<script>").
func DisassembleChunk(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(&b, c, offset)
	}
	return b.String()
}

// DisassembleInstruction writes one instruction at offset to w and returns
// the offset of the next instruction.
func DisassembleInstruction(w *strings.Builder, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.LineFor(offset) == c.LineFor(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.LineFor(offset))
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OpConstant, OpGetLocal, OpSetLocal, OpGetGlobal, OpDefineGlobal,
		OpSetGlobal, OpGetUpvalue, OpSetUpvalue, OpGetProperty, OpSetProperty,
		OpGetSuper, OpCall, OpClass, OpMethod:
		return byteInstruction(w, op, c, offset)
	case OpJump, OpJumpIfFalse:
		return jumpInstruction(w, op, 1, c, offset)
	case OpLoop:
		return jumpInstruction(w, op, -1, c, offset)
	case OpInvoke, OpSuperInvoke:
		return invokeInstruction(w, op, c, offset)
	case OpClosure:
		return closureInstruction(w, c, offset)
	default:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}

func byteInstruction(w *strings.Builder, op OpCode, c *Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(w *strings.Builder, op OpCode, sign int, c *Chunk, offset int) int {
	jump := int(uint16(c.Code[offset+1])<<8 | uint16(c.Code[offset+2]))
	target := offset + 3 + sign*jump
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}

func invokeInstruction(w *strings.Builder, op OpCode, c *Chunk, offset int) int {
	constant := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d\n", op, argCount, constant)
	return offset + 3
}

func closureInstruction(w *strings.Builder, c *Chunk, offset int) int {
	offset++
	constant := c.Code[offset]
	offset++
	fmt.Fprintf(w, "%-16s %4d\n", OpClosure, constant)

	fn, ok := c.Constants[constant].obj.(*FunctionObj)
	if !ok {
		return offset
	}
	for j := 0; j < fn.UpvalueCount; j++ {
		isLocal := c.Code[offset]
		offset++
		index := c.Code[offset]
		offset++
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}
