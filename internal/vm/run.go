package vm

import (
	"fmt"

	"github.com/kristofer/wisp/internal/object"
)

// run is the VM's dispatch loop. It executes frames[frameCount-1] until
// that frame (the one Interpret pushed) returns, or a runtime error is
// reported, whichever comes first.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]
	chunk := &frame.closure.Function.Chunk

	readByte := func() byte {
		b := chunk.Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() uint16 {
		hi := chunk.Code[frame.ip]
		lo := chunk.Code[frame.ip+1]
		frame.ip += 2
		return uint16(hi)<<8 | uint16(lo)
	}
	readConstant := func() object.Value {
		return chunk.Constants[readByte()]
	}
	readString := func() *object.StringObj {
		return readConstant().AsString()
	}

	for {
		// Safe point: every live value is reachable from the stack, the
		// frame chain's closures, open upvalues, or globals — exactly what
		// MarkRoots walks — so a collection here can never reclaim
		// something still in use.
		vm.heap.MaybeCollect()

		op := object.OpCode(readByte())
		switch op {
		case object.OpConstant:
			vm.push(readConstant())

		case object.OpNil:
			vm.push(object.Nil)
		case object.OpTrue:
			vm.push(object.Bool(true))
		case object.OpFalse:
			vm.push(object.Bool(false))
		case object.OpPop:
			vm.pop()

		case object.OpGetLocal:
			slot := readByte()
			vm.push(vm.stack[frame.slotsBase+int(slot)])
		case object.OpSetLocal:
			slot := readByte()
			vm.stack[frame.slotsBase+int(slot)] = vm.peek(0)

		case object.OpGetGlobal:
			name := readString()
			value, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return vm.lastError
			}
			vm.push(value)
		case object.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case object.OpSetGlobal:
			name := readString()
			if isNewKey := vm.globals.Set(name, vm.peek(0)); isNewKey {
				vm.globals.Delete(name)
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return vm.lastError
			}

		case object.OpGetUpvalue:
			slot := readByte()
			vm.push(*frame.closure.Upvalues[slot].Location)
		case object.OpSetUpvalue:
			slot := readByte()
			*frame.closure.Upvalues[slot].Location = vm.peek(0)

		case object.OpGetProperty:
			if !vm.peek(0).IsInstance() {
				vm.runtimeError("Only instances have properties.")
				return vm.lastError
			}
			instance := vm.peek(0).AsInstance()
			name := readString()
			if value, ok := instance.Fields.Get(name); ok {
				vm.pop() // instance
				vm.push(value)
				break
			}
			if !vm.bindMethod(instance.Class, name) {
				return vm.lastError
			}
		case object.OpSetProperty:
			if !vm.peek(1).IsInstance() {
				vm.runtimeError("Only instances have fields.")
				return vm.lastError
			}
			instance := vm.peek(1).AsInstance()
			name := readString()
			instance.Fields.Set(name, vm.peek(0))
			value := vm.pop()
			vm.pop() // instance
			vm.push(value)
		case object.OpGetSuper:
			name := readString()
			superclass := vm.pop().AsClass()
			if !vm.bindMethod(superclass, name) {
				return vm.lastError
			}

		case object.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.Bool(object.Equal(a, b)))
		case object.OpGreater:
			if !vm.numericBinaryOp(func(a, b float64) object.Value { return object.Bool(a > b) }) {
				return vm.lastError
			}
		case object.OpLess:
			if !vm.numericBinaryOp(func(a, b float64) object.Value { return object.Bool(a < b) }) {
				return vm.lastError
			}

		case object.OpAdd:
			if !vm.add() {
				return vm.lastError
			}
		case object.OpSubtract:
			if !vm.numericBinaryOp(func(a, b float64) object.Value { return object.Number(a - b) }) {
				return vm.lastError
			}
		case object.OpMultiply:
			if !vm.numericBinaryOp(func(a, b float64) object.Value { return object.Number(a * b) }) {
				return vm.lastError
			}
		case object.OpDivide:
			if !vm.numericBinaryOp(func(a, b float64) object.Value { return object.Number(a / b) }) {
				return vm.lastError
			}

		case object.OpNot:
			vm.push(object.Bool(vm.pop().IsFalsey()))
		case object.OpNegate:
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operand must be a number.")
				return vm.lastError
			}
			vm.push(object.Number(-vm.pop().AsNumber()))

		case object.OpPrint:
			vm.println(vm.pop())

		case object.OpJump:
			offset := readShort()
			frame.ip += int(offset)
		case object.OpJumpIfFalse:
			offset := readShort()
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case object.OpLoop:
			offset := readShort()
			frame.ip -= int(offset)

		case object.OpCall:
			argCount := int(readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return vm.lastError
			}
			frame = &vm.frames[vm.frameCount-1]
			chunk = &frame.closure.Function.Chunk

		case object.OpInvoke:
			name := readString()
			argCount := int(readByte())
			if !vm.invoke(name, argCount) {
				return vm.lastError
			}
			frame = &vm.frames[vm.frameCount-1]
			chunk = &frame.closure.Function.Chunk

		case object.OpSuperInvoke:
			name := readString()
			argCount := int(readByte())
			superclass := vm.pop().AsClass()
			if !vm.invokeFromClass(superclass, name, argCount) {
				return vm.lastError
			}
			frame = &vm.frames[vm.frameCount-1]
			chunk = &frame.closure.Function.Chunk

		case object.OpClosure:
			fn := readConstant().AsFunction()
			closure := vm.heap.NewClosure(fn)
			vm.push(object.FromObj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case object.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case object.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop() // the top-level script closure itself
				return nil
			}
			vm.stackTop = frame.slotsBase
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]
			chunk = &frame.closure.Function.Chunk

		case object.OpClass:
			name := readString()
			vm.push(object.FromObj(vm.heap.NewClass(name)))

		case object.OpInherit:
			superVal := vm.peek(1)
			if !superVal.IsClass() {
				vm.runtimeError("Superclass must be a class.")
				return vm.lastError
			}
			subclass := vm.peek(0).AsClass()
			superVal.AsClass().Methods.Each(func(key *object.StringObj, value object.Value) {
				subclass.Methods.Set(key, value)
			})
			vm.pop() // the subclass value, leaving the "super" local in place

		case object.OpMethod:
			name := readString()
			method := vm.peek(0)
			class := vm.peek(1).AsClass()
			class.Methods.Set(name, method)
			vm.pop()

		default:
			vm.runtimeError("Unknown opcode 0x%02X.", byte(op))
			return vm.lastError
		}
	}
}

func (vm *VM) println(v object.Value) {
	fmt.Fprintln(vm.out, v.String())
}

// numericBinaryOp implements the shared "both operands must be numbers"
// check every arithmetic/comparison opcode but ADD needs (ADD also accepts
// two strings, handled separately by add()).
func (vm *VM) numericBinaryOp(op func(a, b float64) object.Value) bool {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		vm.runtimeError("Operands must be numbers.")
		return false
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return true
}

func (vm *VM) add() bool {
	switch {
	case vm.peek(0).IsString() && vm.peek(1).IsString():
		b := vm.pop().AsString()
		a := vm.pop().AsString()
		vm.push(object.FromObj(vm.heap.Concat(a, b)))
		return true
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		vm.push(object.Number(a + b))
		return true
	default:
		vm.runtimeError("Operands must be two numbers or two strings.")
		return false
	}
}
