package vm

import "github.com/kristofer/wisp/internal/object"

// callValue dispatches a call expression's callee, whatever kind of value
// it turned out to be at runtime. Returns false (having already reported a
// RuntimeError) if callee isn't callable or the call's arity is wrong.
func (vm *VM) callValue(callee object.Value, argCount int) bool {
	if !callee.IsObj() {
		vm.runtimeError("Can only call functions and classes.")
		return false
	}

	switch callee.ObjType() {
	case object.ObjTypeClosure:
		return vm.call(callee.AsClosure(), argCount)

	case object.ObjTypeNative:
		native := callee.AsNative()
		args := vm.stack[vm.stackTop-argCount : vm.stackTop]
		result, err := native.Fn(args)
		if err != nil {
			vm.runtimeError("%s", err.Error())
			return false
		}
		vm.stackTop -= argCount + 1
		vm.push(result)
		return true

	case object.ObjTypeClass:
		class := callee.AsClass()
		instance := vm.heap.NewInstance(class)
		vm.stack[vm.stackTop-argCount-1] = object.FromObj(instance)
		if initVal, ok := class.Methods.Get(vm.heap.InitString); ok {
			return vm.call(initVal.AsClosure(), argCount)
		}
		if argCount != 0 {
			vm.runtimeError("Expected 0 arguments but got %d.", argCount)
			return false
		}
		return true

	case object.ObjTypeBoundMethod:
		bound := callee.AsBoundMethod()
		vm.stack[vm.stackTop-argCount-1] = bound.Receiver
		return vm.call(bound.Method, argCount)

	default:
		vm.runtimeError("Can only call functions and classes.")
		return false
	}
}

// call pushes a new call frame for closure, validating arity and the frame
// depth limit first.
func (vm *VM) call(closure *object.ClosureObj, argCount int) bool {
	if argCount != closure.Function.Arity {
		vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}
	if vm.frameCount == maxFrames {
		vm.runtimeError("Stack overflow.")
		return false
	}

	vm.frames[vm.frameCount] = callFrame{
		closure:   closure,
		ip:        0,
		slotsBase: vm.stackTop - argCount - 1,
	}
	vm.frameCount++
	return true
}

// invoke compiles the common "receiver.method(args)" shape OP_INVOKE emits:
// if the name resolves to an instance field holding a callable, that field
// is called; otherwise the receiver's class is searched for a method.
func (vm *VM) invoke(name *object.StringObj, argCount int) bool {
	receiver := vm.peek(argCount)
	if !receiver.IsInstance() {
		vm.runtimeError("Only instances have methods.")
		return false
	}
	instance := receiver.AsInstance()

	if value, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = value
		return vm.callValue(value, argCount)
	}

	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *object.ClassObj, name *object.StringObj, argCount int) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.runtimeError("Undefined property '%s'.", name.Chars)
		return false
	}
	return vm.call(method.AsClosure(), argCount)
}

// bindMethod looks up name on class and, if found, replaces the receiver
// currently on top of the stack with a BoundMethod pairing them.
func (vm *VM) bindMethod(class *object.ClassObj, name *object.StringObj) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.runtimeError("Undefined property '%s'.", name.Chars)
		return false
	}
	bound := vm.heap.NewBoundMethod(vm.peek(0), method.AsClosure())
	vm.pop()
	vm.push(object.FromObj(bound))
	return true
}

// captureUpvalue returns the (possibly newly created) OPEN upvalue aliasing
// the stack slot at the given index, reusing one already handed out for
// that slot so two closures capturing the same local share one upvalue.
func (vm *VM) captureUpvalue(slot int) *object.UpvalueObj {
	for _, u := range vm.open {
		if u.slot == slot {
			return u.up
		}
	}
	created := vm.heap.NewUpvalue(&vm.stack[slot])
	vm.open = append(vm.open, &openUpvalue{slot: slot, up: created})
	return created
}

// closeUpvalues closes every open upvalue aliasing a slot at or above
// fromSlot, copying each one's current value into its own Closed field and
// repointing Location there. The OPEN-to-CLOSED transition is one-way; it
// runs when a scope holding captured locals ends or a function returns.
func (vm *VM) closeUpvalues(fromSlot int) {
	remaining := vm.open[:0]
	for _, u := range vm.open {
		if u.slot >= fromSlot {
			u.up.Closed = vm.stack[u.slot]
			u.up.Location = &u.up.Closed
		} else {
			remaining = append(remaining, u)
		}
	}
	vm.open = remaining
}
