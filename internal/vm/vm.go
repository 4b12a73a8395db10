// Package vm implements wisp's stack-based bytecode interpreter, the last
// stage of the pipeline the compiler package feeds:
//
//	source -> scanner -> compiler (Pratt, single pass) -> bytecode -> vm
//
// A VM holds a fixed-size value stack, a call-frame stack, and a globals
// table; run() is a fetch-dispatch loop over one-byte opcodes.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/kristofer/wisp/internal/object"
)

const (
	maxFrames = 64
	stackMax  = maxFrames * 256
)

// callFrame is one activation record: the closure being executed, its
// instruction pointer into that closure's chunk, and the index into the
// VM's value stack where its window of locals begins. Slot 0 of the frame
// is always the receiver/callee value itself.
type callFrame struct {
	closure   *object.ClosureObj
	ip        int
	slotsBase int
}

// openUpvalue tracks an OPEN upvalue the VM has handed out: one still
// aliasing a live stack slot rather than a copied value. The slot index is
// kept here rather than derived from object.UpvalueObj's raw *Value,
// because ordering two pointers into the stack array would need unsafe. A
// flat slice, searched linearly, is adequate at wisp's stack sizes.
type openUpvalue struct {
	slot int
	up   *object.UpvalueObj
}

// VM executes compiled chunks against a fixed-size value stack and call
// stack. The stack is a plain array, not a slice that might reallocate on
// growth: OPEN upvalues alias slots by pointer, and a reallocation would
// silently detach them from the live stack.
type VM struct {
	heap *object.Heap

	stack    [stackMax]object.Value
	stackTop int

	frames     [maxFrames]callFrame
	frameCount int

	globals *object.Table
	open    []*openUpvalue

	out    io.Writer
	errOut io.Writer

	lastError error
}

// New constructs a VM over heap, registering it as the heap's VM root
// source so the collector can trace the live stack, frames, open upvalues,
// and globals table.
func New(heap *object.Heap) *VM {
	vm := &VM{heap: heap, globals: object.NewTable(), out: os.Stdout, errOut: os.Stderr}
	heap.SetVMRoots(vm.MarkRoots)
	return vm
}

// SetOutput redirects PRINT statements; SetErrorOutput redirects runtime
// error reports. Both default to os.Stdout/os.Stderr and exist mainly so
// tests can capture output without touching the process's real streams.
func (vm *VM) SetOutput(w io.Writer)      { vm.out = w }
func (vm *VM) SetErrorOutput(w io.Writer) { vm.errOut = w }

// MarkRoots marks every value reachable directly from VM state: the
// operand stack, every active closure, every open upvalue, and the globals
// table.
func (vm *VM) MarkRoots(h *object.Heap) {
	for i := 0; i < vm.stackTop; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.MarkObject(vm.frames[i].closure)
	}
	for _, u := range vm.open {
		h.MarkObject(u.up)
	}
	h.MarkTable(vm.globals)
}

// DefineNative installs a native (Go-implemented) function as a global, the
// way clock() reaches wisp programs.
func (vm *VM) DefineNative(name string, fn object.NativeFn) {
	nameObj := vm.heap.InternString(name)
	vm.globals.Set(nameObj, object.FromObj(vm.heap.NewNative(name, fn)))
}

func (vm *VM) push(v object.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() object.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.open = nil
}

// Interpret compiles-result entry point: wraps fn as a closure with no
// captured upvalues, calls it, and runs the dispatch loop to completion.
func (vm *VM) Interpret(fn *object.FunctionObj) error {
	closure := vm.heap.NewClosure(fn)
	vm.push(object.FromObj(closure))
	if !vm.callValue(object.FromObj(closure), 0) {
		return vm.lastError
	}
	return vm.run()
}

// runtimeError records a RuntimeError (readable afterward via vm.lastError)
// and resets the stack. Kept as a side-effecting call rather than a
// returned error because it's invoked from deep inside callValue/run, whose
// bool-returning control flow has no room to thread an error value back
// through every caller.
func (vm *VM) runtimeError(format string, args ...any) {
	message := fmt.Sprintf(format, args...)

	stack := make([]StackFrame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.closure.Function
		line := fn.Chunk.LineFor(frame.ip - 1)
		name := ""
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		stack = append(stack, StackFrame{Name: name, Line: line})
	}

	vm.lastError = &RuntimeError{Message: message, Stack: stack}
	fmt.Fprintln(vm.errOut, vm.lastError.Error())
	vm.resetStack()
}
