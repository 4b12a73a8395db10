// Package interp wires the scanner, compiler, and vm packages into the one
// reusable entry point both the REPL and file-running paths of cmd/wisp
// share: compile a source string against a persistent Heap/VM and run it.
package interp

import (
	"io"
	"os"

	"github.com/kristofer/wisp/internal/compiler"
	"github.com/kristofer/wisp/internal/object"
	"github.com/kristofer/wisp/internal/vm"
)

// Result distinguishes the three outcomes cmd/wisp maps to distinct
// process exit codes.
type Result int

const (
	// OK means the source compiled and ran with no error.
	OK Result = iota
	// CompileError means the compiler reported at least one syntax error;
	// nothing was executed.
	CompileError
	// RuntimeError means compilation succeeded but execution raised an
	// uncaught error.
	RuntimeError
)

// Interpreter owns one heap and one VM, both of which persist across
// multiple Run calls, so globals and classes defined on one REPL line are
// visible to the next. Each Run gets its own fresh Compiler: compile-time
// state (locals, scope depth) never carries across lines.
type Interpreter struct {
	Heap *object.Heap
	VM   *vm.VM

	errOut io.Writer
}

// New constructs an Interpreter with standard natives (clock()) already
// registered, writing PRINT output to out and error reports to errOut —
// both compile diagnostics and VM runtime errors.
func New(out, errOut io.Writer) *Interpreter {
	heap := object.NewHeap()
	machine := vm.New(heap)
	machine.SetOutput(out)
	machine.SetErrorOutput(errOut)
	machine.DefineStandardNatives()
	return &Interpreter{Heap: heap, VM: machine, errOut: errOut}
}

// NewStdio is a convenience constructor wiring PRINT and error output to
// the process's real stdout/stderr, the configuration cmd/wisp uses.
func NewStdio() *Interpreter {
	return New(os.Stdout, os.Stderr)
}

// Run compiles and executes one source string, reporting a compile error
// (if the compiler flagged any) without ever reaching the VM, or a runtime
// error from the VM otherwise.
func (in *Interpreter) Run(source string) Result {
	comp := compiler.New(in.Heap)
	comp.SetErrorOutput(in.errOut)
	fn, ok := comp.Compile(source)
	if !ok {
		return CompileError
	}

	if err := in.VM.Interpret(fn); err != nil {
		return RuntimeError
	}
	return OK
}
