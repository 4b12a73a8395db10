package vm

import (
	"fmt"
	"strings"
)

// StackFrame is a snapshot of one call frame at the moment a runtime error
// was raised, kept only for the error's own trace; it is unrelated to the
// live callFrame the dispatch loop executes against.
type StackFrame struct {
	Name string // function name, or empty for top-level code (printed as "script")
	Line int    // source line the call was executing at
}

// RuntimeError reports a failure raised while executing bytecode, together
// with the call stack active at the time: the message, then one
// "[line N] in NAME" per frame from innermost to outermost.
type RuntimeError struct {
	Message string
	Stack   []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, frame := range e.Stack {
		b.WriteByte('\n')
		if frame.Name == "" {
			fmt.Fprintf(&b, "[line %d] in script", frame.Line)
		} else {
			fmt.Fprintf(&b, "[line %d] in %s()", frame.Line, frame.Name)
		}
	}
	return b.String()
}
