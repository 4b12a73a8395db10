// Command wisp is the language's launcher: a bare invocation starts an
// interactive REPL; a single path argument runs that file once. Any other
// argument count is a usage error.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/kristofer/wisp/internal/interp"
)

func main() {
	switch len(os.Args) {
	case 1:
		runREPL()
	case 2:
		runFile(os.Args[1])
	default:
		fmt.Fprintln(os.Stderr, "Usage: wisp [path]")
		os.Exit(64)
	}
}

// runFile reads path once and interprets it against a fresh Interpreter,
// exiting 65 on a compile error and 70 on a runtime error.
func runFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open file \"%s\".\n", path)
		os.Exit(74)
	}

	in := interp.NewStdio()
	switch in.Run(string(data)) {
	case interp.CompileError:
		os.Exit(65)
	case interp.RuntimeError:
		os.Exit(70)
	}
}

// runREPL reads one line at a time from stdin, interpreting each line
// independently against one persistent Interpreter so globals and classes
// defined on one line remain visible to the next. EOF exits with code 0.
func runREPL() {
	in := interp.NewStdio()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		in.Run(scanner.Text())
	}
}
