package interp_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/wisp/internal/interp"
)

// End-to-end scenarios, each run against a fresh Interpreter: one program
// in, exact stdout/stderr and result out.

func TestScenarioArithmeticPrecedence(t *testing.T) {
	out, errOut, result := runScenario(t, `print 1 + 2 * 3;`)
	assert.Equal(t, interp.OK, result)
	assert.Equal(t, "7\n", out)
	assert.Empty(t, errOut)
}

func TestScenarioStringConcatenation(t *testing.T) {
	out, _, result := runScenario(t, `var a = "hi "; var b = "there"; print a + b;`)
	assert.Equal(t, interp.OK, result)
	assert.Equal(t, "hi there\n", out)
}

func TestScenarioClosureOverParameter(t *testing.T) {
	out, _, result := runScenario(t, `
		fun make(x) { fun inner() { return x; } return inner; }
		var f = make(42);
		print f();
	`)
	assert.Equal(t, interp.OK, result)
	assert.Equal(t, "42\n", out)
}

func TestScenarioMethodDispatch(t *testing.T) {
	out, _, result := runScenario(t, `class Greet { say() { print "hi"; } } Greet().say();`)
	assert.Equal(t, interp.OK, result)
	assert.Equal(t, "hi\n", out)
}

func TestScenarioSuperDispatch(t *testing.T) {
	out, _, result := runScenario(t, `
		class A { m(){ print "A"; } }
		class B < A { m(){ super.m(); print "B"; } }
		B().m();
	`)
	assert.Equal(t, interp.OK, result)
	assert.Equal(t, "A\nB\n", out)
}

func TestScenarioWhileLoop(t *testing.T) {
	out, _, result := runScenario(t, `var i = 0; while (i < 3) { print i; i = i + 1; }`)
	assert.Equal(t, interp.OK, result)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestScenarioStringPlusNumberIsRuntimeError(t *testing.T) {
	_, errOut, result := runScenario(t, `print "a" + 1;`)
	assert.Equal(t, interp.RuntimeError, result)
	assert.Contains(t, errOut, "Operands must be two numbers or two strings.")
}

// Inside a block, reading a local from its own initializer is a compile
// error. At top level, `var x = x;` compiles the reference to `x` as a
// GET_GLOBAL that executes before the corresponding DEFINE_GLOBAL has run,
// so it raises "Undefined variable 'x'." at runtime instead.
func TestScenarioOwnInitializerInBlockIsCompileError(t *testing.T) {
	_, _, result := runScenario(t, `{ var x = x; }`)
	assert.Equal(t, interp.CompileError, result)
}

func TestScenarioOwnInitializerAtTopLevelIsRuntimeError(t *testing.T) {
	_, errOut, result := runScenario(t, `var x = x;`)
	assert.Equal(t, interp.RuntimeError, result)
	assert.Contains(t, errOut, "Undefined variable 'x'.")
}

func runScenario(t *testing.T, source string) (stdout, stderr string, result interp.Result) {
	t.Helper()
	var out, errOut bytes.Buffer
	in := interp.New(&out, &errOut)
	result = in.Run(source)
	return out.String(), errOut.String(), result
}

func TestScenarioGlobalsPersistAcrossRuns(t *testing.T) {
	var out, errOut bytes.Buffer
	in := interp.New(&out, &errOut)

	require.Equal(t, interp.OK, in.Run(`var count = 0;`))
	require.Equal(t, interp.OK, in.Run(`count = count + 1;`))
	require.Equal(t, interp.OK, in.Run(`print count;`))

	assert.Equal(t, "1\n", out.String())
}
