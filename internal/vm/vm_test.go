package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/wisp/internal/compiler"
	"github.com/kristofer/wisp/internal/object"
	"github.com/kristofer/wisp/internal/vm"
)

// run compiles and executes source on a fresh heap/VM, returning everything
// PRINT wrote. Test failures should make it obvious whether the problem was
// a compile error or a runtime one.
func run(t *testing.T, source string) (string, error) {
	t.Helper()
	heap := object.NewHeap()
	var compileErrs bytes.Buffer
	comp := compiler.New(heap)
	comp.SetErrorOutput(&compileErrs)
	fn, ok := comp.Compile(source)
	require.True(t, ok, "compile failed: %s", compileErrs.String())

	var out, errOut bytes.Buffer
	machine := vm.New(heap)
	machine.SetOutput(&out)
	machine.SetErrorOutput(&errOut)
	machine.DefineStandardNatives()

	err := machine.Interpret(fn)
	if err != nil {
		return out.String(), err
	}
	return out.String(), nil
}

func TestArithmeticPrecedence(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestGlobalAndLocalVariables(t *testing.T) {
	out, err := run(t, `
		var a = 1;
		{
			var b = 2;
			print a + b;
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestIfElseBranching(t *testing.T) {
	out, err := run(t, `
		if (1 < 2) { print "yes"; } else { print "no"; }
	`)
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestForLoop(t *testing.T) {
	out, err := run(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			sum = sum + i;
		}
		print sum;
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestClosureCapturesByReference(t *testing.T) {
	out, err := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestClassesAndMethods(t *testing.T) {
	out, err := run(t, `
		class Greeter {
			init(name) {
				this.name = name;
			}
			greet() {
				print "hello " + this.name;
			}
		}
		var g = Greeter("wisp");
		g.greet();
	`)
	require.NoError(t, err)
	assert.Equal(t, "hello wisp\n", out)
}

func TestInheritanceAndSuper(t *testing.T) {
	out, err := run(t, `
		class Animal {
			speak() {
				print "...";
			}
		}
		class Dog < Animal {
			speak() {
				super.speak();
				print "woof";
			}
		}
		Dog().speak();
	`)
	require.NoError(t, err)
	assert.Equal(t, "...\nwoof\n", out)
}

func TestRuntimeErrorUndefinedVariable(t *testing.T) {
	_, err := run(t, `print nope;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable 'nope'.")
}

func TestRuntimeErrorTypeMismatchReportsLine(t *testing.T) {
	_, err := run(t, "\n\nprint 1 + \"a\";")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Operands must be two numbers or two strings.")
	assert.True(t, strings.Contains(err.Error(), "[line 3] in script"))
}

func TestNativeClockIsMonotonic(t *testing.T) {
	out, err := run(t, `
		var a = clock();
		var b = clock();
		print b >= a;
	`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestStressGCDoesNotCorruptLiveClosure(t *testing.T) {
	heap := object.NewHeap()
	heap.StressGC = true
	comp := compiler.New(heap)
	fn, ok := comp.Compile(`
		fun makeAdder(a) {
			fun add(b) { return a + b; }
			return add;
		}
		var add5 = makeAdder(5);
		print add5(2);
		print add5(10);
	`)
	require.True(t, ok)

	var out bytes.Buffer
	machine := vm.New(heap)
	machine.SetOutput(&out)
	require.NoError(t, machine.Interpret(fn))
	assert.Equal(t, "7\n15\n", out.String())
}
