package vm

import (
	"time"

	"github.com/kristofer/wisp/internal/object"
)

// processStart anchors clock()'s return value to process start rather than
// the Unix epoch. "Seconds since this program began" preserves the one
// property wisp programs actually rely on: successive calls increase
// monotonically.
var processStart = time.Now()

// DefineStandardNatives installs the built-in natives, currently just
// clock().
func (vm *VM) DefineStandardNatives() {
	vm.DefineNative("clock", nativeClock)
}

func nativeClock(args []object.Value) (object.Value, error) {
	return object.Number(time.Since(processStart).Seconds()), nil
}
