package object

// ObjType discriminates the closed set of heap-object variants. wisp uses
// exhaustive switches over this discriminant rather than interface-method
// polymorphism for the hot paths (GC tracing, printing); the variant set is
// closed and small.
type ObjType int

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
	ObjTypeNative
)

// Obj is the common interface every heap-allocated value implements. Its
// only job is to expose the GC bookkeeping header; everything else is
// reached via a type switch in the collector and in printing code.
type Obj interface {
	Type() ObjType
	header() *objHeader
}

// objHeader is embedded first in every concrete Obj variant. It carries the
// GC mark bit, the nominal allocation size charged against the collection
// threshold, and the next pointer that threads every live heap object into
// a single intrusive list rooted in the Heap.
type objHeader struct {
	marked bool
	size   int64
	next   Obj
}

func (h *objHeader) header() *objHeader { return h }

// StringObj is an immutable, interned byte sequence. At most one StringObj
// with a given Chars value exists at a time — see Heap.InternString.
type StringObj struct {
	objHeader
	Chars string
	Hash  uint32
}

func (*StringObj) Type() ObjType { return ObjTypeString }

// FunctionObj is produced by the compiler and is immutable after
// compilation. It is only ever reachable at runtime by way of a wrapping
// ClosureObj — even the top-level script is a zero-upvalue closure.
type FunctionObj struct {
	objHeader
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *StringObj // nil for the top-level script
}

func (*FunctionObj) Type() ObjType { return ObjTypeFunction }

// UpvalueObj is a runtime handle to a variable captured by a nested
// function. While OPEN, Location aliases a live VM stack slot; CLOSE moves
// the value out of the stack into Closed and the transition is one-way.
type UpvalueObj struct {
	objHeader
	Location *Value
	Closed   Value
	Next     *UpvalueObj // not set or read: the VM tracks open upvalues in its own slot-indexed slice
}

func (*UpvalueObj) Type() ObjType { return ObjTypeUpvalue }

// IsOpen reports whether this upvalue still aliases a live stack slot.
func (u *UpvalueObj) IsOpen() bool { return u.Location != nil && u.Location != &u.Closed }

// ClosureObj pairs a FunctionObj with the upvalues it captured at the point
// its OP_CLOSURE instruction executed.
type ClosureObj struct {
	objHeader
	Function *FunctionObj
	Upvalues []*UpvalueObj
}

func (*ClosureObj) Type() ObjType { return ObjTypeClosure }

// ClassObj is a named bag of methods (String selector -> Value holding a
// ClosureObj). Single inheritance copies method entries from superclass to
// subclass at INHERIT time (see internal/vm).
type ClassObj struct {
	objHeader
	Name    *StringObj
	Methods *Table
}

func (*ClassObj) Type() ObjType { return ObjTypeClass }

// InstanceObj is a live object: a class reference plus its own field table.
type InstanceObj struct {
	objHeader
	Class  *ClassObj
	Fields *Table
}

func (*InstanceObj) Type() ObjType { return ObjTypeInstance }

// BoundMethodObj pairs a receiver with a method closure; it is allocated
// whenever a property access resolves to a class method (GET_PROPERTY /
// GET_SUPER) rather than a field.
type BoundMethodObj struct {
	objHeader
	Receiver Value
	Method   *ClosureObj
}

func (*BoundMethodObj) Type() ObjType { return ObjTypeBoundMethod }

// NativeFn is the calling convention for foreign callables: receive the
// argument vector, return a Value or an error that becomes a runtime error.
type NativeFn func(args []Value) (Value, error)

// NativeObj wraps a Go function so it can be called like any other wisp
// callable; clock() is the one registered by default.
type NativeObj struct {
	objHeader
	Name string
	Fn   NativeFn
}

func (*NativeObj) Type() ObjType { return ObjTypeNative }
