// Package object implements the wisp runtime's value representation, heap
// object system, string interning table, bytecode chunks, and the
// mark-and-sweep garbage collector that ties them together.
//
// These concerns live in one package rather than several because they form a
// single connected component: a Value may hold an Obj, a Chunk's constant
// pool holds Values, and the Heap's mark phase must reach into every Obj
// variant's fields to trace its children. Splitting that graph across
// package boundaries would trade a handful of well-named files for an import
// cycle, or an interface wide enough to just re-describe the whole object
// model.
package object

import "fmt"

// ValueType discriminates the tagged union that every wisp Value holds.
type ValueType int

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj
)

// Value is wisp's dynamically-typed value: nil, a boolean, an IEEE-754
// double, or a reference to a heap Obj. Heap references are compared by
// identity; because every String is interned, string equality reduces to
// identity as well.
type Value struct {
	typ     ValueType
	boolean bool
	number  float64
	obj     Obj
}

// Nil is the single nil value.
var Nil = Value{typ: ValNil}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{typ: ValBool, boolean: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{typ: ValNumber, number: n} }

// FromObj wraps a heap object reference.
func FromObj(o Obj) Value { return Value{typ: ValObj, obj: o} }

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsNil() bool     { return v.typ == ValNil }
func (v Value) IsBool() bool    { return v.typ == ValBool }
func (v Value) IsNumber() bool  { return v.typ == ValNumber }
func (v Value) IsObj() bool     { return v.typ == ValObj }

func (v Value) AsBool() bool    { return v.boolean }
func (v Value) AsNumber() float64 { return v.number }
func (v Value) AsObj() Obj      { return v.obj }

// ObjType reports the dynamic Obj type, or -1 if this Value isn't an object.
func (v Value) ObjType() ObjType {
	if !v.IsObj() {
		return -1
	}
	return v.obj.Type()
}

func (v Value) IsString() bool      { return v.IsObj() && v.obj.Type() == ObjTypeString }
func (v Value) IsFunction() bool    { return v.IsObj() && v.obj.Type() == ObjTypeFunction }
func (v Value) IsClosure() bool     { return v.IsObj() && v.obj.Type() == ObjTypeClosure }
func (v Value) IsClass() bool       { return v.IsObj() && v.obj.Type() == ObjTypeClass }
func (v Value) IsInstance() bool    { return v.IsObj() && v.obj.Type() == ObjTypeInstance }
func (v Value) IsBoundMethod() bool { return v.IsObj() && v.obj.Type() == ObjTypeBoundMethod }
func (v Value) IsNative() bool      { return v.IsObj() && v.obj.Type() == ObjTypeNative }

// AsString asserts this Value holds a *StringObj.
func (v Value) AsString() *StringObj { return v.obj.(*StringObj) }

// AsGoString returns the underlying Go string of a string Value.
func (v Value) AsGoString() string { return v.obj.(*StringObj).Chars }

// AsFunction asserts this Value holds a *FunctionObj.
func (v Value) AsFunction() *FunctionObj { return v.obj.(*FunctionObj) }

// AsClosure asserts this Value holds a *ClosureObj.
func (v Value) AsClosure() *ClosureObj { return v.obj.(*ClosureObj) }

// AsClass asserts this Value holds a *ClassObj.
func (v Value) AsClass() *ClassObj { return v.obj.(*ClassObj) }

// AsInstance asserts this Value holds a *InstanceObj.
func (v Value) AsInstance() *InstanceObj { return v.obj.(*InstanceObj) }

// AsBoundMethod asserts this Value holds a *BoundMethodObj.
func (v Value) AsBoundMethod() *BoundMethodObj { return v.obj.(*BoundMethodObj) }

// AsNative asserts this Value holds a *NativeObj.
func (v Value) AsNative() *NativeObj { return v.obj.(*NativeObj) }

// IsFalsey implements wisp's truthiness rule: nil and false are falsey,
// everything else — including 0 and the empty string — is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements wisp's value-equality rule: the tags must match, nil
// equals nil, booleans and numbers compare by value, and objects compare by
// identity (which, for interned strings, is the same as content equality).
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case ValNil:
		return true
	case ValBool:
		return a.boolean == b.boolean
	case ValNumber:
		return a.number == b.number
	case ValObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String renders a Value the way wisp's PRINT statement and REPL do: nil,
// true/false, numbers in "%g" form, raw string contents, and the various
// `<...>` forms for callables and classes.
func (v Value) String() string {
	switch v.typ {
	case ValNil:
		return "nil"
	case ValBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.number)
	case ValObj:
		return objString(v.obj)
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	return fmt.Sprintf("%g", n)
}

func objString(o Obj) string {
	switch v := o.(type) {
	case *StringObj:
		return v.Chars
	case *FunctionObj:
		if v.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<function %s>", v.Name.Chars)
	case *ClosureObj:
		return objString(v.Function)
	case *NativeObj:
		return "<native function>"
	case *ClassObj:
		return fmt.Sprintf("<class %s>", v.Name.Chars)
	case *InstanceObj:
		return fmt.Sprintf("<%s instance>", v.Class.Name.Chars)
	case *BoundMethodObj:
		return fmt.Sprintf("<method %s of %s instance>", v.Method.Function.Name.Chars, v.Receiver.AsInstance().Class.Name.Chars)
	case *UpvalueObj:
		return "<upvalue>"
	default:
		return "<obj>"
	}
}
