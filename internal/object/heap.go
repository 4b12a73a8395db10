package object

import "hash/fnv"

// RootMarker is implemented by subsystems (the VM, the compiler) that hold
// references to heap objects the collector must not reclaim. Heap calls
// each registered marker at the start of every collection. Keeping this as
// an explicit, registered callback rather than a package-level singleton
// lets a single process host more than one Heap/VM/Compiler.
type RootMarker func(h *Heap)

// Heap owns every live wisp object: the intrusive all-objects chain, the
// string-interning table, and the tri-color mark-and-sweep collector that
// reclaims objects unreachable from the VM and compiler root sets.
type Heap struct {
	objects    Obj
	Strings    *Table
	InitString *StringObj

	bytesAllocated int64
	nextGC         int64
	gray           []Obj

	// StressGC forces a collection on every MaybeCollect call. Tests flip
	// it per case to shake out objects that aren't rooted when they should
	// be.
	StressGC bool

	vmRoots       RootMarker
	compilerRoots RootMarker
}

const initialNextGC = 1 << 20 // 1 MiB

// NewHeap constructs an empty heap and interns the "init" string every
// instance-initializer method is looked up by.
func NewHeap() *Heap {
	h := &Heap{
		Strings: NewTable(),
		nextGC:  initialNextGC,
	}
	h.InitString = h.InternString("init")
	return h
}

// SetVMRoots registers the callback the collector uses to mark the VM's
// root set (operand stack, call frames, open upvalues, globals).
func (h *Heap) SetVMRoots(f RootMarker) { h.vmRoots = f }

// SetCompilerRoots registers the callback the collector uses to mark every
// Function object currently under construction on the compiler's frame
// chain, so that compilation itself is GC-safe.
func (h *Heap) SetCompilerRoots(f RootMarker) { h.compilerRoots = f }

func (h *Heap) track(o Obj, size int64) {
	hdr := o.header()
	hdr.next = h.objects
	hdr.size = size
	h.objects = o
	h.bytesAllocated += size
}

// approxSize is a nominal per-object byte estimate used to drive the GC
// threshold. Go's own allocator (not ours) owns the real memory, so this is
// a heuristic trigger rather than a precise sizeof accounting.
func approxSize(extra int) int64 { return int64(48 + extra) }

// MaybeCollect triggers a collection if the heuristic byte counter has
// crossed nextGC, or unconditionally under StressGC. Callers invoke this at
// well-defined safe points — the top of the VM's dispatch loop, and after
// each top-level declaration the compiler parses — never in the middle of
// constructing an object that isn't yet reachable from a root.
func (h *Heap) MaybeCollect() {
	if h.StressGC || h.bytesAllocated > h.nextGC {
		h.CollectGarbage()
	}
}

// BytesAllocated reports the heuristic allocation counter (for tests).
func (h *Heap) BytesAllocated() int64 { return h.bytesAllocated }

// NextGC reports the current collection threshold (for tests).
func (h *Heap) NextGC() int64 { return h.nextGC }

func fnv1a(s string) uint32 {
	f := fnv.New32a()
	_, _ = f.Write([]byte(s))
	return f.Sum32()
}

// InternString returns the canonical StringObj for chars, allocating one
// only if no interned copy already exists. Every string Value in the system
// must be produced this way: it is the sole funnel that preserves the
// invariant that at most one StringObj exists per byte sequence.
func (h *Heap) InternString(chars string) *StringObj {
	hash := fnv1a(chars)
	if existing := h.Strings.FindString(chars, hash); existing != nil {
		return existing
	}
	s := &StringObj{Chars: chars, Hash: hash}
	// No collection can run between allocating s and inserting it: the
	// collector only runs from MaybeCollect at safe points. The strings
	// table itself is weak and does not keep s alive across a collection.
	h.track(s, approxSize(len(chars)))
	h.Strings.Set(s, Nil)
	return s
}

// Concat interns the byte-for-byte concatenation of two strings, used by
// OP_ADD when both operands are strings.
func (h *Heap) Concat(a, b *StringObj) *StringObj {
	return h.InternString(a.Chars + b.Chars)
}

// NewFunction allocates a fresh, empty FunctionObj. The compiler fills in
// Arity/UpvalueCount/Chunk/Name as it compiles the function body.
func (h *Heap) NewFunction() *FunctionObj {
	f := &FunctionObj{}
	h.track(f, approxSize(0))
	return f
}

// NewClosure allocates a ClosureObj wrapping fn with upvalueCount empty
// upvalue slots for the VM's OP_CLOSURE handler to fill in.
func (h *Heap) NewClosure(fn *FunctionObj) *ClosureObj {
	c := &ClosureObj{Function: fn, Upvalues: make([]*UpvalueObj, fn.UpvalueCount)}
	h.track(c, approxSize(fn.UpvalueCount*8))
	return c
}

// NewUpvalue allocates an OPEN upvalue aliasing the given stack slot.
func (h *Heap) NewUpvalue(slot *Value) *UpvalueObj {
	u := &UpvalueObj{Location: slot}
	h.track(u, approxSize(0))
	return u
}

// NewClass allocates an empty class with the given name.
func (h *Heap) NewClass(name *StringObj) *ClassObj {
	c := &ClassObj{Name: name, Methods: NewTable()}
	h.track(c, approxSize(0))
	return c
}

// NewInstance allocates a fresh instance of class.
func (h *Heap) NewInstance(class *ClassObj) *InstanceObj {
	i := &InstanceObj{Class: class, Fields: NewTable()}
	h.track(i, approxSize(0))
	return i
}

// NewBoundMethod allocates a bound-method object pairing receiver and
// method.
func (h *Heap) NewBoundMethod(receiver Value, method *ClosureObj) *BoundMethodObj {
	b := &BoundMethodObj{Receiver: receiver, Method: method}
	h.track(b, approxSize(0))
	return b
}

// NewNative wraps a Go function as a callable native object.
func (h *Heap) NewNative(name string, fn NativeFn) *NativeObj {
	n := &NativeObj{Name: name, Fn: fn}
	h.track(n, approxSize(0))
	return n
}
