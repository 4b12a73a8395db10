package object

// CollectGarbage runs one full tri-color mark-and-sweep cycle:
//
//  1. mark roots — the VM's and compiler's registered RootMarkers, plus the
//     interned "init" string;
//  2. trace — drain the gray worklist, blackening each object by marking
//     its children;
//  3. prune the strings table of any entry whose key didn't survive
//     marking (so sweep never frees a string the table still references);
//  4. sweep — free every unmarked object, clearing the mark bit on
//     survivors in the same pass;
//  5. raise nextGC for the next cycle.
func (h *Heap) CollectGarbage() {
	h.gray = h.gray[:0]

	h.markRoots()
	h.trace()
	h.Strings.RemoveWhite()
	h.sweep()

	h.nextGC = h.bytesAllocated * 2
	if h.nextGC < initialNextGC {
		h.nextGC = initialNextGC
	}
}

func (h *Heap) markRoots() {
	if h.vmRoots != nil {
		h.vmRoots(h)
	}
	if h.compilerRoots != nil {
		h.compilerRoots(h)
	}
	h.MarkObject(h.InitString)
}

// MarkValue marks v's underlying object, if it holds one. Exported so the
// vm and compiler packages can mark their roots without needing access to
// Heap's private fields.
func (h *Heap) MarkValue(v Value) {
	if v.typ == ValObj {
		h.MarkObject(v.obj)
	}
}

// MarkObject marks o gray (adds it to the worklist) unless it's already
// marked or nil. Safe to call with a nil interface or a typed-nil pointer
// wrapped in Obj — both are treated as "nothing to mark".
func (h *Heap) MarkObject(o Obj) {
	if o == nil || isNilObj(o) {
		return
	}
	hdr := o.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	h.gray = append(h.gray, o)
}

// MarkTable marks every live key and value in t. Used for the globals
// table, a class's methods, and an instance's fields — NOT for the strings
// table itself, which must stay weak so RemoveWhite can prune dead strings.
func (h *Heap) MarkTable(t *Table) {
	if t == nil {
		return
	}
	t.Each(func(key *StringObj, value Value) {
		h.MarkObject(key)
		h.MarkValue(value)
	})
}

func (h *Heap) trace() {
	for len(h.gray) > 0 {
		o := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(o)
	}
}

func (h *Heap) blacken(o Obj) {
	switch v := o.(type) {
	case *StringObj, *NativeObj:
		// no children
	case *FunctionObj:
		h.MarkObject(v.Name)
		for _, c := range v.Chunk.Constants {
			h.MarkValue(c)
		}
	case *UpvalueObj:
		h.MarkValue(v.Closed)
	case *ClosureObj:
		h.MarkObject(v.Function)
		for _, u := range v.Upvalues {
			h.MarkObject(u)
		}
	case *ClassObj:
		h.MarkObject(v.Name)
		h.MarkTable(v.Methods)
	case *InstanceObj:
		h.MarkObject(v.Class)
		h.MarkTable(v.Fields)
	case *BoundMethodObj:
		h.MarkValue(v.Receiver)
		h.MarkObject(v.Method)
	}
}

func (h *Heap) sweep() {
	var prev Obj
	obj := h.objects
	for obj != nil {
		hdr := obj.header()
		next := hdr.next
		if hdr.marked {
			hdr.marked = false
			prev = obj
		} else {
			if prev != nil {
				prev.header().next = next
			} else {
				h.objects = next
			}
			h.bytesAllocated -= hdr.size
			// obj itself is now unreachable from h.objects; Go's own
			// garbage collector reclaims its backing memory once nothing
			// else (no remaining root) references it.
		}
		obj = next
	}
}

func isNilObj(o Obj) bool {
	switch v := o.(type) {
	case *StringObj:
		return v == nil
	case *FunctionObj:
		return v == nil
	case *ClosureObj:
		return v == nil
	case *UpvalueObj:
		return v == nil
	case *ClassObj:
		return v == nil
	case *InstanceObj:
		return v == nil
	case *BoundMethodObj:
		return v == nil
	case *NativeObj:
		return v == nil
	default:
		return false
	}
}
