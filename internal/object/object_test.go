package object_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/wisp/internal/object"
)

// TestInterningIdentity exercises the central string invariant: two
// constructions of equal byte content yield the same *StringObj, so
// equality reduces to identity.
func TestInterningIdentity(t *testing.T) {
	h := object.NewHeap()
	a := h.InternString("hello")
	b := h.InternString("hello")
	assert.Same(t, a, b)

	va := object.FromObj(a)
	vb := object.FromObj(b)
	assert.True(t, object.Equal(va, vb))
}

func TestConcatInternsResult(t *testing.T) {
	h := object.NewHeap()
	a := h.InternString("foo")
	b := h.InternString("bar")
	c := h.Concat(a, b)
	assert.Equal(t, "foobar", c.Chars)
	assert.Same(t, c, h.InternString("foobar"))
}

// TestTableLoadFactor checks that a long growth sequence, which crosses the
// load factor and regrows the table several times, never loses an entry.
func TestTableLoadFactor(t *testing.T) {
	h := object.NewHeap()
	tbl := object.NewTable()
	for i := 0; i < 200; i++ {
		key := h.InternString(string(rune('a')) + string(rune(i)))
		tbl.Set(key, object.Number(float64(i)))
	}
	assert.Equal(t, 200, tbl.Count())
}

func TestTableSetReturnsWhetherKeyIsNew(t *testing.T) {
	h := object.NewHeap()
	tbl := object.NewTable()
	key := h.InternString("x")

	isNew := tbl.Set(key, object.Number(1))
	assert.True(t, isNew, "first insert of a key must report true")

	isNew = tbl.Set(key, object.Number(2))
	assert.False(t, isNew, "overwriting an existing key must report false")

	v, ok := tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.AsNumber())
}

// TestTableTombstoneKeepsProbingAlive verifies deletion doesn't break lookups
// for keys that collided with (and probed past) the deleted slot.
func TestTableTombstoneKeepsProbingAlive(t *testing.T) {
	h := object.NewHeap()
	tbl := object.NewTable()
	a := h.InternString("a")
	b := h.InternString("b")
	c := h.InternString("c")

	tbl.Set(a, object.Number(1))
	tbl.Set(b, object.Number(2))
	tbl.Set(c, object.Number(3))

	assert.True(t, tbl.Delete(b))

	_, ok := tbl.Get(b)
	assert.False(t, ok, "deleted key must no longer be found")

	va, ok := tbl.Get(a)
	require.True(t, ok)
	assert.Equal(t, 1.0, va.AsNumber())

	vc, ok := tbl.Get(c)
	require.True(t, ok)
	assert.Equal(t, 3.0, vc.AsNumber())
}

func TestTableFindStringMatchesByContent(t *testing.T) {
	h := object.NewHeap()
	tbl := object.NewTable()
	s := h.InternString("needle")
	tbl.Set(s, object.Nil)

	found := tbl.FindString("needle", s.Hash)
	assert.Same(t, s, found)

	assert.Nil(t, tbl.FindString("missing", s.Hash+1))
}

// TestChunkLinesTrackEveryByte verifies every byte written into Code gets a
// corresponding Lines entry, operands included.
func TestChunkLinesTrackEveryByte(t *testing.T) {
	c := &object.Chunk{}
	c.WriteOp(object.OpConstant, 1)
	c.Write(0, 1)
	c.WriteOp(object.OpReturn, 2)

	require.Len(t, c.Lines, len(c.Code))
	assert.Equal(t, 1, c.LineFor(0))
	assert.Equal(t, 1, c.LineFor(1))
	assert.Equal(t, 2, c.LineFor(2))
}

func TestChunkAddConstantFailsPast256(t *testing.T) {
	c := &object.Chunk{}
	for i := 0; i < 256; i++ {
		_, err := c.AddConstant(object.Number(float64(i)))
		require.NoError(t, err)
	}
	_, err := c.AddConstant(object.Number(256))
	assert.ErrorIs(t, err, object.ErrTooManyConstants)
}

// TestGCSweepsUnreachableStringAndKeepsRooted checks that a string
// reachable only via a VM root set survives collection, and that the
// strings table's own weak reference doesn't keep an otherwise-unreferenced
// string alive once nothing else holds it and RemoveWhite has run.
func TestGCSweepsUnreachableStringAndKeepsRooted(t *testing.T) {
	h := object.NewHeap()
	kept := h.InternString("kept")
	h.InternString("dropped")

	var rooted *object.StringObj
	h.SetVMRoots(func(h *object.Heap) {
		h.MarkObject(rooted)
	})

	rooted = kept
	h.CollectGarbage()

	_, ok := h.Strings.Get(kept)
	assert.True(t, ok, "a rooted string must survive collection and remain interned")
	assert.Equal(t, 2, h.Strings.Count(), "the unrooted 'dropped' string must be pruned, leaving 'init' and 'kept'")

	// Re-interning "kept" after collection must still return the same
	// object: a live collection never frees something a root still points
	// at, so identity is preserved across a GC cycle.
	assert.Same(t, kept, h.InternString("kept"))
}

func TestGCFreesUnreferencedStringFromTable(t *testing.T) {
	h := object.NewHeap()
	h.InternString("garbage")
	h.SetVMRoots(func(h *object.Heap) {})

	h.CollectGarbage()

	assert.Equal(t, 1, h.Strings.Count(), "only the 'init' string should remain interned")
}

// TestStressGCCollectsOnEveryMaybeCollect checks that MaybeCollect sweeps an
// unrooted object immediately under StressGC, without waiting for
// bytesAllocated to cross the normal nextGC threshold.
func TestStressGCCollectsOnEveryMaybeCollect(t *testing.T) {
	h := object.NewHeap()
	h.StressGC = true
	h.SetVMRoots(func(h *object.Heap) {})

	h.InternString("unreferenced")
	require.Less(t, h.BytesAllocated(), h.NextGC(), "well below the normal threshold")

	h.MaybeCollect()

	assert.Equal(t, 1, h.Strings.Count(), "unrooted string must be swept even though bytesAllocated is nowhere near nextGC")
}

func TestDisassembleChunkRendersOpcodeNames(t *testing.T) {
	c := &object.Chunk{}
	idx, err := c.AddConstant(object.Number(42))
	require.NoError(t, err)
	c.WriteOp(object.OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(object.OpReturn, 1)

	out := object.DisassembleChunk(c, "<script>")
	assert.Contains(t, out, "== <script> ==")
	assert.Contains(t, out, "CONSTANT")
	assert.Contains(t, out, "RETURN")
}

func TestChunkRoundTripsThroughFormat(t *testing.T) {
	h := object.NewHeap()
	c := &object.Chunk{}
	idx, err := c.AddConstant(object.FromObj(h.InternString("hi")))
	require.NoError(t, err)
	c.WriteOp(object.OpConstant, 3)
	c.Write(byte(idx), 3)
	c.WriteOp(object.OpPrint, 3)
	c.WriteOp(object.OpReturn, 3)

	var buf bytes.Buffer
	require.NoError(t, object.EncodeChunk(c, &buf))

	decoded, err := object.DecodeChunk(&buf, h)
	require.NoError(t, err)

	assert.Equal(t, c.Code, decoded.Code)
	assert.Equal(t, c.Lines, decoded.Lines)
	require.Len(t, decoded.Constants, 1)
	assert.Equal(t, "hi", decoded.Constants[0].AsGoString())
}

func TestDecodeChunkRejectsBadMagic(t *testing.T) {
	h := object.NewHeap()
	_, err := object.DecodeChunk(bytes.NewReader([]byte{0, 0, 0, 0}), h)
	assert.Error(t, err)
}
