package object

// tableMaxLoad is the load factor Table grows at.
const tableMaxLoad = 0.75

type tableEntry struct {
	key   *StringObj
	value Value
}

// Table is an open-addressed hash map keyed by interned *StringObj identity,
// with linear probing and tombstones.
//
// An empty slot has key == nil and value.IsNil(). A tombstone — a deleted
// slot that must still be probed past — has key == nil and value equal to
// Bool(true). Probing must treat these two differently: empty ends a probe
// chain, a tombstone does not.
type Table struct {
	count   int
	entries []tableEntry
}

// NewTable returns an empty Table.
func NewTable() *Table { return &Table{} }

// Count returns the number of live (non-tombstone) entries. The internal
// count field deliberately includes tombstones — they occupy probe-chain
// slots until the next growth, so they must weigh against the load factor —
// which is why this scans instead of returning the field.
func (t *Table) Count() int {
	n := 0
	for i := range t.entries {
		if t.entries[i].key != nil {
			n++
		}
	}
	return n
}

func isTombstone(e *tableEntry) bool { return e.key == nil && !e.value.IsNil() }
func isEmpty(e *tableEntry) bool     { return e.key == nil && e.value.IsNil() }

// findEntry returns the slot `key` belongs in: either its existing entry, or
// the first empty/tombstone slot found while probing, reusing the first
// tombstone encountered but continuing the probe until the true key-slot or
// an empty slot settles the search.
func (t *Table) findEntry(key *StringObj) *tableEntry {
	capacity := len(t.entries)
	index := int(key.Hash) % capacity
	var tombstone *tableEntry
	for {
		e := &t.entries[index]
		if e.key == nil {
			if isEmpty(e) {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) % capacity
	}
}

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key *StringObj) (Value, bool) {
	if t.count == 0 {
		return Nil, false
	}
	e := t.findEntry(key)
	if e.key == nil {
		return Nil, false
	}
	return e.value, true
}

// Set stores value under key, growing the table first if needed. It returns
// true iff this inserted a brand-new key. Landing in a tombstone slot does
// not increment count; landing in a genuinely empty slot does.
func (t *Table) Set(key *StringObj, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.adjustCapacity(growCapacity(len(t.entries)))
	}
	e := t.findEntry(key)
	isNewKey := e.key == nil
	if isNewKey && isEmpty(e) {
		t.count++
	}
	e.key = key
	e.value = value
	return isNewKey
}

// Delete replaces key's entry with a tombstone. Returns false if key was not
// present.
func (t *Table) Delete(key *StringObj) bool {
	if t.count == 0 {
		return false
	}
	e := t.findEntry(key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = Bool(true)
	return true
}

// FindString looks up an interned string by content rather than by an
// existing *StringObj, so the string allocator can check for an existing
// interned copy before constructing a new StringObj for not-yet-interned
// bytes.
func (t *Table) FindString(chars string, hash uint32) *StringObj {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	index := int(hash) % capacity
	for {
		e := &t.entries[index]
		if e.key == nil {
			if isEmpty(e) {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) % capacity
	}
}

func growCapacity(old int) int {
	if old < 8 {
		return 8
	}
	return old * 2
}

func (t *Table) adjustCapacity(capacity int) {
	newEntries := make([]tableEntry, capacity)
	old := t.entries
	t.entries = newEntries
	t.count = 0
	for i := range old {
		e := &old[i]
		if e.key == nil {
			continue
		}
		dst := t.findEntry(e.key)
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
}

// RemoveWhite deletes every entry whose key is not GC-marked. Used by the
// collector to prune the strings table of dead interned strings before
// sweep, so sweep never has to special-case a table that still points at a
// soon-to-be-freed string.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.marked {
			e.key = nil
			e.value = Bool(true)
		}
	}
}

// Each calls fn for every live entry. Used by the collector to mark the
// globals table, a class's methods table, and an instance's fields table.
func (t *Table) Each(fn func(key *StringObj, value Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}
