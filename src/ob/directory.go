package ob

import (
	"sync"

	"aatree"
	"defs"
	"ustr"
)

/// DirectoryType is the object type shared by every directory object.
var DirectoryType = &Type{
	Name:                "Directory",
	MaintainHandleCount: false,
}

/// Directory is the body of an object directory: a mutex-guarded set of
/// named children, ordered in an AA-tree by name hash rather than
/// lexically. Grounded on ob.h's OBJECT_DIRECTORY and
/// ob/dir.c's ObpInsertObjectIntoDirectory (the tree-key-collision
/// bump-and-retry loop, simplified from "add 1<<32 to the key" to "add
/// 1", since nothing here depends on the exact increment, only that it
/// probes to the next unused slot).
type Directory struct {
	Header

	mu       sync.Mutex
	children aatree.Tree[uint64, *dirEntry]
	count    int
}

// dirEntry pairs a child with the key it would occupy with no
// collision (its "home"), recorded at insert time rather than
// recomputed later: remove's backward-shift needs to know each
// trailing entry's true home to decide whether it can move into a
// freshly vacated slot, and storing it up front means that decision
// never depends on re-deriving it from the name's hash.
type dirEntry struct {
	home uint64
	hdr  *Header
}

/// NewDirectory creates an empty, unparented directory object, used for
/// the global root and other directories mounted directly rather than
/// looked up by name (InitRoot takes one of these).
func NewDirectory() *Directory {
	d := &Directory{}
	InitHeader(&d.Header, DirectoryType, nil, nil, FlagNoDirectory, nil, d)
	return d
}

/// NewNamedDirectory allocates a directory and links it into parent
/// under name in one step.
func NewNamedDirectory(name ustr.Ustr, parent *Directory, flags Flags) (*Directory, defs.Err) {
	d := &Directory{}
	if err := InitHeader(&d.Header, DirectoryType, name, parent, flags, nil, d); defs.Failed(err) {
		return nil, err
	}
	return d, defs.Success
}

// insert links child into d's namespace, called from InitHeader.
func (d *Directory) insert(child *Header) defs.Err {
	return d.insertAt(child.name.Hash(), child)
}

// insertAt links child into d's namespace, probing forward from home.
// Split out from insert so directory_test.go can engineer a guaranteed
// collision chain (three entries sharing one home) without needing
// names that genuinely collide under ustr.Hash.
func (d *Directory) insertAt(home uint64, child *Header) defs.Err {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := home
	for {
		existing, ok := d.children.Lookup(key)
		if !ok {
			d.children.Insert(key, &dirEntry{home: home, hdr: child})
			d.count++
			return defs.Success
		}
		if existing.hdr.name.Eq(child.name) {
			return defs.NameCollision
		}
		key++
	}
}

// remove unlinks child from d's namespace, called from Header.Dereference.
func (d *Directory) remove(child *Header) {
	d.removeAt(child.name.Hash(), child)
}

// removeAt unlinks child, whose home is home, then backward-shifts the
// rest of its probe chain.
//
// Deleting the slot at the probed key isn't enough: insert's
// bump-and-retry loop means a later entry's key may only be reachable
// by probing *through* the slot being vacated, so plain deletion would
// strand it. Backward-shift the trailing chain the same way linear
// probing always does on delete (Knuth's Algorithm R): walk forward
// from the gap, and for each occupied slot whose recorded home is
// still at or before the gap, move it into the gap and treat its old
// slot as the new gap, until an empty slot is reached.
func (d *Directory) removeAt(home uint64, child *Header) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := home
	for {
		existing, ok := d.children.Lookup(key)
		if !ok {
			return
		}
		if existing.hdr == child {
			break
		}
		key++
	}
	d.children.Remove(key)
	d.count--

	gap := key
	probe := key + 1
	for {
		entry, ok := d.children.Lookup(probe)
		if !ok {
			return
		}
		if entry.home <= gap {
			d.children.Remove(probe)
			d.children.Insert(gap, entry)
			gap = probe
		}
		probe++
	}
}

/// Lookup finds the immediate child named name, without taking a
/// reference to it (the caller must Reference it themselves before
/// releasing the directory's implicit lock-free read).
func (d *Directory) Lookup(name ustr.Ustr) (*Header, bool) {
	return d.lookupAt(name.Hash(), name)
}

// lookupAt probes d's namespace for name, starting at home.
func (d *Directory) lookupAt(home uint64, name ustr.Ustr) (*Header, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := home
	for {
		existing, ok := d.children.Lookup(key)
		if !ok {
			return nil, false
		}
		if existing.hdr.name.Eq(name) {
			return existing.hdr, true
		}
		key++
	}
}

/// Count returns the number of direct children.
func (d *Directory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

/// List calls fn for every child in name-hash order, stopping early if
/// fn returns false. Mirrors ObListDirectoryObject minus the
/// fixed-size-buffer/STATUS_REQUERY protocol, since Go callers can just
/// return false once they have enough.
func (d *Directory) List(fn func(*Header) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.children.InOrder(func(_ uint64, e *dirEntry) bool {
		return fn(e.hdr)
	})
}
