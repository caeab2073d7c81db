package ob

import (
	"testing"

	"defs"
	"ustr"
)

func TestDirectoryInsertLookupRemove(t *testing.T) {
	dir := NewDirectory()

	a, err := NewNamedDirectory(ustr.Ustr("a"), dir, 0)
	if err != defs.Success {
		t.Fatalf("NewNamedDirectory(a) = %v", err)
	}
	if _, err := NewNamedDirectory(ustr.Ustr("b"), dir, 0); err != defs.Success {
		t.Fatalf("NewNamedDirectory(b) = %v", err)
	}
	if dir.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", dir.Count())
	}

	found, ok := dir.Lookup(ustr.Ustr("a"))
	if !ok || found != &a.Header {
		t.Fatalf("Lookup(a) did not return the directory created above")
	}

	a.Dereference()
	if dir.Count() != 1 {
		t.Fatalf("Count() after removing a = %d, want 1", dir.Count())
	}
	if _, ok := dir.Lookup(ustr.Ustr("a")); ok {
		t.Fatalf("Lookup(a) still found after removal")
	}
}

func TestDirectoryNameCollisionRejected(t *testing.T) {
	dir := NewDirectory()
	if _, err := NewNamedDirectory(ustr.Ustr("x"), dir, 0); err != defs.Success {
		t.Fatalf("first NewNamedDirectory = %v", err)
	}
	if _, err := NewNamedDirectory(ustr.Ustr("x"), dir, 0); err != defs.NameCollision {
		t.Fatalf("second NewNamedDirectory = %v, want NameCollision", err)
	}
}

func TestDirectoryHashCollisionStillDistinguishesNames(t *testing.T) {
	// ustr.Hash is plain FNV-1a, so three names that genuinely collide
	// can't be picked by hand; engineer the collision directly through
	// insertAt/lookupAt instead, sharing one home key the way
	// insert's bump-and-retry loop would if it ever happened on real
	// names.
	dir := NewDirectory()
	const home uint64 = 0xc0111de

	var a, b, c Header
	if err := InitHeader(&a, DirectoryType, ustr.Ustr("a"), nil, FlagNoDirectory, nil, &a); err != defs.Success {
		t.Fatalf("InitHeader(a) = %v", err)
	}
	if err := InitHeader(&b, DirectoryType, ustr.Ustr("b"), nil, FlagNoDirectory, nil, &b); err != defs.Success {
		t.Fatalf("InitHeader(b) = %v", err)
	}
	if err := InitHeader(&c, DirectoryType, ustr.Ustr("c"), nil, FlagNoDirectory, nil, &c); err != defs.Success {
		t.Fatalf("InitHeader(c) = %v", err)
	}

	if err := dir.insertAt(home, &a); err != defs.Success {
		t.Fatalf("insertAt(a) = %v", err)
	}
	if err := dir.insertAt(home, &b); err != defs.Success {
		t.Fatalf("insertAt(b) = %v", err)
	}
	if err := dir.insertAt(home, &c); err != defs.Success {
		t.Fatalf("insertAt(c) = %v", err)
	}

	// a lands at home, b bumps to home+1, c bumps to home+2.
	if got, ok := dir.lookupAt(home, ustr.Ustr("c")); !ok || got != &c {
		t.Fatalf("lookupAt(c) before removal wrong result")
	}

	dir.removeAt(home, &b)

	got, ok := dir.lookupAt(home, ustr.Ustr("c"))
	if !ok {
		t.Fatalf("lookupAt(c) after removing b from the middle of the chain: not found")
	}
	if got != &c {
		t.Fatalf("lookupAt(c) after removing b returned the wrong header")
	}
}

func TestDirectoryListVisitsAllChildren(t *testing.T) {
	dir := NewDirectory()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		if _, err := NewNamedDirectory(ustr.Ustr(n), dir, 0); err != defs.Success {
			t.Fatalf("NewNamedDirectory(%s) = %v", n, err)
		}
	}

	seen := 0
	dir.List(func(h *Header) bool {
		seen++
		return true
	})
	if seen != len(names) {
		t.Fatalf("List visited %d children, want %d", seen, len(names))
	}
}

func TestDirectoryListStopsEarly(t *testing.T) {
	dir := NewDirectory()
	for _, n := range []string{"a", "b", "c"} {
		NewNamedDirectory(ustr.Ustr(n), dir, 0)
	}

	seen := 0
	dir.List(func(h *Header) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Fatalf("List visited %d children after early stop, want 1", seen)
	}
}
