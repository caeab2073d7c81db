package ob

import (
	"testing"

	"defs"
	"ustr"
)

func TestReferenceDereferenceDeletesAtZero(t *testing.T) {
	deleted := false
	typ := &Type{Name: "test", Delete: func(body any) { deleted = true }}

	var h Header
	if err := InitHeader(&h, typ, nil, nil, 0, nil, "body"); err != defs.Success {
		t.Fatalf("InitHeader = %v", err)
	}
	if h.PointerCount() != 1 {
		t.Fatalf("PointerCount = %d, want 1", h.PointerCount())
	}

	h.Reference()
	if h.PointerCount() != 2 {
		t.Fatalf("PointerCount = %d, want 2", h.PointerCount())
	}

	h.Dereference()
	if deleted {
		t.Fatalf("Delete called before count reached 0")
	}
	h.Dereference()
	if !deleted {
		t.Fatalf("Delete not called when count reached 0")
	}
}

func TestPermanentObjectSurvivesZeroCount(t *testing.T) {
	deleted := false
	typ := &Type{Name: "test", Delete: func(body any) { deleted = true }}

	var h Header
	InitHeader(&h, typ, nil, nil, FlagPermanent, nil, "body")
	h.Dereference()
	if deleted {
		t.Fatalf("permanent object was deleted")
	}
}

func TestDereferenceBelowZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic dereferencing a 0-count object")
		}
	}()
	var h Header
	InitHeader(&h, &Type{Name: "test"}, nil, nil, 0, nil, "body")
	h.Dereference()
	h.Dereference()
}

func TestInitHeaderLinksIntoParentDirectory(t *testing.T) {
	dir := NewDirectory()
	var h Header
	name := ustr.Ustr("thing")
	if err := InitHeader(&h, &Type{Name: "test"}, name, dir, 0, nil, "body"); err != defs.Success {
		t.Fatalf("InitHeader = %v", err)
	}
	child, ok := dir.Lookup(name)
	if !ok || child != &h {
		t.Fatalf("Lookup did not find the newly linked header")
	}
}

func TestInitHeaderNameCollision(t *testing.T) {
	dir := NewDirectory()
	name := ustr.Ustr("dup")

	var a, b Header
	if err := InitHeader(&a, &Type{Name: "test"}, name, dir, 0, nil, "a"); err != defs.Success {
		t.Fatalf("first InitHeader = %v", err)
	}
	if err := InitHeader(&b, &Type{Name: "test"}, name, dir, 0, nil, "b"); err != defs.NameCollision {
		t.Fatalf("second InitHeader = %v, want NameCollision", err)
	}
}

func TestDereferenceUnlinksFromParent(t *testing.T) {
	dir := NewDirectory()
	name := ustr.Ustr("thing")
	var h Header
	InitHeader(&h, &Type{Name: "test"}, name, dir, 0, nil, "body")

	h.Dereference()
	if _, ok := dir.Lookup(name); ok {
		t.Fatalf("header still present in directory after Dereference to 0")
	}
}
