// Package ob implements Boron's object manager: a common object header
// embedded in every typed kernel object, a directory namespace keyed by
// name hash, symbolic links, and a per-process handle table.
//
// Grounded on boron/include/ob.h and boron/source/ob/*.c (object.c,
// create.c, dir.c, handle.c, link.c, ref.c, type.c), all read in full.
// biscuit carries no object-manager analogue of its own, so this
// package is new rather than ported; its idiom (InitX-style two-phase
// construction, vtable-as-struct-of-funcs) follows ke's dispatcher
// object style since both sit at the same layer of the kernel.
package ob

import "defs"

/// OpenReason records why a handle was opened, passed to a Type's Open
/// callback. Grounded on ob.h's OB_OPEN_REASON.
type OpenReason int

const (
	CreateHandle OpenReason = iota
	OpenHandleReason
	DuplicateHandleReason
	InheritHandleReason
)

/// Flags are the object-creation flags from ob.h's OB_FLAG_* enum.
type Flags uint

const (
	FlagKernel Flags = 1 << iota
	FlagPermanent
	FlagNonPaged
	FlagNoDirectory
)

/// Type is an object type's virtual function table plus the
/// properties every instance of the type shares, grounded on ob.h's
/// OBJECT_TYPE/OBJECT_TYPE_INFO.
type Type struct {
	Name string

	InvalidAttributes   int
	ValidAccessMask     int
	NonPagedPool        bool
	MaintainHandleCount bool

	Open      func(body any, handleCount int, reason OpenReason) defs.Err
	Close     func(body any, handleCount int)
	Delete    func(body any)
	// Parse resolves the next path segment(s) relative to parseObj.
	// next == nil with remaining != "" means "restart the lookup from
	// the global root directory at path remaining" (a symbolic link);
	// next != nil with remaining == "" means the object was fully
	// resolved; next != nil with remaining != "" means continue
	// parsing remaining starting at next (a filesystem root consuming
	// its own namespace). Grounded on ob.h's OBJ_PARSE_FUNC doc comment.
	Parse     func(parseObj any, name string, ctx any, loopCount int) (next *Header, remaining string, err defs.Err)
	Duplicate func(body any, reason OpenReason) any

	objectCount int
}

/// ObjectCount reports the number of live instances of the type.
func (t *Type) ObjectCount() int { return t.objectCount }
