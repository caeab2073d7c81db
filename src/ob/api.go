package ob

import "defs"

// Package-level wrappers tying a Header's reference count to a caller's
// HandleTable, grounded on ob/handle.c's ObInsertObject/
// ObReferenceObjectByHandle/ObClose. A process's handle table is
// attached to it by svc, the same way vm.AddressSpace is attached to a
// ke.Process separately rather than embedded, to avoid ob importing ke.

/// InsertObject creates a handle for object in table, taking the
/// reference the handle represents and invoking the object's Open
/// callback (if any) with CreateHandle as the reason. On failure the
/// caller's existing reference to object is left untouched.
func InsertObject(table *HandleTable, object *Header, reason OpenReason) (defs.Handle, defs.Err) {
	object.Reference()

	if object.typ != nil && object.typ.Open != nil {
		if object.typ.MaintainHandleCount {
			object.handleCount++
		}
		if err := object.typ.Open(object.body, int(object.handleCount), reason); defs.Failed(err) {
			if object.typ.MaintainHandleCount {
				object.handleCount--
			}
			object.Dereference()
			return defs.InvalidHandleValue, err
		}
	}

	h, err := table.CreateHandle(object)
	if defs.Failed(err) {
		if object.typ != nil && object.typ.Close != nil {
			object.typ.Close(object.body, int(object.handleCount))
		}
		if object.typ != nil && object.typ.MaintainHandleCount {
			object.handleCount--
		}
		object.Dereference()
		return defs.InvalidHandleValue, err
	}
	return h, defs.Success
}

/// ReferenceObjectByHandle resolves h in table to its object, taking an
/// extra reference the caller must eventually Dereference. If
/// expectedType is non-nil, a type mismatch fails the call without
/// taking a reference.
func ReferenceObjectByHandle(table *HandleTable, h defs.Handle, expectedType *Type) (*Header, defs.Err) {
	obj, err := table.GetPointer(h)
	if defs.Failed(err) {
		return nil, err
	}
	if expectedType != nil && obj.typ != expectedType {
		return nil, defs.TypeMismatch
	}
	obj.Reference()
	return obj, defs.Success
}

/// Close removes h from table, running the object's Close callback (if
/// any) and dropping the reference the handle held.
func Close(table *HandleTable, h defs.Handle) defs.Err {
	return table.DeleteHandle(h, func(obj *Header, _ any) bool {
		if obj.typ != nil && obj.typ.MaintainHandleCount {
			obj.handleCount--
		}
		if obj.typ != nil && obj.typ.Close != nil {
			obj.typ.Close(obj.body, int(obj.handleCount))
		}
		obj.Dereference()
		return true
	}, nil)
}

/// DuplicateFilter decides, for each live handle/object pair in a
/// source table, whether it should be carried over into a new table
/// (e.g. across a fork), mirroring ExDuplicateHandleTable's per-slot
/// caller callback.
type DuplicateFilter func(h defs.Handle, object *Header) bool

/// DuplicateHandleTable builds a new table of the same shape as src,
/// carrying over every handle for which filter returns true (a nil
/// filter carries everything over), taking a fresh reference per
/// duplicated object and invoking its Open callback with
/// DuplicateHandleReason.
func DuplicateHandleTable(src *HandleTable, filter DuplicateFilter) *HandleTable {
	dst := NewHandleTable(src.initialSize, src.growBy, src.limit)
	src.ForEach(func(h defs.Handle, obj *Header) {
		if filter != nil && !filter(h, obj) {
			return
		}
		obj.Reference()
		if obj.typ != nil {
			if obj.typ.MaintainHandleCount {
				obj.handleCount++
			}
			if obj.typ.Open != nil {
				if err := obj.typ.Open(obj.body, int(obj.handleCount), DuplicateHandleReason); defs.Failed(err) {
					if obj.typ.MaintainHandleCount {
						obj.handleCount--
					}
					obj.Dereference()
					return
				}
			}
		}
		if _, err := dst.CreateHandle(obj); defs.Failed(err) {
			if obj.typ != nil && obj.typ.Close != nil {
				obj.typ.Close(obj.body, int(obj.handleCount))
			}
			obj.Dereference()
		}
	})
	return dst
}
