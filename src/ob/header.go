package ob

import (
	"sync"
	"sync/atomic"

	"defs"
	"ustr"
)

/// Header is the common object header every Ob-managed type embeds as
/// its first field, standing in for ob.h's separate OBJECT_HEADER +
/// NONPAGED_OBJECT_HEADER pair: Go allocates header and body together
/// as one struct, so there is no CONTAINING_RECORD trick to port, only
/// the fields themselves and the reference-counting behavior around
/// them.
type Header struct {
	mu sync.Mutex

	typ          *Type
	name         ustr.Ustr
	flags        Flags
	parent       *Directory
	parseContext any

	pointerCount int32
	handleCount  int32

	body any
}

/// InitHeader initializes h in place for body, mirroring
/// ObiAllocateObject/ObiCreateObject's field setup. If parent is
/// non-nil and FlagNoDirectory is not set, h is linked into parent's
/// namespace under name; a name collision returns defs.NameCollision
/// and h is left unlinked (but still otherwise initialized — the
/// caller owns deciding whether to keep or discard it).
func InitHeader(h *Header, typ *Type, name ustr.Ustr, parent *Directory, flags Flags, parseContext any, body any) defs.Err {
	h.typ = typ
	h.name = name
	h.flags = flags
	h.parent = parent
	h.parseContext = parseContext
	h.pointerCount = 1
	h.body = body

	if typ != nil {
		typ.objectCount++
	}

	if parent != nil && flags&FlagNoDirectory == 0 {
		if err := parent.insert(h); defs.Failed(err) {
			return err
		}
		h.parent = parent
	}
	return defs.Success
}

/// Name returns the object's namespace name, or an empty Ustr for a
/// nameless object.
func (h *Header) Name() ustr.Ustr { return h.name }

/// Type returns the object's type.
func (h *Header) Type() *Type { return h.typ }

/// Flags returns the object's creation flags.
func (h *Header) Flags() Flags { return h.flags }

/// Body returns the concrete object this header is embedded in.
func (h *Header) Body() any { return h.body }

/// PointerCount returns the header's current reference count.
func (h *Header) PointerCount() int32 { return atomic.LoadInt32(&h.pointerCount) }

/// HandleCount returns the number of open handles referring to the
/// object, valid only if its Type sets MaintainHandleCount.
func (h *Header) HandleCount() int32 { return atomic.LoadInt32(&h.handleCount) }

/// Reference increments the pointer count, mirroring
/// ObReferenceObjectByPointer/ObpAddReferenceToObject.
func (h *Header) Reference() {
	atomic.AddInt32(&h.pointerCount, 1)
}

/// Dereference decrements the pointer count and, on reaching zero,
/// invokes the type's Delete callback unless the object is permanent —
/// mirroring ObDereferenceObject. Queuing the delete at high IPL (the
/// C implementation's deferred-reap path) has no analogue here: Delete
/// runs on the caller's goroutine directly, since Go has no IPL to
/// avoid blocking at.
func (h *Header) Dereference() {
	c := atomic.AddInt32(&h.pointerCount, -1)
	if c < 0 {
		panic("ob: Dereference on an object with no references")
	}
	if c != 0 {
		return
	}
	if h.flags&FlagPermanent != 0 {
		return
	}
	if h.parent != nil && h.flags&FlagNoDirectory == 0 {
		h.parent.remove(h)
	}
	if h.typ != nil {
		h.typ.objectCount--
		if h.typ.Delete != nil {
			h.typ.Delete(h.body)
		}
	}
}
