package ob

import (
	"bpath"
	"defs"
	"ustr"
)

/// MaxParseLoops bounds the number of Parse indirections (symlink hops,
/// filesystem-root re-entries) a single lookup will follow before
/// failing, preventing symlink cycles. Grounded on spec.md section
/// 4.4's "A maximum loop count prevents symlink cycles."
const MaxParseLoops = 32

var root *Directory

/// InitRoot installs d as the global root directory that absolute
/// paths (and ReferenceObjectByName with a nil initial) resolve
/// against. Must be called exactly once during boot.
func InitRoot(d *Directory) {
	root = d
}

/// Root returns the global root directory.
func Root() *Directory { return root }

/// ReferenceObjectByName resolves path starting at initial (or the
/// global root if initial is nil and path is absolute), taking a
/// reference on the final object. Grounded on ob/handle.c's
/// ObReferenceObjectByName / the ObpLookUpObjectPath algorithm it
/// wraps, and spec.md section 4.4's three-step description.
func ReferenceObjectByName(path ustr.Ustr, initial *Directory, expectedType *Type) (*Header, defs.Err) {
	p, ok := bpath.Parse(path)
	if !ok {
		return nil, defs.NameTooLong
	}

	var cur *Header
	if initial == nil {
		if root == nil {
			return nil, defs.NameNotFound
		}
		cur = &root.Header
	} else {
		cur = &initial.Header
	}
	cur.Reference()

	comps := p.Components()
	loops := 0
	for i := 0; i < len(comps); {
		seg := comps[i]

		dir, isDir := cur.body.(*Directory)
		if !isDir {
			cur.Dereference()
			return nil, defs.NameNotFound
		}

		child, found := dir.Lookup(seg)
		if !found {
			cur.Dereference()
			return nil, defs.NameNotFound
		}
		child.Reference()

		if child.typ != nil && child.typ.Parse != nil {
			loops++
			if loops > MaxParseLoops {
				child.Dereference()
				cur.Dereference()
				return nil, defs.NameTooLong
			}

			remainingRaw := joinRemaining(comps[i+1:])
			next, remaining, err := child.typ.Parse(child.body, remainingRaw, child.parseContext, loops)
			child.Dereference()
			if defs.Failed(err) {
				cur.Dereference()
				return nil, err
			}

			cur.Dereference()
			if next == nil {
				rp, ok := bpath.Parse(ustr.Ustr(remaining))
				if !ok {
					return nil, defs.NameNotFound
				}
				if root == nil {
					return nil, defs.NameNotFound
				}
				cur = &root.Header
				cur.Reference()
				comps = rp.Components()
				i = 0
				continue
			}
			// next already carries its own extra reference, per
			// OBJ_PARSE_FUNC's contract ("the returned Object will
			// have 1 extra reference, if there is one").
			cur = next
			if remaining == "" {
				break
			}
			rp, ok := bpath.Parse(ustr.Ustr(remaining))
			if !ok {
				cur.Dereference()
				return nil, defs.NameNotFound
			}
			comps = rp.Components()
			i = 0
			continue
		}

		cur.Dereference()
		cur = child
		i++
	}

	if expectedType != nil && cur.typ != expectedType {
		cur.Dereference()
		return nil, defs.TypeMismatch
	}
	return cur, defs.Success
}

func joinRemaining(comps []ustr.Ustr) string {
	if len(comps) == 0 {
		return ""
	}
	out := comps[0]
	for _, c := range comps[1:] {
		out = bpath.Join(out, c)
	}
	return out.String()
}
