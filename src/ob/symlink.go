package ob

import (
	"bpath"
	"defs"
	"ustr"
)

/// Unassigned is returned when a symbolic link with no destination is
/// parsed, grounded on ob/link.c's STATUS_UNASSIGNED_LINK.
const Unassigned defs.Err = -20

/// Symlink is a symbolic link object: its body holds only the
/// destination path it parses to. Grounded on ob.h's OBJECT_SYMLINK and
/// ob/link.c's ObpParseSymbolicLink/ObpDeleteSymbolicLink.
type Symlink struct {
	Header
	dest ustr.Ustr
}

var symlinkType *Type

func init() {
	symlinkType = &Type{
		Name:         "SymbolicLink",
		NonPagedPool: true,
		Parse:        parseSymlink,
		Delete:       deleteSymlink,
	}
}

/// SymlinkType is the object type shared by every symbolic link.
func SymlinkType() *Type { return symlinkType }

/// NewSymlink creates a symbolic link named name under parent, pointing
/// at dest. dest is not resolved until the link is parsed.
func NewSymlink(name ustr.Ustr, parent *Directory, flags Flags, dest ustr.Ustr) (*Symlink, defs.Err) {
	s := &Symlink{dest: dest}
	if err := InitHeader(&s.Header, symlinkType, name, parent, flags, nil, s); defs.Failed(err) {
		return nil, err
	}
	return s, defs.Success
}

// parseSymlink is symlinkType.Parse: it hands the lookup loop the
// link's destination path to re-resolve from the global root, per
// link.c's extensive comment on the "swap the directory from under the
// rug" trick.
func parseSymlink(body any, name string, ctx any, loopCount int) (*Header, string, defs.Err) {
	s := body.(*Symlink)
	if len(s.dest) == 0 {
		return nil, "", Unassigned
	}
	if _, ok := bpath.Parse(s.dest); !ok {
		return nil, "", Unassigned
	}
	return nil, s.dest.String(), defs.Success
}

func deleteSymlink(body any) {
	s := body.(*Symlink)
	s.dest = nil
}
