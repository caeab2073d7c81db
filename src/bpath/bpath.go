// Package bpath implements the object-namespace path grammar: separator
// '\', absolute paths rooted at the global directory, a 256-byte maximum
// length, and the three reserved top-level roots Ob mounts at boot.
//
// Grounded on spec.md section 6 (Path grammar) and section 4.4's directory
// lookup algorithm; biscuit carries no bpath source of its own (only an
// empty module), so this package is new rather than ported.
package bpath

import (
	"ustr"
)

/// Separator is the single path-component delimiter.
const Separator = '\\'

/// MaxLen is the longest permitted path, in bytes.
const MaxLen = 256

// Reserved top-level directory names, mounted by the kernel at boot.
const (
	RootDevices  = "Devices"
	RootInitRoot = "InitRoot"
	RootMount    = "Mount"
)

/// Path wraps a validated path string and its split components.
type Path struct {
	raw        ustr.Ustr
	absolute   bool
	components []ustr.Ustr
}

/// Parse validates raw against the path grammar and splits it into
/// components. A path longer than MaxLen, or one containing an empty
/// component (adjacent separators), is rejected.
func Parse(raw ustr.Ustr) (Path, bool) {
	if len(raw) == 0 {
		return Path{}, false
	}
	if len(raw) > MaxLen {
		return Path{}, false
	}
	absolute := raw[0] == Separator
	start := 0
	if absolute {
		start = 1
	}
	var comps []ustr.Ustr
	cur := start
	for i := start; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == Separator {
			if i == cur {
				if i == len(raw) && cur == start {
					break
				}
				return Path{}, false
			}
			comps = append(comps, raw[cur:i])
			cur = i + 1
		}
	}
	return Path{raw: raw, absolute: absolute, components: comps}, true
}

/// IsAbsolute reports whether the path is rooted.
func (p Path) IsAbsolute() bool {
	return p.absolute
}

/// Components returns the path's slash-separated segments in order.
func (p Path) Components() []ustr.Ustr {
	return p.components
}

/// String returns the original path text.
func (p Path) String() string {
	return p.raw.String()
}

/// Join appends a single component to a path, inserting the separator.
func Join(base ustr.Ustr, comp ustr.Ustr) ustr.Ustr {
	out := make(ustr.Ustr, 0, len(base)+1+len(comp))
	out = append(out, base...)
	out = append(out, Separator)
	out = append(out, comp...)
	return out
}
