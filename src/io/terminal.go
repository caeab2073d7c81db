package io

import (
	"encoding/binary"
	"sync"

	"defs"
	"pipe"
)

// IOCTL codes for the terminal device, grounded on
// boron/source/tty/ttyioctl.c (read in full): get/set the terminal's
// echo/raw state, get/set its reported window size.
const (
	IoctlGetTerminalState = iota
	IoctlSetTerminalState
	IoctlGetWindowSize
	IoctlSetWindowSize
)

/// TerminalState mirrors ttyi.h's TERMINAL_STATE: the handful of
/// line-discipline flags a terminal driver tracks.
type TerminalState struct {
	Echo bool
	Raw  bool
}

/// TerminalWindowSize mirrors ttyi.h's TERMINAL_WINDOW_SIZE.
type TerminalWindowSize struct {
	Rows uint16
	Cols uint16
}

// Encoded as fixed-width little-endian fields via encoding/binary
// rather than a driver-private wire format: these structs are an
// internal IOCTL payload with no on-disk or network counterpart, so
// there is no ecosystem serialization library to reach for (the
// teacher and the rest of the pack have none either) — this is a
// direct idiomatic substitute for ttyioctl.c's memcpy into/out of a
// fixed-size struct.

func encodeTerminalState(s TerminalState) []byte {
	buf := make([]byte, 2)
	if s.Echo {
		buf[0] = 1
	}
	if s.Raw {
		buf[1] = 1
	}
	return buf
}

func decodeTerminalState(b []byte) TerminalState {
	return TerminalState{Echo: b[0] != 0, Raw: b[1] != 0}
}

func encodeWindowSize(w TerminalWindowSize) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], w.Rows)
	binary.LittleEndian.PutUint16(buf[2:4], w.Cols)
	return buf
}

func decodeWindowSize(b []byte) TerminalWindowSize {
	return TerminalWindowSize{
		Rows: binary.LittleEndian.Uint16(b[0:2]),
		Cols: binary.LittleEndian.Uint16(b[2:4]),
	}
}

/// Terminal is a virtual teletype device: a keyboard-input pipe read by
/// the owning process, an output pipe written by it and drained by
/// whatever renders the screen, and the IOCTL-visible state ttyioctl.c
/// exposes. Grounded on boron/source/tty/ttyi.h's TERMINAL struct
/// (State, WindowSize, StateMutex) as inferred from ttyioctl.c, and on
/// spec.md's device-object row in section 2's layer table.
type Terminal struct {
	mu         sync.Mutex
	State      TerminalState
	WindowSize TerminalWindowSize

	input  *pipe.Pipe
	output *pipe.Pipe
}

/// NewTerminal creates a terminal with the given input/output ring
/// buffer capacity in bytes and a default 80x25 window size.
func NewTerminal(bufferSize int) *Terminal {
	t := &Terminal{
		input:      pipe.New(bufferSize),
		output:     pipe.New(bufferSize),
		WindowSize: TerminalWindowSize{Rows: 25, Cols: 80},
	}
	t.input.AddReader()
	t.input.AddWriter()
	t.output.AddReader()
	t.output.AddWriter()
	return t
}

/// InjectInput feeds keyboard bytes into the terminal, as an external
/// collaborator (the keyboard driver, out of this spec's scope) would.
/// If echo is enabled, the bytes are also mirrored to the output side
/// so a display reading Output() sees what was typed.
func (t *Terminal) InjectInput(data []byte) (int, defs.Err) {
	n, err := t.input.Write(data, pipe.Nonblock)
	if err == defs.Success || err == defs.EndOfFile {
		t.mu.Lock()
		echo := t.State.Echo
		t.mu.Unlock()
		if echo && n > 0 {
			t.output.Write(data[:n], pipe.Nonblock)
		}
	}
	return n, err
}

/// DrainOutput reads whatever the owning process has written, as a
/// display collaborator would.
func (t *Terminal) DrainOutput(buf []byte) (int, defs.Err) {
	return t.output.Read(buf, pipe.Nonblock)
}

/// TerminalDispatch is the dispatch table for a terminal FCB: Read
/// pulls from the keyboard-input side, Write pushes to the
/// screen-output side, and IoControl implements the four codes
/// ttyioctl.c services.
var TerminalDispatch = &Dispatch{
	Name: "Terminal",
	Read: func(fcb *FCB, offset uint64, buf []byte, flags RWFlags) Status {
		t := fcb.Extension.(*Terminal)
		n, err := t.input.Read(buf, toPipeFlags(flags))
		return Status{Err: err, Information: uint64(n)}
	},
	Write: func(fcb *FCB, offset uint64, buf []byte, flags RWFlags) Status {
		t := fcb.Extension.(*Terminal)
		n, err := t.output.Write(buf, toPipeFlags(flags))
		return Status{Err: err, Information: uint64(n)}
	},
	Seekable: func(fcb *FCB) bool { return false },
	IoControl: func(fcb *FCB, code int, in []byte, out []byte) Status {
		t := fcb.Extension.(*Terminal)
		t.mu.Lock()
		defer t.mu.Unlock()

		switch code {
		case IoctlGetTerminalState:
			if len(in) != 0 || len(out) != 2 {
				return Status{Err: defs.InvalidParameter}
			}
			copy(out, encodeTerminalState(t.State))
			return Status{Err: defs.Success}
		case IoctlSetTerminalState:
			if len(in) != 2 || len(out) != 0 {
				return Status{Err: defs.InvalidParameter}
			}
			t.State = decodeTerminalState(in)
			return Status{Err: defs.Success}
		case IoctlGetWindowSize:
			if len(in) != 0 || len(out) != 4 {
				return Status{Err: defs.InvalidParameter}
			}
			copy(out, encodeWindowSize(t.WindowSize))
			return Status{Err: defs.Success}
		case IoctlSetWindowSize:
			if len(in) != 4 || len(out) != 0 {
				return Status{Err: defs.InvalidParameter}
			}
			t.WindowSize = decodeWindowSize(in)
			return Status{Err: defs.Success}
		default:
			return Status{Err: defs.Unimplemented}
		}
	},
	Dereference: func(fcb *FCB) {
		t := fcb.Extension.(*Terminal)
		t.input.CloseReader()
		t.output.CloseWriter()
	},
}

/// NewTerminalFCB wraps a fresh Terminal in an FCB ready for a file
/// object, per OSCreateTerminal's contract in SPEC_FULL.md section 6.
func NewTerminalFCB(bufferSize int) *FCB {
	return NewFCB(TerminalDispatch, FileTypeDevice, 0, NewTerminal(bufferSize))
}
