package io

import (
	"testing"

	"defs"
)

func TestTerminalWriteThenDrainOutput(t *testing.T) {
	fcb := NewTerminalFCB(256)
	st := fcb.Write(0, []byte("hi"), 0)
	if st.Err != defs.Success || st.Information != 2 {
		t.Fatalf("Write = %+v", st)
	}

	term := fcb.Extension.(*Terminal)
	buf := make([]byte, 2)
	n, err := term.DrainOutput(buf)
	if err != defs.Success || n != 2 || string(buf) != "hi" {
		t.Fatalf("DrainOutput = %d, %v, %q", n, err, buf)
	}
}

func TestTerminalInjectInputReadBack(t *testing.T) {
	fcb := NewTerminalFCB(256)
	term := fcb.Extension.(*Terminal)
	term.InjectInput([]byte("ls\n"))

	buf := make([]byte, 3)
	st := fcb.Read(0, buf, 0)
	if st.Err != defs.Success || st.Information != 3 || string(buf) != "ls\n" {
		t.Fatalf("Read = %+v %q", st, buf)
	}
}

func TestTerminalEchoMirrorsInputToOutput(t *testing.T) {
	fcb := NewTerminalFCB(256)
	term := fcb.Extension.(*Terminal)

	on := encodeTerminalState(TerminalState{Echo: true})
	st := fcb.IoControl(IoctlSetTerminalState, on, nil)
	if st.Err != defs.Success {
		t.Fatalf("SetTerminalState = %v", st.Err)
	}

	term.InjectInput([]byte("x"))
	buf := make([]byte, 1)
	n, err := term.DrainOutput(buf)
	if err != defs.Success || n != 1 || buf[0] != 'x' {
		t.Fatalf("echoed output = %d %v %q, want 1 SUCCESS x", n, err, buf)
	}
}

func TestTerminalWindowSizeIoctlRoundTrip(t *testing.T) {
	fcb := NewTerminalFCB(256)

	set := encodeWindowSize(TerminalWindowSize{Rows: 40, Cols: 120})
	if st := fcb.IoControl(IoctlSetWindowSize, set, nil); st.Err != defs.Success {
		t.Fatalf("SetWindowSize = %v", st.Err)
	}

	out := make([]byte, 4)
	st := fcb.IoControl(IoctlGetWindowSize, nil, out)
	if st.Err != defs.Success {
		t.Fatalf("GetWindowSize = %v", st.Err)
	}
	got := decodeWindowSize(out)
	if got.Rows != 40 || got.Cols != 120 {
		t.Fatalf("GetWindowSize = %+v, want {40 120}", got)
	}
}

func TestTerminalIoctlRejectsWrongBufferSizes(t *testing.T) {
	fcb := NewTerminalFCB(256)
	if st := fcb.IoControl(IoctlGetWindowSize, nil, make([]byte, 1)); st.Err != defs.InvalidParameter {
		t.Fatalf("undersized out buffer = %v, want InvalidParameter", st.Err)
	}
	if st := fcb.IoControl(IoctlSetTerminalState, []byte{1}, nil); st.Err != defs.InvalidParameter {
		t.Fatalf("undersized in buffer = %v, want InvalidParameter", st.Err)
	}
}

func TestTerminalUnknownIoctlUnimplemented(t *testing.T) {
	fcb := NewTerminalFCB(256)
	if st := fcb.IoControl(999, nil, nil); st.Err != defs.Unimplemented {
		t.Fatalf("unknown ioctl = %v, want Unimplemented", st.Err)
	}
}
