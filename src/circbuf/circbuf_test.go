package circbuf

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	var cb Buffer
	cb.Init(8)
	n := cb.Write([]uint8("hello"))
	if n != 5 {
		t.Fatalf("Write returned %d, want 5", n)
	}
	if cb.Used() != 5 || cb.Left() != 3 {
		t.Fatalf("used=%d left=%d, want 5,3", cb.Used(), cb.Left())
	}
	dst := make([]uint8, 5)
	n = cb.Read(dst)
	if n != 5 || string(dst) != "hello" {
		t.Fatalf("Read = %d %q, want 5 hello", n, dst)
	}
	if !cb.Empty() {
		t.Fatalf("buffer not empty after full drain")
	}
}

func TestWrapAround(t *testing.T) {
	var cb Buffer
	cb.Init(4)
	cb.Write([]uint8("ab"))
	buf := make([]uint8, 2)
	cb.Read(buf)
	cb.Write([]uint8("cdef"))
	if !cb.Full() {
		t.Fatalf("buffer not reported full")
	}
	out := make([]uint8, 4)
	n := cb.Read(out)
	if n != 4 || string(out) != "cdef" {
		t.Fatalf("Read after wrap = %d %q, want 4 cdef", n, out)
	}
}

func TestFullWriteShort(t *testing.T) {
	var cb Buffer
	cb.Init(2)
	n := cb.Write([]uint8("abc"))
	if n != 2 {
		t.Fatalf("Write into full-size buffer = %d, want 2", n)
	}
	if !cb.Full() {
		t.Fatalf("buffer should be full")
	}
	if cb.Write([]uint8("z")) != 0 {
		t.Fatalf("Write into a full buffer should copy 0 bytes")
	}
}
