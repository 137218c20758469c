package ringbuf

import (
	"bytes"
	"testing"
)

func TestUsableCapacityIsOneLess(t *testing.T) {
	b := New(8)
	if b.WriteAvailable() != 7 {
		t.Fatalf("write available: got %d want 7", b.WriteAvailable())
	}
	n := b.Write(bytes.Repeat([]byte{1}, 16))
	if n != 7 {
		t.Fatalf("write on empty ring: got %d want 7", n)
	}
	if b.Write([]byte{2}) != 0 {
		t.Fatalf("write on full ring must return 0")
	}
}

func TestWrapAround(t *testing.T) {
	b := New(8)
	payload := []byte("abcdefghijklmnopqrstuvwxyz")
	out := make([]byte, 0, len(payload))
	scratch := make([]byte, 3)

	for off := 0; off < len(payload); {
		off += b.Write(payload[off:])
		for {
			n := b.Read(scratch)
			if n == 0 {
				break
			}
			out = append(out, scratch[:n]...)
		}
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("wrap-around corrupted data: got %q want %q", out, payload)
	}
}

func TestShortReadsAndWrites(t *testing.T) {
	b := New(4)
	if n := b.Write([]byte("abcdef")); n != 3 {
		t.Fatalf("short write: got %d want 3", n)
	}
	if b.ReadAvailable() != 3 {
		t.Fatalf("read available: got %d want 3", b.ReadAvailable())
	}
	buf := make([]byte, 2)
	if n := b.Read(buf); n != 2 || string(buf) != "ab" {
		t.Fatalf("read: got %d %q", n, buf[:n])
	}
	buf = make([]byte, 8)
	if n := b.Read(buf); n != 1 || buf[0] != 'c' {
		t.Fatalf("tail read: got %d %q", n, buf[:n])
	}
	if n := b.Read(buf); n != 0 {
		t.Fatalf("read on empty ring: got %d", n)
	}
}

func TestReset(t *testing.T) {
	b := New(8)
	b.Write([]byte("abc"))
	b.Reset()
	if b.ReadAvailable() != 0 || b.WriteAvailable() != 7 {
		t.Fatalf("reset left state: read=%d write=%d", b.ReadAvailable(), b.WriteAvailable())
	}
}

func TestTinyCapacity(t *testing.T) {
	b := New(0)
	if b.Cap() != 2 || b.WriteAvailable() != 1 {
		t.Fatalf("floor capacity: cap=%d avail=%d", b.Cap(), b.WriteAvailable())
	}
	if n := b.Write([]byte("xy")); n != 1 {
		t.Fatalf("write: got %d want 1", n)
	}
	out := make([]byte, 2)
	if n := b.Read(out); n != 1 || out[0] != 'x' {
		t.Fatalf("read: got %d %q", n, out[:n])
	}
}
