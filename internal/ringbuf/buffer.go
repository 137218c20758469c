package ringbuf

// Buffer is a single-goroutine byte ring. A buffer of capacity N stores at
// most N-1 bytes; one slot stays open so a full buffer and an empty one
// are distinguishable from the head and tail positions alone.
type Buffer struct {
	buf  []byte
	head int
	tail int
}

// New returns a ring of the given capacity. Capacities below 2 are raised
// to 2 (a usable minimum of one byte).
func New(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{buf: make([]byte, capacity)}
}

// Write copies as much of p as fits and returns the number of bytes
// stored. A full buffer returns 0.
func (b *Buffer) Write(p []byte) int {
	n := b.WriteAvailable()
	if n > len(p) {
		n = len(p)
	}
	if n == 0 {
		return 0
	}
	first := len(b.buf) - b.head
	if first > n {
		first = n
	}
	copy(b.buf[b.head:], p[:first])
	copy(b.buf, p[first:n])
	b.head = (b.head + n) % len(b.buf)
	return n
}

// Read moves up to len(p) buffered bytes into p and returns the count. An
// empty buffer returns 0.
func (b *Buffer) Read(p []byte) int {
	n := b.ReadAvailable()
	if n > len(p) {
		n = len(p)
	}
	if n == 0 {
		return 0
	}
	first := len(b.buf) - b.tail
	if first > n {
		first = n
	}
	copy(p, b.buf[b.tail:b.tail+first])
	copy(p[first:], b.buf[:n-first])
	b.tail = (b.tail + n) % len(b.buf)
	return n
}

// ReadAvailable returns the number of buffered bytes.
func (b *Buffer) ReadAvailable() int {
	if b.head >= b.tail {
		return b.head - b.tail
	}
	return len(b.buf) - b.tail + b.head
}

// WriteAvailable returns the free space.
func (b *Buffer) WriteAvailable() int {
	return len(b.buf) - 1 - b.ReadAvailable()
}

// Reset discards all buffered bytes.
func (b *Buffer) Reset() {
	b.head, b.tail = 0, 0
}

// Cap returns the allocated capacity. Usable space is one byte less.
func (b *Buffer) Cap() int { return len(b.buf) }
