package slab

// DefaultBlockSlots is the number of slots carved per storage block when
// none is given.
const DefaultBlockSlots = 128

// Pool hands out fixed slots of T in O(1). Storage grows one block at a
// time and every block is retained for the lifetime of the pool; released
// slots go on a free list and come back in LIFO order. Pool is not safe
// for concurrent use.
type Pool[T any] struct {
	perBlock int
	blocks   [][]T
	free     []*T
}

// New returns a pool carving perBlock slots per storage block. Values
// below 1 fall back to DefaultBlockSlots. No storage is allocated until
// the first Acquire.
func New[T any](perBlock int) *Pool[T] {
	if perBlock < 1 {
		perBlock = DefaultBlockSlots
	}
	return &Pool[T]{perBlock: perBlock}
}

// Acquire returns a zeroed slot, growing the pool by one block when the
// free list is empty.
func (p *Pool[T]) Acquire() *T {
	if len(p.free) == 0 {
		p.grow()
	}
	n := len(p.free) - 1
	s := p.free[n]
	p.free = p.free[:n]
	return s
}

// Release zeroes the slot and returns it to the free list. The caller must
// not touch the slot afterwards. Releasing a pointer that did not come
// from Acquire is a caller violation and is not checked.
func (p *Pool[T]) Release(s *T) {
	if s == nil {
		return
	}
	var zero T
	*s = zero
	p.free = append(p.free, s)
}

// Create acquires a slot and initializes it with v.
func (p *Pool[T]) Create(v T) *T {
	s := p.Acquire()
	*s = v
	return s
}

// Destroy releases a slot obtained from Create.
func (p *Pool[T]) Destroy(s *T) { p.Release(s) }

func (p *Pool[T]) grow() {
	block := make([]T, p.perBlock)
	p.blocks = append(p.blocks, block)
	for i := range block {
		p.free = append(p.free, &block[i])
	}
}

// Stats is a point-in-time view of pool occupancy.
type Stats struct {
	Blocks int
	Slots  int
	Free   int
	Live   int
}

// Stats reports current occupancy.
func (p *Pool[T]) Stats() Stats {
	slots := len(p.blocks) * p.perBlock
	return Stats{
		Blocks: len(p.blocks),
		Slots:  slots,
		Free:   len(p.free),
		Live:   slots - len(p.free),
	}
}
