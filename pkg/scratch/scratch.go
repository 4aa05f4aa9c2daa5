// Package scratch provides a per-worker bump allocator for transient,
// short-lived allocations such as the scattering-function closures
// built at every shading point. Each rendering worker owns one Buffer,
// allocates from it while evaluating a pixel sample, and resets it
// before the next sample; nothing allocated from a Buffer may be
// referenced after the reset.
package scratch

import "unsafe"

const blockSize = 64 * 1024

// Buffer is a region allocator. Allocation is a pointer bump in the
// current block; Reset recycles every block without freeing. Buffers
// are not safe for concurrent use; each worker holds its own.
//
// Values placed in a Buffer must not contain Go pointers: the backing
// blocks are untyped, so the garbage collector will not trace through
// them. The renderer's scattering closures hold only plain values and
// tagged handle words, which satisfies this.
type Buffer struct {
	blocks  [][]byte
	current int // Index of the block being bumped
	offset  uintptr
}

// NewBuffer creates an empty scratch buffer
func NewBuffer() *Buffer {
	return &Buffer{current: -1}
}

// alloc returns a pointer to size bytes aligned to align
func (b *Buffer) alloc(size, align uintptr) unsafe.Pointer {
	if size > blockSize {
		// Oversized values get a dedicated block
		block := make([]byte, size)
		b.blocks = append(b.blocks, block)
		b.current = len(b.blocks) - 1
		b.offset = size
		return unsafe.Pointer(&block[0])
	}

	if b.current >= 0 {
		aligned := (b.offset + align - 1) &^ (align - 1)
		if aligned+size <= blockSize {
			b.offset = aligned + size
			return unsafe.Pointer(&b.blocks[b.current][aligned])
		}
	}

	// Advance to the next recycled block or grow
	b.current++
	if b.current == len(b.blocks) {
		b.blocks = append(b.blocks, make([]byte, blockSize))
	}
	b.offset = size
	return unsafe.Pointer(&b.blocks[b.current][0])
}

// Reset makes every block available for reuse. Pointers previously
// returned from Alloc are invalidated in the sense that their contents
// may be overwritten by subsequent allocations.
func (b *Buffer) Reset() {
	b.current = -1
	b.offset = 0
}

// Alloc allocates a zeroed T from the buffer
func Alloc[T any](b *Buffer) *T {
	var zero T
	p := (*T)(b.alloc(unsafe.Sizeof(zero), unsafe.Alignof(zero)))
	*p = zero
	return p
}

// New allocates a T from the buffer and initializes it to v
func New[T any](b *Buffer, v T) *T {
	p := Alloc[T](b)
	*p = v
	return p
}
