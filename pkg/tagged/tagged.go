// Package tagged provides the pointer-packing primitives behind the
// closed-set polymorphic handles used throughout the renderer.
//
// A handle is a single 64-bit word that encodes both the address of a
// concrete object and a small integer tag identifying its concrete type
// within a closed, compile-time-enumerated set. Tag 0 is reserved for
// the empty handle. Because the variant set is closed, every operation
// on a handle compiles to a bounded switch over the tag rather than an
// indirect call through a method table, and the same representation
// works on execution back-ends where function-pointer tables do not.
//
// The word does not own its pointee: ownership stays with whoever
// allocated the object (a scratch buffer or a long-lived registry), and
// that owner must keep the object reachable for the handle's lifetime.
package tagged

import (
	"fmt"
	"sync"
	"unsafe"
)

const (
	// TagBits is the width of the tag field in the high bits of a word.
	TagBits = 7
	// AddressBits is the width of the address field in the low bits.
	AddressBits = 64 - TagBits

	// MaxTag is the largest representable tag value.
	MaxTag = 1<<TagBits - 1

	addressMask = 1<<AddressBits - 1
)

// Word is one packed pointer+tag value. The zero Word is the empty
// handle. Two Words are equal exactly when their encodings are equal.
type Word uint64

// Pack encodes a pointer and a tag into a single word.
// It panics if the tag is outside [1, MaxTag] or if the address does
// not fit the low-bit field; both are programming errors.
func Pack(p unsafe.Pointer, tag int) Word {
	if tag < 1 || tag > MaxTag {
		panic(fmt.Sprintf("tagged: tag %d outside [1, %d]", tag, MaxTag))
	}
	addr := uint64(uintptr(p))
	if addr&^uint64(addressMask) != 0 {
		panic(fmt.Sprintf("tagged: address %#x overflows %d-bit field", addr, AddressBits))
	}
	return Word(addr | uint64(tag)<<AddressBits)
}

// Tag returns the tag field. The empty word has tag 0.
func (w Word) Tag() int {
	return int(w >> AddressBits)
}

// Ptr returns the address field as an unsafe.Pointer.
//
//go:nosplit
func (w Word) Ptr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(w) & addressMask)
}

// IsNil reports whether the word is the empty handle.
func (w Word) IsNil() bool {
	return w == 0
}

// CheckTag panics unless the word's tag equals want. Handle cast
// methods call this on their asserting path.
func (w Word) CheckTag(want int, what string) {
	if w.Tag() != want {
		panic(fmt.Sprintf("tagged: %s cast with tag %d, want %d", what, w.Tag(), want))
	}
}

// CheckDispatch panics if the word is empty. Handle dispatch methods
// call this before switching on the tag.
func (w Word) CheckDispatch(what string) {
	if w.IsNil() {
		panic("tagged: dispatch on empty " + what + " handle")
	}
}

// As reinterprets the address field as a *T. Callers must have checked
// the tag; this is the raw primitive behind the typed casts.
func As[T any](w Word) *T {
	return (*T)(w.Ptr())
}

// The packed word is invisible to the garbage collector, so an object
// referenced only through a handle could be collected out from under
// it. Render-lifetime objects (lights, cameras, samplers, media) are
// pinned in a registry when their handle is constructed; per-sample
// objects (scattering closures) live in a scratch buffer whose blocks
// keep the memory reachable until the owning worker resets it.

var registry struct {
	mu   sync.Mutex
	refs []any
}

// Keep pins p for the remainder of the process so a handle packed from
// it stays valid. Handle constructors for render-lifetime variant sets
// call this; scratch-allocated variants must not.
func Keep(p any) {
	registry.mu.Lock()
	registry.refs = append(registry.refs, p)
	registry.mu.Unlock()
}

// Pinned returns the number of objects held in the registry. Pins are
// never released, so growth proportional to per-sample work indicates
// a handle being constructed on a hot path.
func Pinned() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.refs)
}
