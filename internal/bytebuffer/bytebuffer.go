// Package bytebuffer implements the leaf byte-granularity ring window that
// every higher layer (file/memory buffer, bit buffer) builds on.
package bytebuffer

import (
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

// MaxUsableSize bounds how large a single buffer or request may be. The
// original library ties this to half the range of its configurable
// io_uint_t; a plain int is already signed and bounded on every platform
// this module targets, so we just pick a generous, explicit ceiling.
const MaxUsableSize = 1 << 40

// Producer fills dst (whose capacity is the free space in the buffer) and
// returns the number of bytes produced, or an error. It replaces the
// original's caller_info back-pointer with a first-class closure.
type Producer func(dst []byte) (int, error)

// Consumer drains up to len(src) bytes from src and returns how many it
// actually consumed, or an error.
type Consumer func(src []byte) (int, error)

// Buffer is a contiguous byte region with two cursors: start (oldest
// unread byte) and end (newest written byte, inclusive; -1 when empty).
type Buffer struct {
	data  []byte
	start int
	end   int // -1 when empty
}

// New allocates a Buffer with the given capacity.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, errs.New(errs.InvalidValue, "byte buffer capacity must be positive, got %d", capacity)
	}
	if capacity > MaxUsableSize {
		return nil, errs.New(errs.ValueTooLarge, "byte buffer capacity %d exceeds the usable size limit", capacity)
	}
	b := &Buffer{data: make([]byte, capacity)}
	b.Clear()
	return b, nil
}

// Capacity returns the total number of bytes the buffer can hold.
func (b *Buffer) Capacity() int { return len(b.data) }

// Used returns the number of bytes currently live in the buffer.
func (b *Buffer) Used() int { return b.end - b.start + 1 }

// Clear resets the buffer to empty without touching its backing storage.
func (b *Buffer) Clear() {
	b.start = 0
	b.end = -1
}

// Resize copies the live window into a freshly allocated region of
// newCapacity bytes and resets start to 0.
func (b *Buffer) Resize(newCapacity int) error {
	if newCapacity <= 0 {
		return errs.New(errs.InvalidValue, "byte buffer capacity must be positive, got %d", newCapacity)
	}
	if newCapacity > MaxUsableSize {
		return errs.New(errs.ValueTooLarge, "byte buffer capacity %d exceeds the usable size limit", newCapacity)
	}
	used := b.Used()
	newData := make([]byte, newCapacity)
	copy(newData, b.data[b.start:b.end+1])
	b.data = newData
	b.start = 0
	b.end = used - 1
	return nil
}

// Refill compacts the live window to offset 0, then invokes produce to
// fill whatever free space remains. An error returned by produce is
// propagated (a negative count without an error adds nothing); the live
// window is always left compacted even on error.
func (b *Buffer) Refill(produce Producer) error {
	used := b.Used()
	copy(b.data, b.data[b.start:b.end+1])
	b.start = 0
	b.end = used - 1
	if produce == nil {
		return nil
	}
	free := len(b.data) - used
	if free <= 0 {
		return nil
	}
	n, err := produce(b.data[b.end+1 : b.end+1+free])
	if err != nil {
		return err
	}
	if n > 0 {
		b.end += n
	}
	return nil
}

// Peek copies up to min(Used(), len(out)) bytes without advancing start.
func (b *Buffer) Peek(out []byte) int {
	n := b.Used()
	if n > len(out) {
		n = len(out)
	}
	if n <= 0 {
		return 0
	}
	copy(out, b.data[b.start:b.start+n])
	return n
}

// Read peeks then advances start by the number of bytes copied.
func (b *Buffer) Read(out []byte) int {
	n := b.Peek(out)
	if n > 0 {
		b.start += n
	}
	return n
}

// Flush hands the live window to consume, advancing start by however much
// was reported consumed. It is a no-op when the buffer is empty.
func (b *Buffer) Flush(consume Consumer) error {
	if consume == nil {
		return nil
	}
	used := b.Used()
	if used <= 0 {
		return nil
	}
	n, err := consume(b.data[b.start : b.start+used])
	if err != nil {
		return err
	}
	if n > 0 {
		b.start += n
	}
	return nil
}

// Write copies up to min(free space, len(in)) bytes from in, compacting
// the live window to the front first if the tail would otherwise overflow
// the backing array.
func (b *Buffer) Write(in []byte) int {
	used := b.Used()
	free := len(b.data) - used
	n := len(in)
	if n > free {
		n = free
	}
	if n <= 0 {
		return 0
	}
	if b.end+n >= len(b.data) {
		copy(b.data, b.data[b.start:b.start+used])
		b.start = 0
		b.end = used - 1
	}
	copy(b.data[b.end+1:b.end+1+n], in[:n])
	b.end += n
	return n
}
