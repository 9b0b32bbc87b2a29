// Package bitbuffer adds MSB-first bit-granular reads and writes on top of
// a filebuffer.Buffer, the substrate every stage codec ultimately drives.
package bitbuffer

import (
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/filebuffer"
)

const maxUsedBits = 8

// maxValueBits bounds ReadValue/WriteValue to what fits in a uint64.
const maxValueBits = 64

// Buffer layers one residual byte register (byteBuffer/usedBits) on top of
// a filebuffer.Buffer. In reading mode usedBits counts how many of the 8
// bits in byteBuffer have already been consumed (8 means "empty, refill
// before reading more"); in writing mode it counts how many bits have
// already been placed (8 means "full, flush before writing more").
//
// extraByteBuffer/extraUsedBits hold left-over write-side bits across a
// write-to-read mode flip (the only flip direction this type supports),
// mirroring the original's carryover register.
type Buffer struct {
	fb              *filebuffer.Buffer
	byteBuffer      uint8
	usedBits        uint8
	extraByteBuffer uint8
	extraUsedBits   uint8
}

// New wraps fb and resets the residual byte register for fb's current mode.
func New(fb *filebuffer.Buffer) *Buffer {
	b := &Buffer{fb: fb}
	b.resetByteRegister()
	return b
}

func (b *Buffer) resetByteRegister() {
	b.byteBuffer = 0
	if b.fb.Mode() == filebuffer.Reading {
		b.usedBits = maxUsedBits
	} else {
		b.usedBits = 0
	}
	b.extraByteBuffer = 0
	b.extraUsedBits = 0
}

// Mode reports the underlying file buffer's direction.
func (b *Buffer) Mode() filebuffer.Mode { return b.fb.Mode() }

// AtEnd reports whether reading mode has been exhausted: the underlying
// source is at EOF and no residual bits remain.
func (b *Buffer) AtEnd() (bool, error) {
	if b.Mode() != filebuffer.Reading {
		return false, nil
	}
	atEnd, err := b.fb.AtEnd()
	if err != nil {
		return false, err
	}
	return atEnd && b.extraUsedBits == 0 && b.usedBits == maxUsedBits, nil
}

// SetMode flips direction. Only writing->reading is supported (matching
// the original library; the underlying filebuffer itself allows both
// directions); any other change of mode is refused and leaves the buffer
// as it was. The left-over write-side bits are preserved in the carryover
// register so the next reads drain them before pulling fresh bytes from
// the source.
func (b *Buffer) SetMode(mode filebuffer.Mode) error {
	old := b.Mode()
	if old != mode && !(old == filebuffer.Writing && mode == filebuffer.Reading) {
		return errs.New(errs.InvalidMode, "bit buffer only supports writing-to-reading mode transitions")
	}
	if err := b.fb.SetMode(mode); err != nil {
		return err
	}
	if old == mode {
		return nil
	}
	b.extraByteBuffer = b.byteBuffer
	b.extraUsedBits = b.usedBits
	b.usedBits = maxUsedBits // force a refill before the next read
	return nil
}

// readByteFractionFromExtra pulls up to wanted bits from the write-side
// carryover register left by a mode flip, once the source is exhausted.
func (b *Buffer) readByteFractionFromExtra(wanted uint8) uint8 {
	n := wanted
	if n > b.extraUsedBits {
		n = b.extraUsedBits
	}
	b.byteBuffer = b.extraByteBuffer >> (maxUsedBits - b.extraUsedBits)
	b.usedBits = maxUsedBits - b.extraUsedBits
	b.extraUsedBits = 0
	return n
}

// readBitwise reads up to 8 bits into the low bits of *out, MSB first.
// It returns the number of bits actually read, which is less than want
// only when the source (and any carryover) is exhausted.
func (b *Buffer) readBitwise(out *uint8, want uint8) (uint8, error) {
	if want > maxUsedBits {
		return 0, errs.New(errs.InvalidValue, "cannot read more than %d bits at once, got %d", maxUsedBits, want)
	}
	oldBits := maxUsedBits - b.usedBits
	var read uint8
	newBits := want
	*out = 0
	if want > oldBits {
		if oldBits > 0 {
			*out |= b.byteBuffer & ((1 << oldBits) - 1)
			read += oldBits
			b.usedBits = maxUsedBits
		}
		newBits -= read
		var fresh [1]byte
		n, err := b.fb.Read(fresh[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			b.byteBuffer = fresh[0]
			b.usedBits = 0
		} else if b.extraUsedBits > 0 {
			newBits = b.readByteFractionFromExtra(newBits)
		} else {
			return read, nil
		}
		if oldBits > 0 {
			*out <<= want - oldBits
		}
	}
	*out |= (b.byteBuffer & ((1 << (maxUsedBits - b.usedBits)) - 1)) >> (maxUsedBits - newBits - b.usedBits)
	b.usedBits += newBits
	read += newBits
	return read, nil
}

// writeBitwise writes the low `want` bits of in (MSB first) into the
// residual byte register, flushing a completed byte to the file buffer
// as needed. It returns the number of bits actually written.
func (b *Buffer) writeBitwise(in uint8, want uint8) (uint8, error) {
	if want > maxUsedBits {
		return 0, errs.New(errs.InvalidValue, "cannot write more than %d bits at once, got %d", maxUsedBits, want)
	}
	var written uint8
	freeBits := maxUsedBits - b.usedBits
	if want > freeBits {
		if freeBits > 0 {
			b.byteBuffer |= (in & ((1 << want) - 1)) >> (want - freeBits)
			written += freeBits
		}
		var full [1]byte
		full[0] = b.byteBuffer
		n, err := b.fb.Write(full[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			b.usedBits = 0
		} else {
			b.usedBits += written
			return written, nil
		}
		b.byteBuffer = 0
	}
	newBits := want - written
	b.byteBuffer |= (in & ((1 << newBits) - 1)) << (maxUsedBits - newBits - b.usedBits)
	b.usedBits += newBits
	written += newBits
	return written, nil
}

// ReadBits fills out with bitSize bits (MSB-first packed, left-aligned
// within the final partial byte) and returns how many bits were actually
// read; fewer than bitSize only at end of input.
func (b *Buffer) ReadBits(out []byte, bitSize int) (int, error) {
	if b.Mode() != filebuffer.Reading {
		return 0, errs.New(errs.InvalidMode, "ReadBits is only valid in reading mode")
	}
	fullBytes := bitSize / maxUsedBits
	remaining := uint8(bitSize % maxUsedBits)
	for i := 0; i < fullBytes; i++ {
		read, err := b.readBitwise(&out[i], maxUsedBits)
		if err != nil {
			return 0, err
		}
		if read != maxUsedBits {
			out[i] <<= maxUsedBits - read
			return i*maxUsedBits + int(read), nil
		}
	}
	if remaining > 0 {
		var tmp uint8
		read, err := b.readBitwise(&tmp, remaining)
		if err != nil {
			return 0, err
		}
		if read != remaining {
			return fullBytes*maxUsedBits + int(read), nil
		}
		out[fullBytes] = tmp << (maxUsedBits - remaining)
	}
	return bitSize, nil
}

// WriteBits writes bitSize bits from in (MSB-first packed, left-aligned
// within the final partial byte) and returns how many bits were actually
// written.
func (b *Buffer) WriteBits(in []byte, bitSize int) (int, error) {
	if b.Mode() != filebuffer.Writing {
		return 0, errs.New(errs.InvalidMode, "WriteBits is only valid in writing mode")
	}
	fullBytes := bitSize / maxUsedBits
	remaining := uint8(bitSize % maxUsedBits)
	for i := 0; i < fullBytes; i++ {
		written, err := b.writeBitwise(in[i], maxUsedBits)
		if err != nil {
			return 0, err
		}
		if written != maxUsedBits {
			return i*maxUsedBits + int(written), nil
		}
	}
	if remaining > 0 {
		tmp := in[fullBytes] >> (maxUsedBits - remaining)
		written, err := b.writeBitwise(tmp, remaining)
		if err != nil {
			return 0, err
		}
		if written != remaining {
			return fullBytes * maxUsedBits, nil
		}
	}
	return bitSize, nil
}

// ReadValue reads a valueBitSize-wide unsigned value (MSB-first) into a
// uint64, returning the number of bits actually consumed.
func (b *Buffer) ReadValue(valueBitSize int) (uint64, int, error) {
	if valueBitSize > maxValueBits {
		return 0, 0, errs.New(errs.InvalidValue, "value width %d exceeds %d bits", valueBitSize, maxValueBits)
	}
	byteLen := (valueBitSize + 7) / 8
	bytes := make([]byte, 8)
	read, err := b.ReadBits(bytes[:byteLen], valueBitSize)
	if err != nil {
		return 0, 0, err
	}
	if read != valueBitSize {
		return 0, read, nil
	}
	var value uint64
	for i := 0; i < byteLen; i++ {
		value |= uint64(bytes[i]) << (maxValueBits - 8 - 8*i)
	}
	value >>= maxValueBits - valueBitSize
	return value, valueBitSize, nil
}

// WriteValue writes the low valueBitSize bits of value (MSB-first).
func (b *Buffer) WriteValue(value uint64, valueBitSize int) (int, error) {
	if valueBitSize > maxValueBits {
		return 0, errs.New(errs.InvalidValue, "value width %d exceeds %d bits", valueBitSize, maxValueBits)
	}
	if valueBitSize == 0 {
		return 0, nil
	}
	shifted := value << (maxValueBits - valueBitSize)
	byteLen := (valueBitSize + 7) / 8
	bytes := make([]byte, byteLen)
	bytes[0] = byte(shifted >> (maxValueBits - 8))
	for i := 1; i < byteLen; i++ {
		mask := (uint64(1) << (maxValueBits - 8*i)) - 1
		bytes[i] = byte((shifted & mask) >> (maxValueBits - 8 - 8*i))
	}
	return b.WriteBits(bytes, valueBitSize)
}

// Flush writes out a completed byte of the residual register, if any,
// then forces the underlying file buffer's pending writes out to its
// sink. It never zero-pads a fractional byte; that only happens at
// Close. Like filebuffer.Flush, this is an error for a memory-backed
// buffer: there is no sink to force data out to before teardown.
func (b *Buffer) Flush() error {
	if b.Mode() != filebuffer.Writing {
		return errs.New(errs.InvalidMode, "Flush is only valid in writing mode")
	}
	if err := b.writePendingByte(false); err != nil {
		return err
	}
	return b.fb.Flush()
}

// writePendingByte pushes the residual register's current byte into the
// underlying file buffer's window, zero-padding it first when pad is
// true. It does not talk to the buffer's sink; that is Flush/Close's job.
func (b *Buffer) writePendingByte(pad bool) error {
	if b.usedBits == 0 || (!pad && b.usedBits != maxUsedBits) {
		return nil
	}
	var full [1]byte
	full[0] = b.byteBuffer
	n, err := b.fb.Write(full[:])
	if err != nil {
		return err
	}
	if n != 1 {
		return errs.New(errs.FileIO, "short write flushing bit buffer")
	}
	b.usedBits = 0
	return nil
}

// Close zero-pads any fractional trailing byte into the underlying file
// buffer, then tears it down: a real flush and release for a file-backed
// buffer, a no-op for a memory-backed one (there's nothing to release).
// Only meaningful in writing mode.
func (b *Buffer) Close() error {
	if b.Mode() == filebuffer.Writing {
		if err := b.writePendingByte(true); err != nil {
			return err
		}
	}
	return b.fb.Close()
}
