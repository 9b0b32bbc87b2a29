package stage

import (
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

// checkedReadBits reads exactly bitSize bits, converting a short read into
// a LibraryCall error, mirroring READ_BITS_CHECKED.
func checkedReadBits(in *bitbuffer.Buffer, out []byte, bitSize int) error {
	n, err := in.ReadBits(out, bitSize)
	if err != nil {
		return errs.Wrap(errs.LibraryCall, err, "reading %d bits", bitSize)
	}
	if n != bitSize {
		return errs.New(errs.LibraryCall, "only read %d bits instead of %d", n, bitSize)
	}
	return nil
}

// checkedWriteBits writes exactly bitSize bits, converting a short write
// into a LibraryCall error, mirroring WRITE_BITS_CHECKED.
func checkedWriteBits(out *bitbuffer.Buffer, in []byte, bitSize int) error {
	n, err := out.WriteBits(in, bitSize)
	if err != nil {
		return errs.Wrap(errs.LibraryCall, err, "writing %d bits", bitSize)
	}
	if n != bitSize {
		return errs.New(errs.LibraryCall, "only wrote %d bits instead of %d", n, bitSize)
	}
	return nil
}

// checkedReadValue reads a bitSize-wide unsigned value, mirroring
// READ_VALUE_BITS_CHECKED.
func checkedReadValue(in *bitbuffer.Buffer, bitSize int) (uint64, error) {
	v, n, err := in.ReadValue(bitSize)
	if err != nil {
		return 0, errs.Wrap(errs.LibraryCall, err, "reading a %d-bit value", bitSize)
	}
	if n != bitSize {
		return 0, errs.New(errs.LibraryCall, "only read %d bits instead of %d", n, bitSize)
	}
	return v, nil
}

// checkedWriteValue writes a bitSize-wide unsigned value, mirroring
// WRITE_VALUE_BITS_CHECKED.
func checkedWriteValue(out *bitbuffer.Buffer, value uint64, bitSize int) error {
	n, err := out.WriteValue(value, bitSize)
	if err != nil {
		return errs.Wrap(errs.LibraryCall, err, "writing a %d-bit value", bitSize)
	}
	if n != bitSize {
		return errs.New(errs.LibraryCall, "only wrote %d bits instead of %d", n, bitSize)
	}
	return nil
}

// signExtend sign-extends the low valueBits bits of v (an unsigned
// bitSize-wide quantity) into a full int64, mirroring EXTEND_IO_INT_SIGN.
func signExtend(v uint64, valueBits int) int64 {
	if valueBits >= 64 {
		return int64(v)
	}
	shift := uint(64 - valueBits)
	return int64(v<<shift) >> shift
}

// inRange reports whether signed fits in valueBits bits (two's complement).
func inRange(signed int64, valueBits int) bool {
	if valueBits >= 64 {
		return true
	}
	lo := -(int64(1) << (valueBits - 1))
	hi := (int64(1) << (valueBits - 1)) - 1
	return signed >= lo && signed <= hi
}

// maskToBits returns the low valueBits bits of signed as an unsigned value
// suitable for checkedWriteValue.
func maskToBits(signed int64, valueBits int) uint64 {
	if valueBits >= 64 {
		return uint64(signed)
	}
	return uint64(signed) & ((uint64(1) << valueBits) - 1)
}
