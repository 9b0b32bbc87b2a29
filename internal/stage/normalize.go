package stage

import (
	"encoding/binary"
	"math"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

const float32Bits = 32

// Normalize reads IEEE-754 float32 values and quantizes each into a
// value_size_bits-wide signed integer by multiplying by
// normalization_factor and rounding away from zero.
func Normalize(in, out *bitbuffer.Buffer, opts *Options) error {
	valueBits := int(opts.ValueSizeBits)
	var buf [4]byte
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		if err := checkedReadBits(in, buf[:], float32Bits); err != nil {
			return err
		}
		value := math.Float32frombits(leUint32(buf[:]))
		var scaled float32
		switch {
		case value > 0:
			scaled = value*float32(opts.NormalizationFactor) + 0.5
		case value < 0:
			scaled = value*float32(opts.NormalizationFactor) - 0.5
		}
		lo := -float32(uint64(1) << (valueBits - 1))
		hi := float32((uint64(1) << (valueBits - 1)) - 1)
		if scaled < lo || scaled > hi {
			return errs.New(errs.InvalidValue, "normalized value %v does not fit in %d bits", scaled, valueBits)
		}
		normalized := int64(scaled)
		if err := checkedWriteValue(out, maskToBits(normalized, valueBits), valueBits); err != nil {
			return err
		}
	}
	return nil
}

// Denormalize reverses Normalize: it reads a value_size_bits-wide signed
// integer and divides by normalization_factor to recover a float32.
func Denormalize(in, out *bitbuffer.Buffer, opts *Options) error {
	valueBits := int(opts.ValueSizeBits)
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		raw, err := checkedReadValue(in, valueBits)
		if err != nil {
			return err
		}
		normalized := signExtend(raw, valueBits)
		denormalized := float32(normalized) / float32(opts.NormalizationFactor)
		var buf [4]byte
		putLeUint32(buf[:], math.Float32bits(denormalized))
		if err := checkedWriteBits(out, buf[:], float32Bits); err != nil {
			return err
		}
	}
	return nil
}

// leUint32/putLeUint32 pack float32 bit patterns on the wire the way the
// host this was ported from lays them out in memory: little-endian, matching
// binary.LittleEndian (wrapped here rather than called inline at every call
// site across normalize.go/csv.go/aggregate.go).
func leUint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func putLeUint32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}
