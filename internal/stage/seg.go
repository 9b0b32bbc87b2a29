package stage

import (
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

// encodeUEG writes value as an unsigned exponential-Golomb codeword:
// prefixLength zero bits, then a 1-bit delimiter followed by the
// prefixLength-bit residual, all packed as a single (1+prefixLength)-bit
// write of value+1.
func encodeUEG(value uint64, out *bitbuffer.Buffer) error {
	valuePlusOne := value + 1
	prefixLength := 0
	for v := valuePlusOne >> 1; v != 0; v >>= 1 {
		prefixLength++
	}
	if err := checkedWriteValue(out, 0, prefixLength); err != nil {
		return err
	}
	return checkedWriteValue(out, valuePlusOne, 1+prefixLength)
}

// encodeSEGCodeword maps a signed value to its zigzag-like unsigned
// residual (odd codewords are positive, even codewords are
// non-positive) and writes it as a UEG codeword.
func encodeSEGCodeword(value int64, out *bitbuffer.Buffer) error {
	abs := value
	if abs < 0 {
		abs = -abs
	}
	if value > 0 {
		return encodeUEG(2*uint64(abs)-1, out)
	}
	return encodeUEG(2*uint64(abs), out)
}

// EncodeSEG signed-exponential-Golomb codes every value_size_bits-wide
// value from in.
func EncodeSEG(in, out *bitbuffer.Buffer, opts *Options) error {
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
		value := signExtend(raw, valueBits)
		if err := encodeSEGCodeword(value, out); err != nil {
			return err
		}
	}
	return nil
}

// decodeUEG reads one UEG codeword, returning eos=true if the input ran
// out partway through a prefix (a clean end of stream, not an error).
// maxValueBits bounds the prefix length to guard against a corrupt
// stream running forever.
func decodeUEG(maxValueBits int, in *bitbuffer.Buffer) (value uint64, eos bool, err error) {
	prefixLength := 0
	currentBit := uint64(0)
	for {
		atEnd, aerr := in.AtEnd()
		if aerr != nil {
			return 0, false, aerr
		}
		if currentBit != 0 || atEnd {
			break
		}
		currentBit, err = checkedReadValue(in, 1)
		if err != nil {
			return 0, false, err
		}
		if currentBit == 0 {
			prefixLength++
		}
		if prefixLength >= maxValueBits {
			return 0, false, errs.New(errs.InvalidFormat, "exponential-Golomb prefix longer than %d bits", maxValueBits)
		}
	}
	atEnd, aerr := in.AtEnd()
	if aerr != nil {
		return 0, false, aerr
	}
	if atEnd && prefixLength != 0 {
		return 0, true, nil
	}
	residual, err := checkedReadValue(in, prefixLength)
	if err != nil {
		return 0, false, err
	}
	value = residual | (uint64(1) << prefixLength)
	value--
	return value, false, nil
}

// decodeSEGCodeword reads a signed-exponential-Golomb codeword. Codewords
// are one bit longer than the corresponding UEG codeword since the sign
// is folded into the zigzag mapping.
func decodeSEGCodeword(maxValueBits int, in *bitbuffer.Buffer) (value int64, eos bool, err error) {
	limit := maxValueBits + 1
	if limit > 64 {
		limit = 64
	}
	absValue, eos, err := decodeUEG(limit, in)
	if err != nil || eos {
		return 0, eos, err
	}
	v := int64((absValue + 1) / 2)
	if absValue&1 == 0 {
		v = -v
	}
	return v, false, nil
}

// DecodeSEG reverses EncodeSEG, stopping cleanly at end of stream.
func DecodeSEG(in, out *bitbuffer.Buffer, opts *Options) error {
	valueBits := int(opts.ValueSizeBits)
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		value, eos, err := decodeSEGCodeword(valueBits, in)
		if err != nil {
			return err
		}
		if eos {
			break
		}
		if err := checkedWriteValue(out, maskToBits(value, valueBits), valueBits); err != nil {
			return err
		}
	}
	return nil
}
