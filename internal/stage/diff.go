package stage

import (
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

// EncodeDifferential writes out each value minus the one before it
// (0 for the first value), rejecting any difference that would overflow
// value_size_bits.
func EncodeDifferential(in, out *bitbuffer.Buffer, opts *Options) error {
	valueBits := int(opts.ValueSizeBits)
	var last int64
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
		diff := value - last
		if !inRange(diff, valueBits) {
			return errs.New(errs.InvalidValue, "differential value %d does not fit in %d bits", diff, valueBits)
		}
		if err := checkedWriteValue(out, maskToBits(diff, valueBits), valueBits); err != nil {
			return err
		}
		last = value
	}
	return nil
}

// DecodeDifferential reconstructs the running sum EncodeDifferential
// produced.
func DecodeDifferential(in, out *bitbuffer.Buffer, opts *Options) error {
	valueBits := int(opts.ValueSizeBits)
	var last int64
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
		diff := signExtend(raw, valueBits)
		value := diff + last
		if err := checkedWriteValue(out, maskToBits(value, valueBits), valueBits); err != nil {
			return err
		}
		last = value
	}
	return nil
}
