package stage

import (
	"math"
	"strconv"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
)

const charBits = 8

// ReadCSV parses CSV text from in, one character at a time, and emits the
// float32 value of the configured column as a float32-bit-packed value
// per row. End-of-stream mid-field is handled per the column rule: a
// non-empty accumulator for the target column is parsed and emitted, an
// empty one is discarded.
func ReadCSV(in, out *bitbuffer.Buffer, opts *Options) error {
	column := uint64(1)
	var field []byte
	var buf [1]byte
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		if err := checkedReadBits(in, buf[:], charBits); err != nil {
			return err
		}
		c := buf[0]

		nowAtEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		endOfRecord := c == opts.SeparatorChar || c == '\n' || nowAtEnd

		if endOfRecord {
			if nowAtEnd && column == opts.Column && c != opts.SeparatorChar && c != '\n' {
				field = append(field, c)
			}
			if column == opts.Column && len(field) > 0 {
				value, _ := strconv.ParseFloat(string(field), 32)
				var out32 [4]byte
				putLeUint32(out32[:], math.Float32bits(float32(value)))
				if err := checkedWriteBits(out, out32[:], float32Bits); err != nil {
					return err
				}
				field = field[:0]
			}
			column++
		} else if column == opts.Column {
			field = append(field, c)
		}
		if c == '\n' {
			column = 1
		}
	}
	return nil
}

// WriteCSV reads float32 values from in and writes them as CSV text,
// padding empty columns before the configured column and appending a
// trailing newline after each value.
func WriteCSV(in, out *bitbuffer.Buffer, opts *Options) error {
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		var buf [4]byte
		if err := checkedReadBits(in, buf[:], float32Bits); err != nil {
			return err
		}
		value := float64(math.Float32frombits(leUint32(buf[:])))

		for i := uint64(1); i < opts.Column; i++ {
			if err := checkedWriteBits(out, []byte{opts.SeparatorChar}, charBits); err != nil {
				return err
			}
		}
		text := strconv.FormatFloat(value, 'f', int(opts.NumDecimalPlaces), 32) + "\n"
		if err := checkedWriteBits(out, []byte(text), 8*len(text)); err != nil {
			return err
		}
	}
	return nil
}
