package stage

import (
	"math"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
)

// Aggregate sums num_values consecutive float32 values into one float32,
// stopping a group early if input runs out. It has no inverse: summation
// is lossy, matching the original's decoder-less registration.
func Aggregate(in, out *bitbuffer.Buffer, opts *Options) error {
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		var sum float32
		for i := uint64(0); i < opts.NumValues; i++ {
			var buf [4]byte
			if err := checkedReadBits(in, buf[:], float32Bits); err != nil {
				return err
			}
			sum += math.Float32frombits(leUint32(buf[:]))
			atEnd, err := in.AtEnd()
			if err != nil {
				return err
			}
			if atEnd {
				break
			}
		}
		var buf [4]byte
		putLeUint32(buf[:], math.Float32bits(sum))
		if err := checkedWriteBits(out, buf[:], float32Bits); err != nil {
			return err
		}
	}
	return nil
}
