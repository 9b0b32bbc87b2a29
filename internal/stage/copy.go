package stage

import "github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"

// Copy passes every block_size_bits-wide block from in to out unchanged.
// It is its own inverse, so the registry uses it for both directions.
func Copy(in, out *bitbuffer.Buffer, opts *Options) error {
	numBits := int(opts.BlockSizeBits)
	numBytes := (numBits + 7) / 8
	buf := make([]byte, numBytes)
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		if err := checkedReadBits(in, buf, numBits); err != nil {
			return err
		}
		if err := checkedWriteBits(out, buf, numBits); err != nil {
			return err
		}
	}
	return nil
}
