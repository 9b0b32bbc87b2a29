// Package stage implements the encoder/decoder stage registry and every
// concrete stage (copy, differential, normalize, csv, aggregate, seg, bac,
// lzmh).
package stage

import (
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
)

// Func is the signature every stage encoder/decoder implements: drain in
// to exhaustion, writing transformed output to out.
type Func func(in, out *bitbuffer.Buffer, opts *Options) error

// Entry describes one registered stage: its name, a human-readable
// description, its encoder and/or decoder (nil when the direction is
// unsupported, e.g. aggregate has no decoder), and the option mask it
// accepts.
type Entry struct {
	Name             string
	Description      string
	Encoder          Func
	Decoder          Func
	SupportedOptions Mask
}

// SupportsOption reports whether this stage accepts the named option.
func (e *Entry) SupportsOption(name string) bool {
	desc, ok := FindOption(name)
	if !ok {
		return false
	}
	return e.SupportedOptions&desc.Mask != 0
}
