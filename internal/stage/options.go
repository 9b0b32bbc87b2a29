package stage

import (
	"sort"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

// Mask identifies the set of options a stage accepts, mirroring the
// original's bitmask option_t enum.
type Mask uint32

const (
	NoOptions Mask = 0

	OptBlockSizeBits Mask = 1 << iota
	OptValueSizeBits
	OptAdaptive
	OptColumn
	OptSeparatorChar
	OptNormalizationFactor
	OptNumDecimalPlaces
	OptNumValues
)

// ValueType is the tagged-union discriminant for an option's value. This
// replaces the original's struct-offset/type-pun option access: instead
// of reaching into options_t at a byte offset, each option description
// carries typed Get/Set closures over a concrete Go field.
type ValueType int

const (
	TypeInvalid ValueType = iota
	TypeBool
	TypeSize
	TypeFloat
	TypeChar
)

// Options holds every stage's tunable parameters. Stages read only the
// fields relevant to them; DefaultOptions seeds every field with the
// original library's compiled-in defaults.
type Options struct {
	BlockSizeBits       uint64
	ValueSizeBits       uint64
	Adaptive            bool
	Column              uint64
	SeparatorChar       byte
	NumDecimalPlaces    uint64
	NormalizationFactor float64
	NumValues           uint64
}

// DefaultOptions returns a fresh Options populated with the original
// library's SetDefaultOptions values.
func DefaultOptions() Options {
	return Options{
		BlockSizeBits:       8,
		ValueSizeBits:       32,
		Adaptive:            false,
		Column:              1,
		SeparatorChar:       ',',
		NumDecimalPlaces:    2,
		NormalizationFactor: 100,
		NumValues:           2,
	}
}

// OptionDescription documents one named, settable option: its mask bit,
// value type, optional size range, and typed accessors.
type OptionDescription struct {
	Name        string
	Mask        Mask
	Description string
	Type        ValueType
	Min, Max    uint64 // only meaningful when Type == TypeSize

	GetBool  func(*Options) bool
	SetBool  func(*Options, bool)
	GetSize  func(*Options) uint64
	SetSize  func(*Options, uint64) error
	GetFloat func(*Options) float64
	SetFloat func(*Options, float64)
	GetChar  func(*Options) byte
	SetChar  func(*Options, byte)
}

// optionDescriptions must stay sorted by Name; FindOption binary-searches it.
var optionDescriptions = []OptionDescription{
	{
		Name: "adaptive", Mask: OptAdaptive,
		Description: "Perform adaptive arithmetic coding", Type: TypeBool,
		GetBool: func(o *Options) bool { return o.Adaptive },
		SetBool: func(o *Options, v bool) { o.Adaptive = v },
	},
	{
		Name: "blocksize", Mask: OptBlockSizeBits,
		Description: "Use blocks of <n> bits size for I/O", Type: TypeSize,
		Min: 1, Max: ^uint64(0),
		GetSize: func(o *Options) uint64 { return o.BlockSizeBits },
		SetSize: func(o *Options, v uint64) error { o.BlockSizeBits = v; return nil },
	},
	{
		Name: "column", Mask: OptColumn,
		Description: "Use column <n>", Type: TypeSize,
		Min: 1, Max: ^uint64(0),
		GetSize: func(o *Options) uint64 { return o.Column },
		SetSize: func(o *Options, v uint64) error { o.Column = v; return nil },
	},
	{
		Name: "normalization_factor", Mask: OptNormalizationFactor,
		Description: "Use multiplier <n> for normalization and <1/n> for denormalization", Type: TypeFloat,
		GetFloat: func(o *Options) float64 { return o.NormalizationFactor },
		SetFloat: func(o *Options, v float64) { o.NormalizationFactor = v },
	},
	{
		Name: "num_decimal_places", Mask: OptNumDecimalPlaces,
		Description: "Use <n> decimal places to print floats into CSV files", Type: TypeSize,
		Min: 0, Max: 6,
		GetSize: func(o *Options) uint64 { return o.NumDecimalPlaces },
		SetSize: func(o *Options, v uint64) error { o.NumDecimalPlaces = v; return nil },
	},
	{
		Name: "num_values", Mask: OptNumValues,
		Description: "Use <n> values for aggregation", Type: TypeSize,
		Min: 0, Max: ^uint64(0),
		GetSize: func(o *Options) uint64 { return o.NumValues },
		SetSize: func(o *Options, v uint64) error { o.NumValues = v; return nil },
	},
	{
		Name: "separator_char", Mask: OptSeparatorChar,
		Description: "Use <n> as CSV entry separator", Type: TypeChar,
		GetChar: func(o *Options) byte { return o.SeparatorChar },
		SetChar: func(o *Options, v byte) { o.SeparatorChar = v },
	},
	{
		Name: "valuesize", Mask: OptValueSizeBits,
		Description: "Use values of <n> bits size", Type: TypeSize,
		Min: 1, Max: 64,
		GetSize: func(o *Options) uint64 { return o.ValueSizeBits },
		SetSize: func(o *Options, v uint64) error { o.ValueSizeBits = v; return nil },
	},
}

func init() {
	if !sort.SliceIsSorted(optionDescriptions, func(i, j int) bool {
		return optionDescriptions[i].Name < optionDescriptions[j].Name
	}) {
		panic("stage: optionDescriptions must be sorted by Name")
	}
}

// FindOption looks up an option description by exact name.
func FindOption(name string) (*OptionDescription, bool) {
	i := sort.Search(len(optionDescriptions), func(i int) bool {
		return optionDescriptions[i].Name >= name
	})
	if i < len(optionDescriptions) && optionDescriptions[i].Name == name {
		return &optionDescriptions[i], true
	}
	return nil, false
}

// OptionNames returns every known option name, in registry order.
func OptionNames() []string {
	names := make([]string, len(optionDescriptions))
	for i, d := range optionDescriptions {
		names[i] = d.Name
	}
	return names
}

// SetOption parses raw (always a string, since it arrives from the CLI or
// a YAML preset) according to the option's declared type and applies it.
func SetOption(opts *Options, name string, raw string) error {
	desc, ok := FindOption(name)
	if !ok {
		return errs.New(errs.InvalidFormat, "unknown option %q", name)
	}
	switch desc.Type {
	case TypeBool:
		v, err := parseBool(raw)
		if err != nil {
			return errs.Wrap(errs.InvalidFormat, err, "option %q expects a boolean", name)
		}
		desc.SetBool(opts, v)
	case TypeSize:
		v, err := parseSize(raw)
		if err != nil {
			return errs.Wrap(errs.InvalidFormat, err, "option %q expects an integer", name)
		}
		if v < desc.Min || v > desc.Max {
			return errs.New(errs.InvalidValue, "option %q value %d out of range [%d,%d]", name, v, desc.Min, desc.Max)
		}
		return desc.SetSize(opts, v)
	case TypeFloat:
		v, err := parseFloat(raw)
		if err != nil {
			return errs.Wrap(errs.InvalidFormat, err, "option %q expects a float", name)
		}
		desc.SetFloat(opts, v)
	case TypeChar:
		if len(raw) != 1 {
			return errs.New(errs.InvalidFormat, "option %q expects a single character", name)
		}
		desc.SetChar(opts, raw[0])
	default:
		return errs.New(errs.InvalidFormat, "option %q has no known type", name)
	}
	return nil
}
