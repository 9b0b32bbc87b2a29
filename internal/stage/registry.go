package stage

import "sort"

// registry must stay sorted by Name; Find binary-searches it, mirroring
// the original's bsearch over encoders_decoders[].
var registry = []Entry{
	{
		Name: "aggregate", Description: "Sums up values",
		Encoder: Aggregate, Decoder: nil,
		SupportedOptions: OptNumValues,
	},
	{
		Name: "bac", Description: "Binary arithmetic coding",
		Encoder: EncodeBAC, Decoder: DecodeBAC,
		SupportedOptions: OptAdaptive,
	},
	{
		Name: "copy", Description: "Copies input to output",
		Encoder: Copy, Decoder: Copy,
		SupportedOptions: OptBlockSizeBits,
	},
	{
		Name: "csv", Description: "Comma-separated values",
		Encoder: ReadCSV, Decoder: WriteCSV,
		SupportedOptions: OptColumn | OptSeparatorChar | OptNumDecimalPlaces,
	},
	{
		Name: "diff", Description: "Differential coding",
		Encoder: EncodeDifferential, Decoder: DecodeDifferential,
		SupportedOptions: OptValueSizeBits,
	},
	{
		Name: "lzmh", Description: "LZMH coding",
		Encoder: EncodeLZMH, Decoder: DecodeLZMH,
		SupportedOptions: NoOptions,
	},
	{
		Name: "normalize", Description: "(De-)normalization",
		Encoder: Normalize, Decoder: Denormalize,
		SupportedOptions: OptNormalizationFactor | OptValueSizeBits,
	},
	{
		Name: "seg", Description: "Signed Exponential Golomb coding",
		Encoder: EncodeSEG, Decoder: DecodeSEG,
		SupportedOptions: OptValueSizeBits,
	},
}

func init() {
	if !sort.SliceIsSorted(registry, func(i, j int) bool { return registry[i].Name < registry[j].Name }) {
		panic("stage: registry must be sorted by Name")
	}
}

// Find looks up a stage by exact name.
func Find(name string) (*Entry, bool) {
	i := sort.Search(len(registry), func(i int) bool { return registry[i].Name >= name })
	if i < len(registry) && registry[i].Name == name {
		return &registry[i], true
	}
	return nil, false
}

// Names returns every registered stage name, in registry order.
func Names() []string {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.Name
	}
	return names
}
