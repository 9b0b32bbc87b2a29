package cli

import (
	"os"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/pipeline"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/stage"
	"gopkg.in/yaml.v3"
)

// Preset is the YAML schema for a saved, ordered list of stage specs, so a
// long "#"-chained command line can be written once and replayed with
// --preset instead of retyped on every invocation.
type Preset struct {
	Stages []PresetStage `yaml:"stages"`
}

// PresetStage names one stage, its direction, and its option overrides.
type PresetStage struct {
	Name    string            `yaml:"name"`
	Mode    string            `yaml:"mode"` // "encode" or "decode"
	Options map[string]string `yaml:"options"`
}

// LoadPreset reads and parses a YAML preset file into pipeline steps.
// Each option must be supported by its stage and is parsed and
// range-checked by stage.SetOption, as in ParseArgs; unlike ParseArgs, an
// unknown option name is reported as unsupported (InvalidMode), and a
// boolean option takes an explicit value such as "true".
func LoadPreset(path string) ([]pipeline.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.FileIO, err, "reading preset %q", path)
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, errs.Wrap(errs.InvalidFormat, err, "parsing preset %q", path)
	}
	if len(preset.Stages) == 0 {
		return nil, errs.New(errs.InvalidFormat, "preset %q defines no stages", path)
	}
	if len(preset.Stages) > MaxStages {
		return nil, errs.New(errs.Memory, "preset %q names %d stages, the limit is %d", path, len(preset.Stages), MaxStages)
	}

	steps := make([]pipeline.Step, 0, len(preset.Stages))
	for _, ps := range preset.Stages {
		var encode bool
		switch ps.Mode {
		case "encode":
			encode = true
		case "decode":
			encode = false
		default:
			return nil, errs.New(errs.InvalidValue, "preset %q: unrecognized mode %q for stage %q", path, ps.Mode, ps.Name)
		}

		entry, ok := stage.Find(ps.Name)
		if !ok {
			return nil, errs.New(errs.InvalidValue, "preset %q: unknown stage %q", path, ps.Name)
		}
		fn := entry.Decoder
		if encode {
			fn = entry.Encoder
		}
		if fn == nil {
			return nil, errs.New(errs.InvalidMode, "preset %q: %q is not supported as an %s", path, ps.Name, direction(encode))
		}

		opts := stage.DefaultOptions()
		for name, value := range ps.Options {
			if !entry.SupportsOption(name) {
				return nil, errs.New(errs.InvalidMode, "preset %q: stage %q does not support option %q", path, ps.Name, name)
			}
			if err := stage.SetOption(&opts, name, value); err != nil {
				return nil, err
			}
		}

		steps = append(steps, pipeline.Step{Name: ps.Name, Encode: encode, Options: &opts})
	}

	return steps, nil
}
