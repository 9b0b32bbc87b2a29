// Package cli implements the positional stage-chain grammar, mirroring
// DCCLI/src/params.c's ProcessParameters/ProcessEncoder/ParseOptions,
// plus the cobra-based entry point and YAML preset loader that wrap it.
package cli

import (
	"strings"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/pipeline"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/stage"
)

// MaxStages bounds how many "#"-chained encoders/decoders one invocation
// may request, mirroring params.h's MAX_OPTIONS.
const MaxStages = 16

// ParsedCommand is the fully parsed <in> <out> <stage-chain> grammar.
type ParsedCommand struct {
	InputPath  string
	OutputPath string
	Steps      []pipeline.Step
}

func direction(encode bool) string {
	if encode {
		return "encoder"
	}
	return "decoder"
}

// splitOption splits "name=value" into its name and value, reporting
// whether an "=" was present at all (bare boolean options omit it).
func splitOption(token string) (name, value string, hasValue bool) {
	if idx := strings.IndexByte(token, '='); idx >= 0 {
		return token[:idx], token[idx+1:], true
	}
	return token, "", false
}

// ParseArgs parses the stage-chain grammar:
//
//	<in|-> <out|-> (encode|decode) <stage> [opt[=val]...] [# (encode|decode) <stage> [opt...]]*
//
// Every stage starts from stage.DefaultOptions(). Use ParseArgsWithDefaults
// to seed a stage's starting point from config-file values instead.
func ParseArgs(args []string) (*ParsedCommand, error) {
	return ParseArgsWithDefaults(args, func(string) stage.Options { return stage.DefaultOptions() })
}

// ParseArgsWithDefaults parses the stage-chain grammar like ParseArgs, but
// calls baseOptions(stageName) to obtain each stage's starting option set
// instead of always using the compiled-in defaults -- this is how
// $HOME/.dcomprc.yaml-sourced values act as a middle tier between
// compiled-in defaults and options given explicitly on the command line,
// which are always applied last and so always win.
func ParseArgsWithDefaults(args []string, baseOptions func(stageName string) stage.Options) (*ParsedCommand, error) {
	if len(args) < 4 {
		return nil, errs.New(errs.InvalidFormat,
			"usage: <in|-> <out|-> encode|decode <stage> [opt[=val]...] [# encode|decode <stage> [opt...]]*")
	}

	cmd := &ParsedCommand{InputPath: args[0], OutputPath: args[1]}
	rest := args[2:]

	for len(rest) > 0 {
		if len(cmd.Steps) >= MaxStages {
			return nil, errs.New(errs.Memory, "the number of encoders/decoders to be used at once is limited to %d", MaxStages)
		}
		if len(rest) < 2 {
			return nil, errs.New(errs.InvalidFormat, "expected a mode (encode/decode) and a stage name")
		}

		var encode bool
		switch rest[0] {
		case "encode":
			encode = true
		case "decode":
			encode = false
		default:
			return nil, errs.New(errs.InvalidValue, "unrecognized mode %q - only \"encode\" and \"decode\" are supported", rest[0])
		}

		stageName := rest[1]
		entry, ok := stage.Find(stageName)
		if !ok {
			return nil, errs.New(errs.InvalidValue, "unknown %s %q. Supported stages: %s", direction(encode), stageName, strings.Join(stage.Names(), ", "))
		}
		fn := entry.Decoder
		if encode {
			fn = entry.Encoder
		}
		if fn == nil {
			return nil, errs.New(errs.InvalidMode, "%q is not supported as an %s", stageName, direction(encode))
		}

		opts := baseOptions(stageName)
		rest = rest[2:]
		for len(rest) > 0 && rest[0] != "#" {
			name, value, hasValue := splitOption(rest[0])
			desc, ok := stage.FindOption(name)
			if !ok {
				return nil, errs.New(errs.InvalidValue, "unknown option %q. Supported options: %s", name, strings.Join(stage.OptionNames(), ", "))
			}
			if !entry.SupportsOption(name) {
				return nil, errs.New(errs.InvalidMode, "stage %q does not support option %q", stageName, name)
			}
			if desc.Type == stage.TypeBool {
				if hasValue {
					return nil, errs.New(errs.InvalidFormat, "option %q is boolean; omit the \"=\" to enable it", name)
				}
				value = "true"
			} else if !hasValue {
				return nil, errs.New(errs.InvalidFormat, "expected a value for option %q", name)
			}
			if err := stage.SetOption(&opts, name, value); err != nil {
				return nil, err
			}
			rest = rest[1:]
		}
		if len(rest) > 0 && rest[0] == "#" {
			rest = rest[1:]
			if len(rest) == 0 {
				return nil, errs.New(errs.InvalidFormat, "expected another stage after \"#\"")
			}
		}

		cmd.Steps = append(cmd.Steps, pipeline.Step{Name: stageName, Encode: encode, Options: &opts})
	}

	return cmd, nil
}
