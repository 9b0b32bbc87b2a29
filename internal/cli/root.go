package cli

import (
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/pipeline"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/stage"
)

// openStream maps a path to an *os.File, treating "-" as stdin/stdout
// unconditionally -- unlike the original CLI, which left this branch as
// dead code for output paths by always falling through to fopen().
func openStream(path string, writing bool) (*os.File, func() error, error) {
	if path == "-" {
		if writing {
			return os.Stdout, func() error { return nil }, nil
		}
		return os.Stdin, func() error { return nil }, nil
	}
	if writing {
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, errs.Wrap(errs.FileIO, err, "opening output %q", path)
		}
		return f, f.Close, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.FileIO, err, "opening input %q", path)
	}
	return f, f.Close, nil
}

// configDefaultOptions builds a stage's starting option set from
// $HOME/.dcomprc.yaml (via viper, under stages.<name>.<option>), falling
// back to the compiled-in defaults for anything the config doesn't set.
// Options given explicitly on the command line are applied on top of this
// afterward, so they always win. A --preset does not use these config
// values: LoadPreset starts each stage from the compiled-in defaults.
func configDefaultOptions(stageName string) stage.Options {
	opts := stage.DefaultOptions()
	prefix := "stages." + stageName + "."
	for _, name := range stage.OptionNames() {
		key := prefix + name
		if !viper.IsSet(key) {
			continue
		}
		raw := viper.GetString(key)
		if err := stage.SetOption(&opts, name, raw); err != nil {
			log.Warn("ignoring invalid config-file option", "stage", stageName, "option", name, "value", raw, "error", err)
		}
	}
	return opts
}

func newRunID() string {
	return uuid.NewString()
}

// NewRootCmd builds the data-compressor cobra command: a single command
// (no subcommands) whose positional arguments are the stage-chain grammar
// from ParseArgs, optionally replaced wholesale by a --preset file.
func NewRootCmd() *cobra.Command {
	var (
		presetPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "dcompr <in|-> <out|-> encode|decode <stage> [opt[=val]...] [# encode|decode <stage> [opt...]]*",
		Short: "A pipelined data compression toolkit",
		Long: `Runs one or more registered compression/coding stages in sequence over
an input stream and writes the result to an output stream. Stages are
chained with "#" and each may take its own options.`,
		Example: heredoc.Doc(`
			$ dcompr in.bin out.bin encode copy
			$ dcompr in.bin out.bin encode diff valuesize=16 # encode seg valuesize=16
			$ dcompr - - decode lzmh
			$ dcompr in.bin out.bin --preset pipeline.yaml
		`),
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			logger := log.With("run", newRunID())

			var steps []pipeline.Step
			var inputPath, outputPath string

			if presetPath != "" {
				if len(args) < 2 {
					return errs.New(errs.InvalidFormat, "--preset requires <in> <out> positional arguments")
				}
				inputPath, outputPath = args[0], args[1]
				s, err := LoadPreset(presetPath)
				if err != nil {
					logger.Error("failed to load preset", "path", presetPath, "error", err)
					return err
				}
				steps = s
			} else {
				parsed, err := ParseArgsWithDefaults(args, configDefaultOptions)
				if err != nil {
					logger.Error("failed to parse arguments", "error", err)
					return err
				}
				inputPath, outputPath, steps = parsed.InputPath, parsed.OutputPath, parsed.Steps
			}

			in, closeIn, err := openStream(inputPath, false)
			if err != nil {
				logger.Error("failed to open input", "path", inputPath, "error", err)
				return err
			}
			defer closeIn()

			out, closeOut, err := openStream(outputPath, true)
			if err != nil {
				logger.Error("failed to open output", "path", outputPath, "error", err)
				return err
			}
			defer closeOut()

			logger.Debug("running pipeline", "stages", len(steps))
			if err := pipeline.Run(in, out, steps); err != nil {
				logger.Error("pipeline failed", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&presetPath, "preset", "", "load a stage chain from a YAML preset file (additive to the positional grammar)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "raise log verbosity to debug")

	return cmd
}
