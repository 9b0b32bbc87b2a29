// Command datacompressor runs stage-chained compression/coding pipelines
// over an input and output stream, per the grammar implemented in
// internal/cli.
package main

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/cli"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

var (
	cfgFile string
	cmd     = cli.NewRootCmd()
)

func init() {
	cobra.OnInitialize(initConfig)
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.dcomprc.yaml)")
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// initConfig loads $HOME/.dcomprc.yaml if present. A missing or unreadable
// config file is not fatal: it only ever supplies optional option
// defaults, never required state.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			log.Warn("could not determine home directory, skipping config file", "error", err)
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".dcomprc")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("could not read config file", "error", err)
		}
	}
}

// exitCode maps a reported error down to the original library's small
// negative status codes, falling back to a generic nonzero exit for
// anything that isn't one of ours.
func exitCode(err error) int {
	if kind, ok := errs.AsKind(err); ok {
		return kind.Code()
	}
	return 1
}
