// Package commands implements the converter CLI.
package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/doc-converter/cmd/converter/ui"
	"github.com/spherical-ai/doc-converter/internal/config"
	"github.com/spherical-ai/doc-converter/internal/observability"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "converter",
	Short: "Document converter - PDF to delimited text",
	Long: `The converter turns PDF documents into delimited record files.

It converts local files directly, and maintains the artifact storage used by
the converter API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads configuration from the --config flag or CONFIG_PATH.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return config.Load(path)
}

// newLogger returns a console logger on stderr; quiet unless --verbose.
func newLogger(out io.Writer) *observability.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      out,
		ServiceName: "converter",
	})
}
