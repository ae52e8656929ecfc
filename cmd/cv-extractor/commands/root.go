// Package commands implements the cv-extractor command line.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/cv-extractor/cmd/cv-extractor/ui"
	"github.com/spherical/cv-extractor/internal/config"
	"github.com/spherical/cv-extractor/internal/observability"
)

// Version is reported by the version command.
var Version = "dev"

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cv-extractor",
	Short: "Extract plain text from CVs and other documents",
	Long: `cv-extractor turns PDF, DOCX, plain text and image documents into plain text.
Documents with a usable text layer are read directly; scanned documents and
images are rasterized and run through Tesseract OCR.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      cfg.Observability.LogFormat,
			Output:      os.Stderr,
			ServiceName: cfg.Observability.ServiceName,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("CONFIG_PATH"), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
