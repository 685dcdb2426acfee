package commands

import (
	"log/slog"

	"github.com/ppiankov/leakspectre/internal/config"
	"github.com/ppiankov/leakspectre/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	version string
	commit  string
	date    string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "leakspectre",
	Short: "LeakSpectre - AWS S3 secret leak scanner",
	Long: `LeakSpectre streams the objects of an S3 bucket through an entropy-based
secret detector: object content is tokenized, each candidate token is
scored by Shannon entropy, and high-entropy strings that survive the
false-positive filters are reported as potential leaked credentials.

Part of the Spectre family of infrastructure cleanup tools.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)
		loaded, err := config.Load(".")
		if err != nil {
			slog.Warn("Failed to load config file", "error", err)
		} else {
			cfg = loaded
		}
	},
}

// Execute runs the root command with injected build info.
func Execute(v, c, d string) error {
	version = v
	commit = c
	date = d
	return rootCmd.Execute()
}

// GetVersion returns the current version.
func GetVersion() string {
	return version
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}
