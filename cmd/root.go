// Package cmd implements the launcher's account command line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/decent-client/launcher/internal/config"
)

var (
	verbose bool
	dataDir string
)

// rootCmd is the entry point for the account CLI.
var rootCmd = &cobra.Command{
	Use:   "decent",
	Short: "Microsoft account management for the Decent Client launcher",
	Long: `decent signs Microsoft accounts in to Minecraft and manages the
launcher's stored accounts.

Sign-in runs the browser-based Microsoft authentication flow, exchanges the
result through Xbox Live and Minecraft Services, and stores the playable
identity locally. Exactly one stored account is active at a time.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the launcher data directory")
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the launcher config, honoring the --data-dir override for
// both the config file location and the stored data.
func loadConfig() (*config.Config, error) {
	if dataDir != "" {
		return config.LoadFrom(dataDir)
	}
	return config.Load()
}
