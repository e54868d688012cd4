// Package cmd implements the mapred CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mapred/engine/internal/config"
	"mapred/engine/pkg/logger"
)

// Version is the current version number.
const Version = "0.1.0"

var (
	// Global flags.
	cfgFile string
	secret  string
	debug   bool
	quiet   bool
)

// rootCmd is the root command.
var rootCmd = &cobra.Command{
	Use:   "mapred",
	Short: "A master/worker mapreduce engine",
	Long: `mapred runs mapreduce jobs over a pool of worker processes.

The master holds the dataset and drives workers through the map and reduce
phases over an authenticated TCP protocol; slow workers are tolerated by
speculatively re-issuing their tasks to whoever asks for work next.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", "", "shared secret for the master/worker handshake")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet mode")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration and initializes logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if cmd.Root().PersistentFlags().Changed("secret") {
		cfg.Secret = secret
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	if quiet {
		cfg.Logging.Level = "error"
	}

	logger.Init(&logger.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})
	return cfg, nil
}
