package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"maestro/internal/config"
	"maestro/internal/logging"
)

const version = "0.3.0"

var (
	// Global flags
	configPath string
	envFile    string
	verbose    bool
	timeout    time.Duration

	// Populated by the root command's bootstrap
	loadedConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "maestro - local multi-model AI orchestrator",
	Long: `maestro coordinates multiple local language models through a
planner/critic/executor workflow, keeping at most one model resident
in memory at a time.

A request is first refined through the cascade pipeline (ambiguity
detection, constraint extraction, feasibility, execution planning),
then handed to the orchestrator which selects, loads, and unloads a
model per phase under the machine's memory and thermal constraints.`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
}

func bootstrap(cmd *cobra.Command, args []string) error {
	// Credentials may live in a .env next to the working directory; a
	// missing file is not an error.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	loadedConfig = cfg

	logOpts := logging.Options{
		Debug: cfg.Logging.Debug || verbose,
		Dir:   cfg.Logging.Dir,
		JSON:  cfg.Logging.JSON,
	}
	if len(cfg.Logging.Categories) > 0 {
		logOpts.Categories = make(map[logging.Category]bool, len(cfg.Logging.Categories))
		for name, on := range cfg.Logging.Categories {
			logOpts.Categories[logging.Category(name)] = on
		}
	}
	return logging.Initialize(logOpts)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the maestro version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("maestro %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML); defaults plus MAESTRO_* env when omitted")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Explicit .env file with provider credentials")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall operation timeout")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
