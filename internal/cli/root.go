// Package cli provides the command-line interface for stubkeeper
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AbdouB/stubkeeper/internal/config"
	"github.com/AbdouB/stubkeeper/internal/db"
	"github.com/AbdouB/stubkeeper/internal/logging"
)

var (
	database   *db.DB
	cfg        *config.Config
	logger     *zap.Logger
	version    = "dev"
	outputText bool // --text flag for human-readable output (default is JSON)
	verbose    bool
	rootDir    string
	configPath string
	logFormat  string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "stubkeeper",
	Short: "Lifecycle maintenance for a directory-per-stub backlog",
	Long: `stubkeeper - batch maintenance for a backlog of feature stubs

Each stub is a directory under the working store holding one stub.json.
Every command loads the whole store, runs one pass and writes back.

Passes:
  stubkeeper migrate          # Repair legacy status, dates, ids and categories
  stubkeeper validate         # Fill missing required fields with defaults
  stubkeeper archive          # Move stale, finished or duplicate stubs to the archive
  stubkeeper infer            # Guess target_project from keywords
  stubkeeper assign-unknown   # Mark known-unresolvable stubs as "unknown"

Every pass accepts --dry-run. Runs are recorded in a local ledger:
  stubkeeper history          # Recent runs
  stubkeeper counter          # Shared STUB-ID counter
  stubkeeper init             # Write the default config file`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for help commands
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		var err error
		logger, err = logging.New(logging.Options{Verbose: verbose, Format: logFormat})
		if err != nil {
			return err
		}

		cfg, err = config.Load(rootDir, configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Debug("Config loaded",
			zap.String("root", cfg.Root),
			zap.String("working_dir", cfg.WorkingPath()),
			zap.String("archive_dir", cfg.ArchivePath()))

		if cmd.Name() == "counter" || cmd.Name() == "init" {
			return nil
		}

		database, err = db.Open(cfg.LedgerFile())
		if err != nil {
			if cmd.Name() == "history" {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			logger.Warn("Ledger unavailable, run will not be recorded",
				zap.String("path", cfg.LedgerFile()), zap.Error(err))
			database = nil
			return nil
		}
		logger.Debug("Ledger opened", zap.String("path", database.Path()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if database != nil {
			database.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// SetVersion sets the version reported by the version command
func SetVersion(v string) {
	version = v
}

// Execute runs the CLI
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		outputError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputText, "text", false, "Human-readable text output (default is JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Backlog root every relative path resolves against")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default <root>/.stubkeeper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log encoding on stderr: json or console")

	// Pass, ledger and init commands are added in batch.go, ledger.go and init.go
	rootCmd.AddCommand(versionCmd)
}

// outputResult outputs the result in the appropriate format
// Default is JSON, use --text for human-readable
func outputResult(result interface{}) {
	if outputText {
		fmt.Printf("%+v\n", result)
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
	}
}

// outputError outputs an error in the appropriate format
func outputError(err error) {
	if outputText {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	} else {
		result := map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
		enc := json.NewEncoder(os.Stderr)
		enc.Encode(result)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if outputText {
			fmt.Printf("stubkeeper version %s\n", version)
			return
		}
		outputResult(map[string]string{"version": version})
	},
}
