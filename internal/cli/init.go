package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AbdouB/stubkeeper/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Write the effective configuration to <root>/.stubkeeper/config.yaml (or
--config) so it can be edited. An existing file is left alone unless --force
is given.

Example:
  stubkeeper init --root ~/backlog`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := configPath
		if path == "" {
			path = config.DefaultPath(cfg.Root)
		}

		status := "created"
		if _, err := os.Stat(path); err == nil {
			if !force {
				return fmt.Errorf("config already exists: %s (use --force to overwrite)", path)
			}
			status = "overwritten"
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check config: %w", err)
		}

		if err := cfg.Save(path); err != nil {
			return err
		}
		logger.Info("Config written", zap.String("path", path), zap.String("status", status))

		if outputText {
			fmt.Printf("Config %s: %s\n", status, path)
			return nil
		}
		outputResult(map[string]string{"status": status, "path": path})
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(initCmd)
}
