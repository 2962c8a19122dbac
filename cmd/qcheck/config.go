package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jamesainslie/qcheck/pkg/qcheck/config"
	"github.com/jamesainslie/qcheck/pkg/qcheck/output"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage qcheck configuration settings.

Configuration is loaded from:
  1. the file named by --config or $QCHECK_CONFIG
  2. $XDG_CONFIG_HOME/qcheck/config.yaml (if set)
  3. ~/.config/qcheck/config.yaml

Environment variables override config file settings using the QCHECK_ prefix:
  QCHECK_OUTPUT=json
  QCHECK_FOLLOW_SYMLINKS=true
  QCHECK_HISTORY_ENABLED=true`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after files, environment and defaults are merged.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the default configuration file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "output:                 %s (available: %s)\n", cfg.Output, strings.Join(output.Available(), ", "))
	fmt.Fprintf(out, "exclude:                %v\n", cfg.Exclude)
	fmt.Fprintf(out, "follow_symlinks:        %t\n", cfg.FollowSymlinks)
	fmt.Fprintf(out, "logging.level:          %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "logging.path:           %s\n", cfg.Logging.Path)
	fmt.Fprintf(out, "history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Fprintf(out, "history.path:           %s\n", cfg.History.Path)
	fmt.Fprintf(out, "history.retention_days: %d\n", cfg.History.RetentionDays)
	fmt.Fprintf(out, "watch.debounce:         %s\n", cfg.Watch.Debounce)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	envVars := []string{
		configEnv,
		"QCHECK_OUTPUT",
		"QCHECK_EXCLUDE",
		"QCHECK_FOLLOW_SYMLINKS",
		"QCHECK_LOGGING_LEVEL",
		"QCHECK_LOGGING_PATH",
		"QCHECK_HISTORY_ENABLED",
		"QCHECK_HISTORY_PATH",
		"QCHECK_HISTORY_RETENTION_DAYS",
		"QCHECK_WATCH_DEBOUNCE",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists: %s\n", configPath)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created default config file: %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)
	return nil
}
