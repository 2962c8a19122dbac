package main

import (
	"context"
	"os"

	"github.com/jamesainslie/qcheck/pkg/qcheck/config"
	"github.com/jamesainslie/qcheck/pkg/qcheck/logging"
	"github.com/spf13/cobra"
)

// configEnv names the environment variable that points at a config file.
// The legacy mode invocation takes no flags, so this is its only way to
// select one.
const configEnv = "QCHECK_CONFIG"

var (
	cfgFile string

	// cfg is loaded before every command runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "qcheck <mode> <path>",
		Short: "Detect modified, missing and new files in a directory tree",
		Long: `qcheck records the state of a directory tree in a manifest stored inside
the tree, and later compares the tree against it.

Modes:
  --create <path>       write <path>/checks.md5 (path:md5 per file)
  --check <path>        verify every file listed in checks.md5
  --createtree <path>   write <path>/checks.tree (one path per file)
  --checktree <path>    report files on disk that checks.tree does not list

Running a create mode when its manifest already exists removes the manifest
instead of overwriting it; run the mode again to write a fresh one.

Mode runs print a line protocol on stdout and always exit 0. Any other
argument list prints nothing.

Examples:
  qcheck --create ~/photos
  qcheck --check ~/photos
  qcheck watch --check ~/photos
  qcheck history --root ~/photos`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPostRun:  teardown,
		RunE:               runLegacy,
	}
)

func init() {
	// Assigned here because setup refers back to rootCmd.
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/qcheck/config.yaml)")
}

// setup loads configuration and starts logging. A broken config never
// stops a mode run: the defaults are used and a warning is logged.
func setup(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		path = os.Getenv(configEnv)
	}

	loaded, loadErr := config.Load(path)
	if loadErr != nil {
		if cmd != rootCmd {
			return loadErr
		}
		loaded = config.Defaults()
	}
	cfg = loaded

	err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
		Console:    cmd.ErrOrStderr(),
	})
	if err != nil {
		if cmd != rootCmd {
			return err
		}
		_ = logging.Init(logging.Config{Level: config.DefaultLogLevel, Console: cmd.ErrOrStderr()})
	}

	if loadErr != nil {
		logging.Get("cli").Warn("using default configuration", "error", loadErr)
	}
	return nil
}

func teardown(*cobra.Command, []string) {
	_ = logging.Close()
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
