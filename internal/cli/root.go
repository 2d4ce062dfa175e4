// Package cli implements the yorm command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/yorm/internal/logging"
	"github.com/mesh-intelligence/yorm/internal/paths"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError attaches a process exit code to err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// sysError marks err as an environment failure rather than a usage mistake.
func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// rootFlags holds the global flags.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
}

// env is the state shared by subcommands once the root pre-run has resolved
// directories and loaded config.yaml.
type env struct {
	flags     rootFlags
	configDir string
	cfg       types.Config
	log       *zap.Logger
}

// NewRootCmd creates the top-level "yorm" command with its subcommands.
func NewRootCmd() *cobra.Command {
	e := &env{log: zap.NewNop()}
	root := &cobra.Command{
		Use:           "yorm",
		Short:         "Manage databases used through the yorm record mapper",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = e.log.Sync()
		},
	}

	root.PersistentFlags().StringVar(&e.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir, or $YORM_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&e.flags.dataDir, "data-dir", "", "SQLite data directory (default: $(CWD)/.yorm-db)")
	root.PersistentFlags().StringVar(&e.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(e))
	root.AddCommand(newPingCmd(e))
	root.AddCommand(newMigrateCmd(e))
	return root
}

// load resolves directories, reads config.yaml, and builds the logger.
func (e *env) load() error {
	dir, err := paths.ResolveConfigDir(e.flags.configDir)
	if err != nil {
		return sysError(errors.Wrap(err, "resolve config directory"))
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if cfg.DataDir, err = paths.ResolveDataDir(e.flags.dataDir, cfg.DataDir); err != nil {
		return sysError(errors.Wrap(err, "resolve data directory"))
	}
	if e.flags.logLevel != "" {
		cfg.LogLevel = e.flags.logLevel
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	e.configDir = dir
	e.cfg = cfg
	e.log = log
	return nil
}

// Run executes the command line args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "yorm:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitUserError
	}
	return exitSuccess
}

// Execute runs the command line of the current process and exits.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}
