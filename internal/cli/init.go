package cli

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/yorm/internal/paths"
	"github.com/mesh-intelligence/yorm/pkg/yorm"
)

func newInitCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the database",
		Long: "Create the configuration and migrations directories, write config.yaml\n" +
			"if it is missing, and open the configured database once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(e.configDir, 0o755); err != nil {
				return sysError(errors.Wrap(err, "create config directory"))
			}
			wrote, err := writeConfigIfMissing(e.configDir, e.cfg)
			if err != nil {
				return sysError(err)
			}
			migrations, err := paths.ResolveMigrationsDir("", e.cfg.MigrationsDir, e.configDir)
			if err != nil {
				return sysError(err)
			}
			if err := os.MkdirAll(migrations, 0o755); err != nil {
				return sysError(errors.Wrap(err, "create migrations directory"))
			}

			db, err := yorm.Open(cmd.Context(), e.cfg, yorm.WithLogger(e.log))
			if err != nil {
				return sysError(err)
			}
			if err := db.Close(); err != nil {
				return sysError(err)
			}

			e.log.Info("initialized",
				zap.String("config_dir", e.configDir),
				zap.Bool("wrote_config", wrote),
				zap.String("driver", e.cfg.Driver))
			fmt.Fprintf(cmd.OutOrStdout(), "config: %s\nmigrations: %s\n", e.configDir, migrations)
			return nil
		},
	}
}
