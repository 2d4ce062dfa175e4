package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/yorm/internal/driver"
	"github.com/mesh-intelligence/yorm/internal/paths"
)

// migrationTable records applied migrations.
const migrationTable = "yorm_migrations"

func init() {
	migrate.SetTable(migrationTable)
}

type migrateFlags struct {
	dir       string
	upLimit   int
	downLimit int
}

func newMigrateCmd(e *env) *cobra.Command {
	var f migrateFlags
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back SQL migrations",
		Long: "Run the .sql files in the migrations directory. Each file holds\n" +
			"'-- +migrate Up' and '-- +migrate Down' sections.",
	}
	cmd.PersistentFlags().StringVar(&f.dir, "dir", "", "migrations directory (default: migrations_dir, or <config-dir>/migrations)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.migrate(cmd, f.dir, f.upLimit, migrate.Up)
		},
	}
	up.Flags().IntVar(&f.upLimit, "limit", 0, "apply at most this many migrations (0 means all)")

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.migrate(cmd, f.dir, f.downLimit, migrate.Down)
		},
	}
	down.Flags().IntVar(&f.downLimit, "limit", 1, "roll back at most this many migrations (0 means all)")

	status := &cobra.Command{
		Use:   "status",
		Short: "List applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.migrationStatus(cmd)
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func (e *env) migrate(cmd *cobra.Command, flagDir string, limit int, dir migrate.MigrationDirection) error {
	if limit < 0 {
		return errors.Errorf("limit must not be negative, got %d", limit)
	}
	src, err := paths.ResolveMigrationsDir(flagDir, e.cfg.MigrationsDir, e.configDir)
	if err != nil {
		return sysError(err)
	}
	dialect, err := driver.MigrationDialect(e.cfg.Driver)
	if err != nil {
		return err
	}
	db, err := driver.Open(cmd.Context(), e.cfg)
	if err != nil {
		return sysError(err)
	}
	defer db.Close()

	n, err := migrate.ExecMax(db.DB, dialect, &migrate.FileMigrationSource{Dir: src}, dir, limit)
	if err != nil {
		return sysError(errors.Wrap(err, "run migrations"))
	}
	verb := "applied"
	if dir == migrate.Down {
		verb = "rolled back"
	}
	e.log.Info("migrations", zap.String("dir", src), zap.String("action", verb), zap.Int("count", n))
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d migration(s)\n", verb, n)
	return nil
}

func (e *env) migrationStatus(cmd *cobra.Command) error {
	dialect, err := driver.MigrationDialect(e.cfg.Driver)
	if err != nil {
		return err
	}
	db, err := driver.Open(cmd.Context(), e.cfg)
	if err != nil {
		return sysError(err)
	}
	defer db.Close()

	records, err := migrate.GetMigrationRecords(db.DB, dialect)
	if err != nil {
		return sysError(errors.Wrap(err, "read migration records"))
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAPPLIED AT")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\n", r.Id, r.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
