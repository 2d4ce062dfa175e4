package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/yorm/pkg/yorm"
)

func newPingCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			db, err := yorm.Open(cmd.Context(), e.cfg, yorm.WithLogger(e.log))
			if err != nil {
				return sysError(err)
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "driver: %s\nstatus: ok\nlatency: %s\n",
				db.Driver(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
