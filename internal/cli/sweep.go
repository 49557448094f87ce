package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/codewizard/internal/repository/sqlite"
	"github.com/sakif/codewizard/internal/service"
)

// newSweepCmd runs a single expired-session sweep, for cron-style setups
// that do not keep `serve` running.
func newSweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Clear expired session tokens once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			db, err := sqlite.New(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			sweeper := service.NewSessionSweeper(service.NewAdminService(db, db, logger), logger)
			n, err := sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d expired session(s) cleared\n", n)
			return nil
		},
	}
}
