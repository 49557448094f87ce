package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/codewizard/internal/auth"
	"github.com/sakif/codewizard/internal/repository/sqlite"
	"github.com/sakif/codewizard/internal/service"
)

// newPromoteCmd grants admin rights by email. It is how the first admin is
// created, since the HTTP route already requires one.
func newPromoteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant admin rights to an existing account",
		Args:  cobra.ExactArgs(1),
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

			hasher := auth.NewHasher(auth.NewPasswordService(cfg.Auth.BcryptCost), 1)
			tokens := auth.NewTokenIssuer(cfg.Auth.TokenLength, cfg.TokenLifetime())
			accounts := service.NewAuthService(db, hasher, tokens, logger)

			user, err := accounts.PromoteByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d) is now an admin\n", user.Email, user.ID)
			return nil
		},
	}
}
