package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leca/ourstory/internal/config"
)

func newInitCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and seed the admin user",
		Long: `Create the tables, the admin user and the default valentine message.
Existing data is left untouched, so init is safe to run more than once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database initialized at %s\n", cfg.DBPath)
			fmt.Fprintf(out, "Admin username: %s\n", cfg.AdminUsername)
			if cfg.AdminPassword == config.DefaultAdminPassword {
				fmt.Fprintf(out, "Admin password: %s\n", cfg.AdminPassword)
				slog.Warn("admin password is the built-in default; set ADMIN_PASSWORD and re-create the user")
			}
			return nil
		},
	}
}
