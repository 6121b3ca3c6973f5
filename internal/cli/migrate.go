package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/maxviazov/knowledge-hub/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	for _, sub := range []struct{ name, short string }{
		{migrations.Up, "Apply all pending migrations"},
		{migrations.Down, "Roll back the latest migration"},
		{migrations.Status, "Show applied and pending migrations"},
	} {
		command := sub.name
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := envFrom(cmd)
				if err != nil {
					return err
				}
				if env.Store.DB == nil {
					return errors.New("migrations need postgres storage")
				}
				return migrations.RunPool(cmd.Context(), env.Store.DB.Pool(), command, env.Logger)
			},
		})
	}
	return cmd
}
