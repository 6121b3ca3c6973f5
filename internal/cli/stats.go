package cli

import (
	"github.com/spf13/cobra"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			s := env.Store
			ov, err := service.NewStatsService(s.Entries, s.Categories, s.Users, env.Logger).Overview(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "entries:    %d (%d published, %d public)\n", ov.TotalEntries, ov.PublishedEntries, ov.PublicEntries)
			printf(cmd, "recent:     %d (last %d days)\n", ov.RecentEntries, int(model.RecentWindow.Hours()/24))
			printf(cmd, "categories: %d\n", ov.TotalCategories)
			for _, c := range ov.Categories {
				printf(cmd, "  %s: %d public\n", c.Slug, c.Count)
			}
			printf(cmd, "users:      %d\n", ov.TotalUsers)
			return nil
		},
	}
}
