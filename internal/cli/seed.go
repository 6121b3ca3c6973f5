package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/spf13/cobra"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

var seedCategories = []service.CategoryInput{
	{Name: "Go", Description: "Language notes", Color: "#00add8"},
	{Name: "Databases", Description: "Storage and SQL", Color: "#336791"},
	{Name: "Operations", Description: "Running things", Color: "#e67e22"},
}

func newSeedCmd() *cobra.Command {
	var (
		username string
		password string
		count    int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo author, categories and entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if count < 0 {
				return fmt.Errorf("--count must be >= 0")
			}
			ctx := cmd.Context()

			author, err := env.Store.Users.GetByUsername(ctx, username)
			if errors.Is(err, repository.ErrNotFound) {
				author, err = env.users().CreateUser(ctx, username, username+"@example.com", password, false)
			}
			if err != nil {
				return err
			}

			// seeding acts with operator authority for category creation
			operator := model.Principal{UserID: author.ID, Username: author.Username, IsAdmin: true}
			slugs := make([]string, 0, len(seedCategories))
			for _, in := range seedCategories {
				c, err := env.categories().Create(ctx, operator, in)
				switch {
				case errors.Is(err, repository.ErrAlreadyExists):
					slugs = append(slugs, slug.Make(in.Name))
				case err != nil:
					return err
				default:
					slugs = append(slugs, c.Slug)
				}
			}

			p := model.Principal{UserID: author.ID, Username: author.Username}
			entries := env.entries()
			for i := 1; i <= count; i++ {
				public := i%7 != 0
				in := service.EntryInput{
					Title:      fmt.Sprintf("Seed note %03d", i),
					Summary:    "Generated by hubctl seed",
					Content:    strings.Repeat("paging keeps every list bounded ", 10+i%40),
					Status:     model.StatusPublished,
					IsPublic:   &public,
					Categories: []string{slugs[i%len(slugs)]},
					Tags:       []string{"seed"},
				}
				if _, err := entries.Create(ctx, p, in); err != nil {
					return fmt.Errorf("seed entry %d: %w", i, err)
				}
			}
			printf(cmd, "seeded %d entries for %s\n", count, author.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "editor", "author account to create or reuse")
	cmd.Flags().StringVar(&password, "password", "changeme123", "password for a newly created author")
	cmd.Flags().IntVar(&count, "count", 50, "number of entries to create")
	return cmd
}
