package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

// passwordEnv lets scripts avoid putting the password on the command line.
const passwordEnv = "HUBCTL_PASSWORD"

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newCreateAdminCmd(), newUsersListCmd(), newPromoteCmd())
	return cmd
}

func newCreateAdminCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			u, err := env.users().CreateUser(cmd.Context(), username, email, password, true)
			if err != nil {
				return err
			}
			printf(cmd, "created admin %s (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (or set "+passwordEnv+")")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newPromoteCmd() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "promote USERNAME",
		Short: "Grant or revoke administrator rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			u, err := env.users().SetAdmin(cmd.Context(), args[0], !revoke)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no user named %q", args[0])
			}
			if err != nil {
				return err
			}
			printf(cmd, "%s admin=%t\n", u.Username, u.IsAdmin)
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove administrator rights instead")
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			req, err := paging.Validate(page, perPage, env.Config.Paging.Limits().MaxPerPage)
			if err != nil {
				return err
			}
			// the operator is trusted, so this reads the repository without a principal
			users := env.Store.Users
			src := paging.SourceFuncs[model.User]{
				CountFn: users.Count,
				SliceFn: func(ctx context.Context, offset, limit int) ([]model.User, error) {
					return users.List(ctx, repository.Page{Limit: limit, Offset: offset})
				},
			}
			out, err := paging.Paginate[model.User](cmd.Context(), req, src, nil)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printfTo(tw, "ID\tUSERNAME\tEMAIL\tADMIN\tACTIVE\n")
			for _, u := range out.Items {
				printfTo(tw, "%d\t%s\t%s\t%t\t%t\n", u.ID, u.Username, u.Email, u.IsAdmin, u.IsActive)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printf(cmd, "page %d of %d, %d total\n", out.Pagination.Page, out.Pagination.Pages, out.Pagination.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&perPage, "per-page", paging.DefaultPerPage, "accounts per page")
	return cmd
}

func printfTo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
