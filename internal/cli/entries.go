package cli

import (
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

func newEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Inspect entries",
	}
	cmd.AddCommand(newEntriesListCmd())
	return cmd
}

func newEntriesListCmd() *cobra.Command {
	var (
		page, perPage    int
		category, search string
		sort             string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of entries, including private ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			// flags are typed, so out-of-range values are an operator mistake
			req, err := paging.Validate(page, perPage, env.Config.Paging.Limits().MaxPerPage)
			if err != nil {
				return err
			}
			q := service.EntryQuery{Category: category, Search: search, Sort: sort}
			out, err := env.entries().List(cmd.Context(), model.Principal{IsAdmin: true}, q, req, nil)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printfTo(tw, "ID\tTITLE\tSTATUS\tPUBLIC\tAUTHOR\tVIEWS\n")
			for _, e := range out.Items {
				printfTo(tw, "%d\t%s\t%s\t%t\t%s\t%d\n", e.ID, e.Title, e.Status, e.IsPublic, e.Author, e.ViewCount)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			w := out.Pagination
			printf(cmd, "page %d of %d, %d total\n", w.Page, w.Pages, w.Total)
			if nav := navLine(w); nav != "" {
				printf(cmd, "pages: %s\n", nav)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&perPage, "per-page", paging.DefaultPerPage, "entries per page")
	cmd.Flags().StringVar(&category, "category", "", "category slug")
	cmd.Flags().StringVar(&search, "search", "", "free-text filter")
	cmd.Flags().StringVar(&sort, "sort", "", "created_desc, created_asc, title_asc, title_desc or views_desc")
	return cmd
}

// navLine renders the pager with the current page in brackets and gaps as dots.
func navLine(w paging.Window) string {
	nums := paging.Nav(w, paging.DefaultSpan)
	parts := make([]string, 0, len(nums))
	for _, n := range nums {
		switch n {
		case paging.Gap:
			parts = append(parts, "…")
		case w.Page:
			parts = append(parts, "["+strconv.Itoa(n)+"]")
		default:
			parts = append(parts, strconv.Itoa(n))
		}
	}
	return strings.Join(parts, " ")
}
