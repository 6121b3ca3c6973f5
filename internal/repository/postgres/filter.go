package postgres

import (
	"strconv"
	"strings"

	"github.com/maxviazov/knowledge-hub/internal/model"
)

// whereBuilder accumulates AND-ed predicates with positional args.
type whereBuilder struct {
	clauses []string
	args    []any
}

// arg registers v and returns its placeholder.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *whereBuilder) add(clause string) { b.clauses = append(b.clauses, clause) }

func (b *whereBuilder) sql() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// entryWhere translates a filter into a WHERE clause over entries aliased as e.
func entryWhere(f model.EntryFilter) *whereBuilder {
	b := &whereBuilder{}
	if !f.Visibility.All {
		if f.Visibility.OwnerID > 0 {
			b.add("(e.is_public OR e.author_id = " + b.arg(f.Visibility.OwnerID) + ")")
		} else {
			b.add("e.is_public")
		}
	}
	if f.Category != "" {
		b.add(`EXISTS (SELECT 1 FROM entry_categories ec JOIN categories c ON c.id = ec.category_id
			WHERE ec.entry_id = e.id AND c.slug = ` + b.arg(f.Category) + ")")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := b.arg("%" + escapeLike(s) + "%")
		b.add("(e.title ILIKE " + p + " OR e.content ILIKE " + p + " OR array_to_string(e.tags, ' ') ILIKE " + p + ")")
	}
	if f.AuthorID != nil {
		b.add("e.author_id = " + b.arg(*f.AuthorID))
	}
	if f.Status != "" {
		b.add("e.status = " + b.arg(f.Status))
	}
	if f.From != nil {
		b.add("e.created_at >= " + b.arg(*f.From))
	}
	if f.To != nil {
		b.add("e.created_at <= " + b.arg(*f.To))
	}
	return b
}

// entryOrder returns a total order: every variant ends on id.
func entryOrder(sort string) string {
	switch model.NormalizeSort(sort) {
	case model.SortCreatedAsc:
		return " ORDER BY e.created_at ASC, e.id ASC"
	case model.SortTitleAsc:
		return " ORDER BY e.title ASC, e.id ASC"
	case model.SortTitleDesc:
		return " ORDER BY e.title DESC, e.id DESC"
	case model.SortViewsDesc:
		return " ORDER BY e.view_count DESC, e.id DESC"
	default:
		return " ORDER BY e.created_at DESC, e.id DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
