package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

// Store bundles the repositories of one backend so suites can seed across tables.
type Store struct {
	Entries    repository.EntryRepository
	Categories repository.CategoryRepository
	Users      repository.UserRepository
	Tx         repository.TxManager
}

type StoreFactory func(t *testing.T) (Store, func())

type PingerFactory func(t *testing.T) (repository.Pinger, func())

func mkUser(t *testing.T, s Store, name string) model.User {
	t.Helper()
	u, err := s.Users.Create(context.Background(), model.User{
		Username: name, Email: name + "@example.com", PasswordHash: "x", IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func mkEntry(t *testing.T, s Store, e model.Entry) model.Entry {
	t.Helper()
	if e.Slug == "" {
		e.Slug = fmt.Sprintf("%s-%d", e.Title, e.AuthorID)
	}
	if e.Status == "" {
		e.Status = model.StatusPublished
	}
	if e.Priority == "" {
		e.Priority = model.PriorityNormal
	}
	out, err := s.Entries.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("seed entry %s: %v", e.Title, err)
	}
	return out
}

func ids(es []model.Entry) []int64 {
	out := make([]int64, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func RunEntryRepositoryContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("create_and_get", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		author := mkUser(t, s, "alice")
		created := mkEntry(t, s, model.Entry{Title: "Go", Slug: "go", Content: "gophers", AuthorID: author.ID, IsPublic: true, Tags: []string{"lang"}})
		got, err := s.Entries.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Title != "Go" || got.Slug != "go" || got.Author != "alice" {
			t.Fatalf("mismatch: %+v", got)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "lang" {
			t.Fatalf("tags not persisted: %v", got.Tags)
		}
		if got.CreatedAt.IsZero() {
			t.Fatalf("created_at not set")
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		_, err := s.Entries.GetByID(context.Background(), 999999)
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate_slug_already_exists", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		author := mkUser(t, s, "alice")
		mkEntry(t, s, model.Entry{Title: "A", Slug: "same", Content: "x", AuthorID: author.ID})
		_, err := s.Entries.Create(context.Background(), model.Entry{
			Title: "B", Slug: "same", Content: "y", AuthorID: author.ID,
			Status: model.StatusDraft, Priority: model.PriorityLow,
		})
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		exists, err := s.Entries.SlugExists(context.Background(), "same")
		if err != nil || !exists {
			t.Fatalf("expected slug to exist, got %v %v", exists, err)
		}
	})

	t.Run("update_and_delete", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		author := mkUser(t, s, "alice")
		e := mkEntry(t, s, model.Entry{Title: "Old", Slug: "old", Content: "x", AuthorID: author.ID})
		e.Title = "New"
		e.Tags = []string{"a", "b"}
		upd, err := s.Entries.Update(ctx, e)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if upd.Title != "New" || len(upd.Tags) != 2 {
			t.Fatalf("update not applied: %+v", upd)
		}
		if err := s.Entries.Delete(ctx, e.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Entries.Delete(ctx, e.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
		if _, err := s.Entries.Update(ctx, e); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update of deleted, got %v", err)
		}
	})

	t.Run("categories_and_views", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		author := mkUser(t, s, "alice")
		for _, name := range []string{"Tech", "Science"} {
			if _, err := s.Categories.Create(ctx, model.Category{Name: name, Slug: strings.ToLower(name), Color: "#007bff"}); err != nil {
				t.Fatalf("seed category: %v", err)
			}
		}
		e := mkEntry(t, s, model.Entry{Title: "E", Slug: "e", Content: "x", AuthorID: author.ID, IsPublic: true})
		if err := s.Entries.SetCategories(ctx, e.ID, []string{"tech", "science", "unknown"}); err != nil {
			t.Fatalf("set categories: %v", err)
		}
		if err := s.Entries.IncrementViews(ctx, e.ID); err != nil {
			t.Fatalf("views: %v", err)
		}
		got, _ := s.Entries.GetByID(ctx, e.ID)
		if len(got.Categories) != 2 || got.Categories[0] != "science" || got.Categories[1] != "tech" {
			t.Fatalf("unexpected categories: %v", got.Categories)
		}
		if got.ViewCount != 1 {
			t.Fatalf("expected 1 view, got %d", got.ViewCount)
		}
		n, err := s.Entries.Count(ctx, model.EntryFilter{Category: "tech"})
		if err != nil || n != 1 {
			t.Fatalf("category filter: n=%d err=%v", n, err)
		}
		cats, err := s.Categories.List(ctx)
		if err != nil || len(cats) != 2 {
			t.Fatalf("list categories: %v %v", cats, err)
		}
		if cats[0].Name != "Science" || cats[0].EntryCount != 1 {
			t.Fatalf("expected Science first with one entry, got %+v", cats[0])
		}
	})

	t.Run("visibility_filter", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		alice := mkUser(t, s, "alice")
		bob := mkUser(t, s, "bob")
		mkEntry(t, s, model.Entry{Title: "pub", Content: "x", AuthorID: alice.ID, IsPublic: true})
		mkEntry(t, s, model.Entry{Title: "alice-private", Content: "x", AuthorID: alice.ID})
		mkEntry(t, s, model.Entry{Title: "bob-private", Content: "x", AuthorID: bob.ID})

		cases := []struct {
			name string
			vis  model.Visibility
			want int
		}{
			{"anonymous", model.Visibility{}, 1},
			{"owner", model.Visibility{OwnerID: alice.ID}, 2},
			{"admin", model.Visibility{All: true}, 3},
		}
		for _, tc := range cases {
			n, err := s.Entries.Count(ctx, model.EntryFilter{Visibility: tc.vis})
			if err != nil || n != tc.want {
				t.Fatalf("%s: n=%d want=%d err=%v", tc.name, n, tc.want, err)
			}
		}
	})

	t.Run("search_filter", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		a := mkUser(t, s, "alice")
		mkEntry(t, s, model.Entry{Title: "Learning Go", Content: "x", AuthorID: a.ID, IsPublic: true})
		mkEntry(t, s, model.Entry{Title: "Rust", Content: "about GO too", AuthorID: a.ID, IsPublic: true})
		mkEntry(t, s, model.Entry{Title: "Other", Content: "y", AuthorID: a.ID, IsPublic: true, Tags: []string{"golang"}})
		mkEntry(t, s, model.Entry{Title: "100% off", Content: "z", AuthorID: a.ID, IsPublic: true})

		n, err := s.Entries.Count(ctx, model.EntryFilter{Search: "go"})
		if err != nil || n != 3 {
			t.Fatalf("search go: n=%d err=%v", n, err)
		}
		n, err = s.Entries.Count(ctx, model.EntryFilter{Search: "%"})
		if err != nil || n != 1 {
			t.Fatalf("search literal %%: n=%d err=%v", n, err)
		}
		n, err = s.Entries.Count(ctx, model.EntryFilter{AuthorID: &a.ID, Status: model.StatusDraft})
		if err != nil || n != 0 {
			t.Fatalf("status filter: n=%d err=%v", n, err)
		}
	})

	t.Run("list_pagination_is_deterministic", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		a := mkUser(t, s, "alice")
		// equal titles force the id tie-break
		for i := 0; i < 7; i++ {
			mkEntry(t, s, model.Entry{Title: "Same", Slug: fmt.Sprintf("same-%d", i), Content: "x", AuthorID: a.ID, IsPublic: true})
		}
		f := model.EntryFilter{Sort: model.SortTitleAsc}
		total, err := s.Entries.Count(ctx, f)
		if err != nil || total != 7 {
			t.Fatalf("count: %d %v", total, err)
		}
		var seen []int64
		for offset := 0; offset < total; offset += 3 {
			page, err := s.Entries.List(ctx, f, repository.Page{Limit: 3, Offset: offset})
			if err != nil {
				t.Fatalf("list offset=%d: %v", offset, err)
			}
			seen = append(seen, ids(page)...)
		}
		if len(seen) != 7 {
			t.Fatalf("expected 7 ids across pages, got %v", seen)
		}
		for i := 1; i < len(seen); i++ {
			if seen[i] <= seen[i-1] {
				t.Fatalf("ids not strictly ascending under title_asc tie-break: %v", seen)
			}
		}
		past, err := s.Entries.List(ctx, f, repository.Page{Limit: 3, Offset: 30})
		if err != nil || len(past) != 0 {
			t.Fatalf("past end: %v %v", past, err)
		}
	})

	t.Run("views_desc_breaks_ties_on_id", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		a := mkUser(t, s, "alice")
		var all []int64
		for i := 0; i < 4; i++ {
			all = append(all, mkEntry(t, s, model.Entry{Title: fmt.Sprintf("V%d", i), Content: "x", AuthorID: a.ID, IsPublic: true}).ID)
		}
		for i := 0; i < 2; i++ {
			if err := s.Entries.IncrementViews(ctx, all[0]); err != nil {
				t.Fatalf("views: %v", err)
			}
		}
		got, err := s.Entries.List(ctx, model.EntryFilter{Sort: model.SortViewsDesc}, repository.Page{Limit: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []int64{all[0], all[3], all[2], all[1]}
		if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
			t.Fatalf("views_desc order: got %v want %v", ids(got), want)
		}
	})

	t.Run("list_after_cursor", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		a := mkUser(t, s, "alice")
		var all []int64
		for i := 0; i < 5; i++ {
			all = append(all, mkEntry(t, s, model.Entry{Title: fmt.Sprintf("E%d", i), Content: "x", AuthorID: a.ID, IsPublic: true}).ID)
		}
		first, err := s.Entries.ListAfter(ctx, model.EntryFilter{}, nil, 2)
		if err != nil || len(first) != 2 || first[0].ID != all[0] {
			t.Fatalf("first window: %v %v", ids(first), err)
		}
		after := first[1].ID
		rest, err := s.Entries.ListAfter(ctx, model.EntryFilter{}, &after, 10)
		if err != nil || len(rest) != 3 || rest[0].ID != all[2] {
			t.Fatalf("after window: %v %v", ids(rest), err)
		}
	})
}

func RunCategoryRepositoryContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("create_get_duplicate", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		c, err := s.Categories.Create(ctx, model.Category{Name: "Tech", Slug: "tech", Color: "#112233"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.Categories.GetBySlug(ctx, "tech")
		if err != nil || got.ID != c.ID || got.Color != "#112233" {
			t.Fatalf("get: %+v %v", got, err)
		}
		if _, err := s.Categories.Create(ctx, model.Category{Name: "Tech", Slug: "tech-2"}); !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		if _, err := s.Categories.GetBySlug(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		n, err := s.Categories.Count(ctx)
		if err != nil || n != 1 {
			t.Fatalf("count: %d %v", n, err)
		}
	})
}

func RunUserRepositoryContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("create_lookup_admin", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		u := mkUser(t, s, "carol")
		got, err := s.Users.GetByUsername(ctx, "carol")
		if err != nil || got.ID != u.ID || got.PasswordHash != "x" {
			t.Fatalf("by username: %+v %v", got, err)
		}
		if err := s.Users.SetAdmin(ctx, u.ID, true); err != nil {
			t.Fatalf("set admin: %v", err)
		}
		if err := s.Users.TouchLogin(ctx, u.ID); err != nil {
			t.Fatalf("touch login: %v", err)
		}
		got, _ = s.Users.GetByID(ctx, u.ID)
		if !got.IsAdmin || got.LastLogin == nil {
			t.Fatalf("admin/login not persisted: %+v", got)
		}
		if err := s.Users.SetAdmin(ctx, 999999, true); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate_and_list", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for _, n := range []string{"u1", "u2", "u3"} {
			mkUser(t, s, n)
		}
		_, err := s.Users.Create(ctx, model.User{Username: "u1", Email: "other@example.com", PasswordHash: "x"})
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		n, err := s.Users.Count(ctx)
		if err != nil || n != 3 {
			t.Fatalf("count: %d %v", n, err)
		}
		page, err := s.Users.List(ctx, repository.Page{Limit: 2, Offset: 1})
		if err != nil || len(page) != 2 || page[0].Username != "u2" {
			t.Fatalf("list: %+v %v", page, err)
		}
	})
}

func RunTxManagerContract(t *testing.T, makeStore StoreFactory) {
	t.Helper()

	t.Run("commit_on_nil_error", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		var createdID int64
		err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
			out, err := s.Categories.Create(ctx, model.Category{Name: "TxCommit", Slug: "tx-commit"})
			if err != nil {
				return err
			}
			createdID = out.ID
			return nil
		})
		if err != nil {
			t.Fatalf("WithinTx: %v", err)
		}
		if createdID == 0 {
			t.Fatalf("expected id from committed insert")
		}
		if _, err := s.Categories.GetBySlug(ctx, "tx-commit"); err != nil {
			t.Fatalf("expected committed row visible, got err=%v", err)
		}
	})

	t.Run("rollback_on_error", func(t *testing.T) {
		s, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		errMarker := errors.New("boom")
		err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := s.Categories.Create(ctx, model.Category{Name: "TxRollback", Slug: "tx-rollback"}); err != nil {
				return err
			}
			return errMarker
		})
		if !errors.Is(err, errMarker) {
			t.Fatalf("expected marker error, got %v", err)
		}
		if _, err := s.Categories.GetBySlug(ctx, "tx-rollback"); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after rollback, got %v", err)
		}
	})
}

func RunPingerContract(t *testing.T, makePinger PingerFactory) {
	t.Helper()
	t.Run("ping_ok", func(t *testing.T) {
		p, cleanup := makePinger(t)
		t.Cleanup(cleanup)
		if err := p.Ping(context.Background()); err != nil {
			t.Fatalf("expected ping ok, got %v", err)
		}
	})
}
