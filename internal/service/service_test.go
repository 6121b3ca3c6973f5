package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/knowledge-hub/internal/auth"
	"github.com/maxviazov/knowledge-hub/internal/config"
	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/repository"
	"github.com/maxviazov/knowledge-hub/internal/repository/memory"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

type fixture struct {
	db      *memory.DB
	entries service.EntryService
	cats    service.CategoryService
	users   service.UserService
	stats   service.StatsService
	alice   model.Principal
	bob     model.Principal
	admin   model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	log := zerolog.Nop()
	tokens := auth.NewTokens(config.AuthConfig{JWTSecret: "0123456789abcdef", TokenTTL: 60})
	f := &fixture{
		db:      db,
		entries: service.NewEntryService(db.Entries(), db.Categories(), db.Users(), db.TxManager(), log),
		cats:    service.NewCategoryService(db.Categories(), log),
		users:   service.NewUserService(db.Users(), tokens, log),
		stats:   service.NewStatsService(db.Entries(), db.Categories(), db.Users(), log),
	}
	ctx := context.Background()
	mk := func(name string, admin bool) model.Principal {
		u, err := f.users.CreateUser(ctx, name, name+"@example.com", "password123", admin)
		require.NoError(t, err)
		return model.Principal{UserID: u.ID, Username: u.Username, IsAdmin: admin}
	}
	f.alice, f.bob, f.admin = mk("alice", false), mk("bob", false), mk("root", true)
	return f
}

func boolPtr(b bool) *bool { return &b }

func TestFieldErrors_ExtractsAggregated(t *testing.T) {
	err := service.NewInvalidInputError([]service.FieldError{{Field: "a", Message: "b"}})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Len(t, service.FieldErrors(err), 1)
	assert.Len(t, service.FieldErrors(fmt.Errorf("wrapped: %w", err)), 1)
	assert.Nil(t, service.NewInvalidInputError(nil))
	assert.Nil(t, service.FieldErrors(errors.New("plain")))
}

func TestEntryService_CreateDerivesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cats.Create(ctx, f.admin, service.CategoryInput{Name: "Tech"})
	require.NoError(t, err)

	content := ""
	for i := 0; i < 450; i++ {
		content += "word "
	}
	e, err := f.entries.Create(ctx, f.alice, service.EntryInput{
		Title: "Hello, World!", Content: content, Status: "published",
		Categories: []string{"Tech", "tech"}, Tags: []string{" Go ", "go", "api"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", e.Slug)
	assert.Equal(t, 450, e.WordCount)
	assert.Equal(t, 2, e.ReadingTime)
	assert.Equal(t, []string{"tech"}, e.Categories)
	assert.Equal(t, []string{"go", "api"}, e.Tags)
	assert.NotNil(t, e.PublishedAt)
	assert.True(t, e.IsPublic)
	assert.Equal(t, "alice", e.Author)

	dup, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: "Hello world", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", dup.Slug)
	assert.Equal(t, 1, dup.ReadingTime)
	assert.Equal(t, model.StatusDraft, dup.Status)
	assert.Nil(t, dup.PublishedAt)
}

func TestEntryService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.entries.Create(ctx, model.Principal{}, service.EntryInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.entries.Create(ctx, f.alice, service.EntryInput{Status: "bogus", Priority: "urgent", Categories: []string{"nope"}})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	fields := map[string]bool{}
	for _, fe := range service.FieldErrors(err) {
		fields[fe.Field] = true
	}
	assert.Equal(t, map[string]bool{"title": true, "content": true, "status": true, "priority": true, "categories": true}, fields)
}

func TestEntryService_VisibilityAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	private, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: "secret", Content: "x", IsPublic: boolPtr(false)})
	require.NoError(t, err)
	public, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: "open", Content: "x"})
	require.NoError(t, err)

	_, err = f.entries.Get(ctx, model.Principal{}, private.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.entries.Get(ctx, f.bob, private.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	got, err := f.entries.Get(ctx, f.admin, private.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)

	_, err = f.entries.Update(ctx, f.bob, public.ID, service.EntryInput{Title: "hijack", Content: "x"})
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.ErrorIs(t, f.entries.Delete(ctx, f.bob, public.ID), service.ErrForbidden)
	assert.ErrorIs(t, f.entries.Delete(ctx, model.Principal{}, public.ID), service.ErrUnauthorized)

	upd, err := f.entries.Update(ctx, f.admin, public.ID, service.EntryInput{Title: "Open Door", Content: "x y"})
	require.NoError(t, err)
	assert.Equal(t, "open-door", upd.Slug)
	assert.Equal(t, 2, upd.WordCount)

	require.NoError(t, f.entries.Delete(ctx, f.alice, public.ID))
	_, err = f.entries.Get(ctx, f.alice, public.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEntryService_ListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 95; i++ {
		_, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: fmt.Sprintf("entry %02d", i), Content: "x"})
		require.NoError(t, err)
	}
	_, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: "hidden", Content: "x", IsPublic: boolPtr(false)})
	require.NoError(t, err)

	base, _ := url.Parse("http://hub.local/api/v1/entries?sort=title_asc")
	route := paging.NewRoute(base)

	page, err := f.entries.List(ctx, model.Principal{}, service.EntryQuery{Sort: model.SortTitleAsc}, paging.Request{Page: 5, PerPage: 20}, route)
	require.NoError(t, err)
	assert.Equal(t, 95, page.Pagination.Total)
	assert.Equal(t, 5, page.Pagination.Pages)
	assert.Len(t, page.Items, 15)
	assert.False(t, page.Pagination.HasNext)
	assert.Equal(t, "entry 80", page.Items[0].Title)
	assert.Empty(t, page.Links.Next)
	assert.Contains(t, page.Links.Prev, "page=4")

	own, err := f.entries.List(ctx, f.alice, service.EntryQuery{}, paging.Request{Page: 1, PerPage: 20}, nil)
	require.NoError(t, err)
	assert.Equal(t, 96, own.Pagination.Total)
	assert.True(t, own.Links.IsZero())

	past, err := f.entries.List(ctx, model.Principal{}, service.EntryQuery{}, paging.Request{Page: 9, PerPage: 20}, route)
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.True(t, past.Pagination.HasPrev)
}

func TestEntryService_FeedWalksAllEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: fmt.Sprintf("e%d", i), Content: "x"})
		require.NoError(t, err)
	}
	var (
		seen  []int64
		after *int64
	)
	for i := 0; i < 10; i++ {
		p, err := f.entries.Feed(ctx, model.Principal{}, service.EntryQuery{}, paging.CursorRequest{After: after, PerPage: 3}, nil)
		require.NoError(t, err)
		for _, e := range p.Items {
			seen = append(seen, e.ID)
		}
		if !p.HasMore {
			break
		}
		after = p.NextAfter
	}
	assert.Len(t, seen, 7)
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1], seen[i])
	}
}

func TestEntryService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: "Go generics", Content: "x"})
	require.NoError(t, err)
	_, err = f.entries.Create(ctx, f.bob, service.EntryInput{Title: "Go channels", Content: "x"})
	require.NoError(t, err)

	_, err = f.entries.Search(ctx, model.Principal{}, service.SearchQuery{}, paging.Request{Page: 1, PerPage: 10}, nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.entries.Search(ctx, model.Principal{}, service.SearchQuery{Q: "go", DateFrom: "yesterday"}, paging.Request{Page: 1, PerPage: 10}, nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	res, err := f.entries.Search(ctx, model.Principal{}, service.SearchQuery{Q: "GO"}, paging.Request{Page: 1, PerPage: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pagination.Total)

	res, err = f.entries.Search(ctx, model.Principal{}, service.SearchQuery{Q: "go", Author: "bob"}, paging.Request{Page: 1, PerPage: 10}, nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Go channels", res.Items[0].Title)

	res, err = f.entries.Search(ctx, model.Principal{}, service.SearchQuery{Author: "nobody"}, paging.Request{Page: 1, PerPage: 10}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.Pagination.Pages)

	res, err = f.entries.Search(ctx, model.Principal{}, service.SearchQuery{Q: "go", DateTo: "2000-01-01"}, paging.Request{Page: 1, PerPage: 10}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Pagination.Total)
}

func TestCategoryService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cats.Create(ctx, f.alice, service.CategoryInput{Name: "Tech"})
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.cats.Create(ctx, model.Principal{}, service.CategoryInput{Name: "Tech"})
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.cats.Create(ctx, f.admin, service.CategoryInput{Name: "Tech", Color: "blue"})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Equal(t, "color", service.FieldErrors(err)[0].Field)

	c, err := f.cats.Create(ctx, f.admin, service.CategoryInput{Name: "Machine Learning", Color: "#AABBCC"})
	require.NoError(t, err)
	assert.Equal(t, "machine-learning", c.Slug)
	assert.Equal(t, "#aabbcc", c.Color)

	_, err = f.cats.Create(ctx, f.admin, service.CategoryInput{Name: "Machine Learning"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	list, err := f.cats.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUserService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.users.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", sess.TokenType)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice", sess.User.Username)

	_, err = f.users.Login(ctx, "alice", "nope")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	_, err = f.users.Login(ctx, "ghost", "password123")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	_, err = f.users.Login(ctx, "", "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	u, err := f.db.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)
}

func TestUserService_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.users.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, sess.RefreshToken)

	// rights come from the stored account, not from the old token
	_, err = f.users.SetAdmin(ctx, "alice", true)
	require.NoError(t, err)
	next, err := f.users.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.Token)
	assert.Empty(t, next.RefreshToken)
	assert.True(t, next.User.IsAdmin)

	_, err = f.users.Refresh(ctx, sess.Token)
	assert.ErrorIs(t, err, service.ErrUnauthorized, "access token is not a refresh token")
	_, err = f.users.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	_, err = f.users.Refresh(ctx, " ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestUserService_RegisterAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, "carol", "Carol@Example.com", "password123")
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)
	assert.True(t, u.IsActive)
	assert.Equal(t, "carol@example.com", u.Email)

	_, err = f.users.Register(ctx, "carol", "carol2@example.com", "password123")
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
	_, err = f.users.Register(ctx, "dave", "dave@example.com", "short")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	carol := model.Principal{UserID: u.ID, Username: u.Username}
	got, err := f.users.Get(ctx, carol, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Username)

	_, err = f.users.Get(ctx, carol, f.alice.UserID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.users.Get(ctx, model.Principal{}, u.ID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	got, err = f.users.Get(ctx, f.admin, f.alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	_, err = f.users.Get(ctx, f.admin, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEntryService_PopularOrdersByViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 4; i++ {
		e, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: fmt.Sprintf("p%d", i), Content: "x"})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	hidden, err := f.entries.Create(ctx, f.alice, service.EntryInput{Title: "hidden", Content: "x", IsPublic: boolPtr(false)})
	require.NoError(t, err)
	views := map[int64]int{ids[1]: 3, ids[3]: 1, hidden.ID: 10}
	for id, n := range views {
		for i := 0; i < n; i++ {
			require.NoError(t, f.db.Entries().IncrementViews(ctx, id))
		}
	}

	page, err := f.entries.Popular(ctx, paging.Request{Page: 1, PerPage: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Pagination.Total, "private entries are never popular")
	got := []int64{page.Items[0].ID, page.Items[1].ID, page.Items[2].ID}
	// equal view counts fall back to id descending
	assert.Equal(t, []int64{ids[1], ids[3], ids[2]}, got)

	next, err := f.entries.Popular(ctx, paging.Request{Page: 2, PerPage: 3}, nil)
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, ids[0], next.Items[0].ID)
}

func TestUserService_CreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, "x", "bad", "short", false)
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Len(t, service.FieldErrors(err), 3)

	_, err = f.users.CreateUser(ctx, "alice", "other@example.com", "password123", false)
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	u, err := f.users.SetAdmin(ctx, "bob", true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	_, err = f.users.List(ctx, f.alice, paging.Request{Page: 1, PerPage: 2}, nil)
	assert.ErrorIs(t, err, service.ErrForbidden)

	page, err := f.users.List(ctx, f.admin, paging.Request{Page: 2, PerPage: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "root", page.Items[0].Username)
}

func TestStatsService_Overview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cats.Create(ctx, f.admin, service.CategoryInput{Name: "Tech"})
	require.NoError(t, err)
	_, err = f.entries.Create(ctx, f.alice, service.EntryInput{Title: "a", Content: "x", Status: "published", Categories: []string{"tech"}})
	require.NoError(t, err)
	// private entries count in totals but not in the per-category public breakdown
	_, err = f.entries.Create(ctx, f.alice, service.EntryInput{Title: "b", Content: "x", IsPublic: boolPtr(false), Categories: []string{"tech"}})
	require.NoError(t, err)

	o, err := f.stats.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Overview{
		TotalEntries: 2, PublishedEntries: 1, PublicEntries: 1, RecentEntries: 2,
		TotalCategories: 1, TotalUsers: 3,
		Categories: []model.CategoryCount{{Name: "Tech", Slug: "tech", Count: 1}},
	}, o)
}

type failingEntries struct {
	repository.EntryRepository
	err error
}

func (f failingEntries) Count(context.Context, model.EntryFilter) (int, error) { return 0, f.err }

func TestEntryService_ListPassesStorageErrorsThrough(t *testing.T) {
	boom := errors.New("db down")
	db := memory.New()
	svc := service.NewEntryService(failingEntries{err: boom}, db.Categories(), db.Users(), db.TxManager(), zerolog.Nop())
	_, err := svc.List(context.Background(), model.Principal{}, service.EntryQuery{}, paging.Request{Page: 1, PerPage: 20}, nil)
	assert.Same(t, boom, err)
}
