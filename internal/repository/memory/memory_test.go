package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
	"github.com/maxviazov/knowledge-hub/internal/repository/contract"
)

func makeStore(t *testing.T) (contract.Store, func()) {
	db := New()
	return contract.Store{
		Entries:    db.Entries(),
		Categories: db.Categories(),
		Users:      db.Users(),
		Tx:         db.TxManager(),
	}, func() {}
}

func TestEntryRepository_MemoryContract(t *testing.T) {
	contract.RunEntryRepositoryContract(t, makeStore)
}

func TestCategoryRepository_MemoryContract(t *testing.T) {
	contract.RunCategoryRepositoryContract(t, makeStore)
}

func TestUserRepository_MemoryContract(t *testing.T) {
	contract.RunUserRepositoryContract(t, makeStore)
}

func TestTxManager_MemoryContract(t *testing.T) {
	contract.RunTxManagerContract(t, makeStore)
}

func TestPinger_MemoryContract(t *testing.T) {
	contract.RunPingerContract(t, func(t *testing.T) (repository.Pinger, func()) {
		return New().Pinger(), func() {}
	})
}

func TestEntryCreate_UnknownAuthorConflicts(t *testing.T) {
	_, err := New().Entries().Create(context.Background(), model.Entry{Title: "x", Slug: "x", AuthorID: 42})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestEntryRepository_ReturnsCopies(t *testing.T) {
	db := New()
	ctx := context.Background()
	u, err := db.Users().Create(ctx, model.User{Username: "a", Email: "a@x"})
	require.NoError(t, err)
	e, err := db.Entries().Create(ctx, model.Entry{Title: "t", Slug: "t", AuthorID: u.ID, Tags: []string{"one"}})
	require.NoError(t, err)

	e.Tags[0] = "mutated"
	got, err := db.Entries().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, got.Tags)
}

func TestEntryRepository_ConcurrentViews(t *testing.T) {
	db := New()
	ctx := context.Background()
	u, _ := db.Users().Create(ctx, model.User{Username: "a", Email: "a@x"})
	e, _ := db.Entries().Create(ctx, model.Entry{Title: "t", Slug: "t", AuthorID: u.ID})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.Entries().IncrementViews(ctx, e.ID)
		}()
	}
	wg.Wait()
	got, _ := db.Entries().GetByID(ctx, e.ID)
	assert.Equal(t, int64(50), got.ViewCount)
}
