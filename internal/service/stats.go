package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

type statsService struct {
	entries    repository.EntryRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	log        zerolog.Logger
	now        func() time.Time
}

func NewStatsService(entries repository.EntryRepository, categories repository.CategoryRepository, users repository.UserRepository, logger zerolog.Logger) StatsService {
	l := logger.With().Str("module", "service").Str("component", "stats").Logger()
	return &statsService{entries: entries, categories: categories, users: users, log: l, now: time.Now}
}

func (s *statsService) Overview(ctx context.Context) (model.Overview, error) {
	var (
		out model.Overview
		err error
	)
	all := model.Visibility{All: true}
	if out.TotalEntries, err = s.entries.Count(ctx, model.EntryFilter{Visibility: all}); err != nil {
		return model.Overview{}, err
	}
	if out.PublishedEntries, err = s.entries.Count(ctx, model.EntryFilter{Visibility: all, Status: model.StatusPublished}); err != nil {
		return model.Overview{}, err
	}
	// anonymous visibility is exactly "public"
	if out.PublicEntries, err = s.entries.Count(ctx, model.EntryFilter{}); err != nil {
		return model.Overview{}, err
	}
	since := s.now().Add(-model.RecentWindow)
	if out.RecentEntries, err = s.entries.Count(ctx, model.EntryFilter{Visibility: all, From: &since}); err != nil {
		return model.Overview{}, err
	}
	cats, err := s.categories.List(ctx)
	if err != nil {
		return model.Overview{}, err
	}
	out.TotalCategories = len(cats)
	out.Categories = make([]model.CategoryCount, 0, len(cats))
	for _, c := range cats {
		n, err := s.entries.Count(ctx, model.EntryFilter{Category: c.Slug})
		if err != nil {
			return model.Overview{}, err
		}
		out.Categories = append(out.Categories, model.CategoryCount{Name: c.Name, Slug: c.Slug, Count: n})
	}
	if out.TotalUsers, err = s.users.Count(ctx); err != nil {
		s.log.Error().Err(err).Msg("count users failed")
		return model.Overview{}, err
	}
	return out, nil
}
