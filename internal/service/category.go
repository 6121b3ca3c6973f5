package service

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

type categoryService struct {
	repo repository.CategoryRepository
	log  zerolog.Logger
}

func NewCategoryService(repo repository.CategoryRepository, logger zerolog.Logger) CategoryService {
	l := logger.With().Str("module", "service").Str("component", "category").Logger()
	return &categoryService{repo: repo, log: l}
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list categories failed")
		return nil, err
	}
	return out, nil
}

func (s *categoryService) Create(ctx context.Context, p model.Principal, in CategoryInput) (model.Category, error) {
	if !p.Authenticated() {
		return model.Category{}, ErrUnauthorized
	}
	if !p.IsAdmin {
		return model.Category{}, ErrForbidden
	}

	name := strings.TrimSpace(in.Name)
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = defaultColor
	}
	var ferrs []FieldError
	switch {
	case name == "":
		ferrs = append(ferrs, FieldError{Field: "name", Message: "must not be empty"})
	case len([]rune(name)) > maxCategoryName:
		ferrs = append(ferrs, FieldError{Field: "name", Message: "must be at most 100 characters"})
	case slug.Make(name) == "":
		ferrs = append(ferrs, FieldError{Field: "name", Message: "must contain letters or digits"})
	}
	if !colorRe.MatchString(color) {
		ferrs = append(ferrs, FieldError{Field: "color", Message: "must be a hex color like #007bff"})
	}
	if err := NewInvalidInputError(ferrs); err != nil {
		return model.Category{}, err
	}

	out, err := s.repo.Create(ctx, model.Category{
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(in.Description),
		Color:       strings.ToLower(color),
	})
	if err != nil {
		s.log.Error().Err(err).Str("name", name).Msg("create category failed")
		return model.Category{}, err
	}
	s.log.Info().Int64("category_id", out.ID).Str("slug", out.Slug).Msg("category created")
	return out, nil
}
