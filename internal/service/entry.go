package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

// entryService holds entry use-case logic: validation, visibility and paging orchestration.
type entryService struct {
	entries    repository.EntryRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	tx         repository.TxManager
	log        zerolog.Logger
	now        func() time.Time
}

func NewEntryService(
	entries repository.EntryRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	tx repository.TxManager,
	logger zerolog.Logger,
) EntryService {
	l := logger.With().Str("module", "service").Str("component", "entry").Logger()
	return &entryService{
		entries: entries, categories: categories, users: users, tx: tx,
		log: l, now: func() time.Time { return time.Now().UTC() },
	}
}

// source binds a filter to the repository so the paging layer can drive count and slice.
func (s *entryService) source(f model.EntryFilter) paging.Source[model.Entry] {
	return paging.SourceFuncs[model.Entry]{
		CountFn: func(ctx context.Context) (int, error) { return s.entries.Count(ctx, f) },
		SliceFn: func(ctx context.Context, offset, limit int) ([]model.Entry, error) {
			return s.entries.List(ctx, f, repository.Page{Limit: limit, Offset: offset})
		},
	}
}

func (s *entryService) List(ctx context.Context, p model.Principal, q EntryQuery, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error) {
	start := time.Now()
	f := model.EntryFilter{
		Visibility: model.VisibilityFor(p),
		Category:   strings.TrimSpace(q.Category),
		Search:     strings.TrimSpace(q.Search),
		Sort:       model.NormalizeSort(q.Sort),
	}
	page, err := paging.Paginate(ctx, req, s.source(f), route)
	if err != nil {
		s.log.Error().Err(err).Int("page", req.Page).Int("per_page", req.PerPage).Msg("list entries failed")
		return paging.Page[model.Entry]{}, err
	}
	s.log.Debug().Dur("took", time.Since(start)).Int("total", page.Pagination.Total).Int("page", page.Pagination.Page).Msg("entries listed")
	return page, nil
}

func (s *entryService) Feed(ctx context.Context, p model.Principal, q EntryQuery, req paging.CursorRequest, route *paging.Route) (paging.CursorPage[model.Entry], error) {
	f := model.EntryFilter{
		Visibility: model.VisibilityFor(p),
		Category:   strings.TrimSpace(q.Category),
		Search:     strings.TrimSpace(q.Search),
	}
	src := paging.CursorSourceFunc[model.Entry](func(ctx context.Context, after *int64, limit int) ([]model.Entry, error) {
		return s.entries.ListAfter(ctx, f, after, limit)
	})
	out, err := paging.PaginateCursor(ctx, req, src, entryKey, route)
	if err != nil {
		s.log.Error().Err(err).Int("per_page", req.PerPage).Msg("entry feed failed")
		return paging.CursorPage[model.Entry]{}, err
	}
	return out, nil
}

func entryKey(e model.Entry) int64 { return e.ID }

// Popular pages public entries by view count. Visibility is fixed to public for every caller.
func (s *entryService) Popular(ctx context.Context, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error) {
	f := model.EntryFilter{Sort: model.SortViewsDesc}
	page, err := paging.Paginate(ctx, req, s.source(f), route)
	if err != nil {
		s.log.Error().Err(err).Int("page", req.Page).Msg("popular entries failed")
		return paging.Page[model.Entry]{}, err
	}
	return page, nil
}

func (s *entryService) Search(ctx context.Context, p model.Principal, q SearchQuery, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error) {
	q.Q, q.Category, q.Author = strings.TrimSpace(q.Q), strings.TrimSpace(q.Category), strings.TrimSpace(q.Author)

	var ferrs []FieldError
	if q.Q == "" && q.Category == "" && q.Author == "" {
		ferrs = append(ferrs, FieldError{Field: "q", Message: "at least one of q, category or author is required"})
	}
	from, ok := parseDate(q.DateFrom, false)
	if !ok {
		ferrs = append(ferrs, FieldError{Field: "date_from", Message: "must be RFC3339 or YYYY-MM-DD"})
	}
	to, ok := parseDate(q.DateTo, true)
	if !ok {
		ferrs = append(ferrs, FieldError{Field: "date_to", Message: "must be RFC3339 or YYYY-MM-DD"})
	}
	if from != nil && to != nil && to.Before(*from) {
		ferrs = append(ferrs, FieldError{Field: "date_to", Message: "must not be before date_from"})
	}
	if err := NewInvalidInputError(ferrs); err != nil {
		s.log.Debug().Interface("field_errors", ferrs).Msg("search validation failed")
		return paging.Page[model.Entry]{}, err
	}

	f := model.EntryFilter{
		Visibility: model.VisibilityFor(p),
		Category:   q.Category,
		Search:     q.Q,
		From:       from,
		To:         to,
		Sort:       model.NormalizeSort(q.Sort),
	}
	if q.Author != "" {
		u, err := s.users.GetByUsername(ctx, q.Author)
		if errors.Is(err, repository.ErrNotFound) {
			// unknown author matches nothing; still answer with a well-formed empty page
			return paging.PaginateSlice([]model.Entry{}, req, 0, route), nil
		}
		if err != nil {
			return paging.Page[model.Entry]{}, err
		}
		f.AuthorID = &u.ID
	}
	page, err := paging.Paginate(ctx, req, s.source(f), route)
	if err != nil {
		s.log.Error().Err(err).Str("q", q.Q).Msg("search entries failed")
		return paging.Page[model.Entry]{}, err
	}
	return page, nil
}

func (s *entryService) Get(ctx context.Context, p model.Principal, id int64) (model.Entry, error) {
	e, err := s.visible(ctx, p, id)
	if err != nil {
		return model.Entry{}, err
	}
	if err := s.entries.IncrementViews(ctx, id); err != nil {
		// a lost view is not worth failing the read
		s.log.Warn().Err(err).Int64("entry_id", id).Msg("increment views failed")
		return e, nil
	}
	e.ViewCount++
	return e, nil
}

// visible loads id and hides entries the caller may not see behind ErrNotFound.
func (s *entryService) visible(ctx context.Context, p model.Principal, id int64) (model.Entry, error) {
	if id <= 0 {
		return model.Entry{}, NewInvalidInputError([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return model.Entry{}, err
	}
	if !p.CanView(e) {
		return model.Entry{}, repository.ErrNotFound
	}
	return e, nil
}

func (s *entryService) Create(ctx context.Context, p model.Principal, in EntryInput) (model.Entry, error) {
	start := time.Now()
	if !p.Authenticated() {
		return model.Entry{}, ErrUnauthorized
	}
	e := model.Entry{AuthorID: p.UserID, Status: model.StatusDraft, Priority: model.PriorityNormal, IsPublic: true}
	cats, err := s.apply(ctx, &e, in)
	if err != nil {
		return model.Entry{}, err
	}

	var out model.Entry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sl, err := s.uniqueSlug(ctx, e.Title)
		if err != nil {
			return err
		}
		e.Slug = sl
		created, err := s.entries.Create(ctx, e)
		if err != nil {
			return err
		}
		if err := s.entries.SetCategories(ctx, created.ID, cats); err != nil {
			return err
		}
		out, err = s.entries.GetByID(ctx, created.ID)
		return err
	})
	if err != nil {
		// Repository surfaces domain-level errors already, do not wrap.
		s.log.Error().Err(err).Str("title", e.Title).Msg("create entry failed")
		return model.Entry{}, err
	}
	s.log.Info().Dur("took", time.Since(start)).Int64("entry_id", out.ID).Str("slug", out.Slug).Msg("entry created")
	return out, nil
}

func (s *entryService) Update(ctx context.Context, p model.Principal, id int64, in EntryInput) (model.Entry, error) {
	if !p.Authenticated() {
		return model.Entry{}, ErrUnauthorized
	}
	cur, err := s.visible(ctx, p, id)
	if err != nil {
		return model.Entry{}, err
	}
	if !p.CanModify(cur) {
		return model.Entry{}, ErrForbidden
	}
	oldTitle := cur.Title
	cats, err := s.apply(ctx, &cur, in)
	if err != nil {
		return model.Entry{}, err
	}

	var out model.Entry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if cur.Title != oldTitle {
			sl, err := s.uniqueSlug(ctx, cur.Title)
			if err != nil {
				return err
			}
			cur.Slug = sl
		}
		if _, err := s.entries.Update(ctx, cur); err != nil {
			return err
		}
		if err := s.entries.SetCategories(ctx, cur.ID, cats); err != nil {
			return err
		}
		out, err = s.entries.GetByID(ctx, cur.ID)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Int64("entry_id", id).Msg("update entry failed")
		return model.Entry{}, err
	}
	s.log.Info().Int64("entry_id", id).Msg("entry updated")
	return out, nil
}

func (s *entryService) Delete(ctx context.Context, p model.Principal, id int64) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}
	cur, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !p.CanModify(cur) {
		return ErrForbidden
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		s.log.Error().Err(err).Int64("entry_id", id).Msg("delete entry failed")
		return err
	}
	s.log.Info().Int64("entry_id", id).Int64("by", p.UserID).Msg("entry deleted")
	return nil
}

// apply validates in and copies it onto e. It returns the cleaned category slugs.
func (s *entryService) apply(ctx context.Context, e *model.Entry, in EntryInput) ([]string, error) {
	var ferrs []FieldError

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		ferrs = append(ferrs, FieldError{Field: "title", Message: "must not be empty"})
	case len([]rune(title)) > maxTitleLen:
		ferrs = append(ferrs, FieldError{Field: "title", Message: "must be at most 200 characters"})
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		ferrs = append(ferrs, FieldError{Field: "content", Message: "must not be empty"})
	}
	summary := strings.TrimSpace(in.Summary)
	if len([]rune(summary)) > maxSummaryLen {
		ferrs = append(ferrs, FieldError{Field: "summary", Message: "must be at most 500 characters"})
	}

	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = e.Status
	}
	if !isValidStatus(status) {
		ferrs = append(ferrs, FieldError{Field: "status", Message: "must be one of draft, published, archived"})
	}
	priority := strings.ToLower(strings.TrimSpace(in.Priority))
	if priority == "" {
		priority = e.Priority
	}
	if !isValidPriority(priority) {
		ferrs = append(ferrs, FieldError{Field: "priority", Message: "must be one of low, normal, high, critical"})
	}

	tags := cleanList(in.Tags)
	if len(tags) > maxTags {
		ferrs = append(ferrs, FieldError{Field: "tags", Message: "at most 20 tags are allowed"})
	}
	cats := cleanList(in.Categories)
	for _, c := range cats {
		if _, err := s.categories.GetBySlug(ctx, c); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				ferrs = append(ferrs, FieldError{Field: "categories", Message: "unknown category " + strconv.Quote(c)})
				continue
			}
			return nil, err
		}
	}
	if err := NewInvalidInputError(ferrs); err != nil {
		s.log.Debug().Interface("field_errors", ferrs).Msg("entry validation failed")
		return nil, err
	}

	e.Title, e.Summary, e.Content = title, summary, content
	e.Priority, e.Tags, e.Featured = priority, tags, in.Featured
	if in.IsPublic != nil {
		e.IsPublic = *in.IsPublic
	}
	if status == model.StatusPublished && e.PublishedAt == nil {
		now := s.now()
		e.PublishedAt = &now
	}
	e.Status = status
	e.WordCount, e.ReadingTime = readingStats(content)
	return cats, nil
}

// uniqueSlug derives a slug from title and appends -2, -3, ... until it is free.
func (s *entryService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "entry"
	}
	candidate := base
	for n := 2; ; n++ {
		taken, err := s.entries.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}
