package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/maxviazov/knowledge-hub/internal/auth"
	"github.com/maxviazov/knowledge-hub/internal/config"
	"github.com/maxviazov/knowledge-hub/internal/handler"
	"github.com/maxviazov/knowledge-hub/internal/middleware"
	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/repository"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

// stubPinger implements handler.Pinger for health endpoints.
type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

// stubEntryService records what the handler passed in and pages a fixed slice.
type stubEntryService struct {
	items  []model.Entry
	err    error
	gotReq paging.Request
	gotCur paging.CursorRequest
	gotQ   service.EntryQuery
	gotS   service.SearchQuery
	gotP   model.Principal
}

func (s *stubEntryService) List(ctx context.Context, p model.Principal, q service.EntryQuery, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error) {
	s.gotP, s.gotQ, s.gotReq = p, q, req
	if s.err != nil {
		return paging.Page[model.Entry]{}, s.err
	}
	return paging.PaginateSlice(s.items, req, -1, route), nil
}

func (s *stubEntryService) Feed(ctx context.Context, p model.Principal, q service.EntryQuery, req paging.CursorRequest, route *paging.Route) (paging.CursorPage[model.Entry], error) {
	s.gotCur = req
	out := paging.TrimCursor(s.items, req.PerPage, func(e model.Entry) int64 { return e.ID })
	out.Links = paging.BuildCursorLinks(route, out)
	return out, s.err
}

func (s *stubEntryService) Search(ctx context.Context, p model.Principal, q service.SearchQuery, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error) {
	s.gotS, s.gotReq = q, req
	if s.err != nil {
		return paging.Page[model.Entry]{}, s.err
	}
	return paging.PaginateSlice(s.items, req, -1, route), nil
}

func (s *stubEntryService) Popular(ctx context.Context, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error) {
	s.gotReq = req
	if s.err != nil {
		return paging.Page[model.Entry]{}, s.err
	}
	return paging.PaginateSlice(s.items, req, -1, route), nil
}

func (s *stubEntryService) Get(ctx context.Context, p model.Principal, id int64) (model.Entry, error) {
	for _, e := range s.items {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Entry{}, repository.ErrNotFound
}

func (s *stubEntryService) Create(ctx context.Context, p model.Principal, in service.EntryInput) (model.Entry, error) {
	s.gotP = p
	return model.Entry{ID: 99, Title: in.Title, AuthorID: p.UserID}, s.err
}

func (s *stubEntryService) Update(ctx context.Context, p model.Principal, id int64, in service.EntryInput) (model.Entry, error) {
	return model.Entry{ID: id, Title: in.Title}, s.err
}

func (s *stubEntryService) Delete(ctx context.Context, p model.Principal, id int64) error {
	return s.err
}

func entries(n int) []model.Entry {
	out := make([]model.Entry, n)
	for i := range out {
		out[i] = model.Entry{ID: int64(i + 1), Title: "e"}
	}
	return out
}

var testTokens = auth.NewTokens(config.AuthConfig{JWTSecret: "handler-test-secret", TokenTTL: 60})

// accounts backs Authenticate for stub-based tests; bearer registers every user it signs for.
type accounts struct {
	mu    sync.Mutex
	users map[int64]model.User
}

func (a *accounts) GetByID(_ context.Context, id int64) (model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

var testAccounts = &accounts{users: map[int64]model.User{}}

func bearer(t *testing.T, u model.User) string {
	t.Helper()
	u.IsActive = true
	testAccounts.mu.Lock()
	testAccounts.users[u.ID] = u
	testAccounts.mu.Unlock()
	tok, _, err := testTokens.Issue(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}

func newRouter(d handler.Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if d.Pipeline == nil {
		d.Pipeline = middleware.Pipeline{{Name: "auth", Handler: middleware.Authenticate(testTokens, testAccounts)}}
	}
	if d.Paging.Limits == (paging.Limits{}) {
		d.Paging.Limits = paging.DefaultLimits()
	}
	handler.Register(r, d)
	return r
}

func do(r http.Handler, method, target, authz string, body any) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEntries_List_ClampsAndLinks(t *testing.T) {
	stub := &stubEntryService{items: entries(45)}
	r := newRouter(handler.Deps{Entries: stub})

	w := do(r, http.MethodGet, "/api/v1/entries?page=2&per_page=10&category=go", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stub.gotReq != (paging.Request{Page: 2, PerPage: 10}) {
		t.Fatalf("unexpected request: %+v", stub.gotReq)
	}
	if stub.gotQ.Category != "go" {
		t.Fatalf("category not forwarded: %+v", stub.gotQ)
	}
	var body paging.Page[model.Entry]
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 10 || body.Pagination.Pages != 5 || *body.Pagination.NextNum != 3 {
		t.Fatalf("unexpected window: %+v", body.Pagination)
	}
	wantNext := "http://example.com/api/v1/entries?category=go&page=3&per_page=10"
	if body.Links.Next != wantNext {
		t.Fatalf("next link = %q", body.Links.Next)
	}
	if link := w.Header().Get("Link"); !strings.Contains(link, "<"+wantNext+`>; rel="next"`) {
		t.Fatalf("Link header missing next: %q", link)
	}

	// lenient by default: out-of-range values are corrected, not rejected
	w = do(r, http.MethodGet, "/api/v1/entries?page=-3&per_page=1000", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.gotReq != (paging.Request{Page: 1, PerPage: 100}) {
		t.Fatalf("expected clamped request, got %+v", stub.gotReq)
	}
}

func TestEntries_List_HugePageIsEmpty(t *testing.T) {
	stub := &stubEntryService{items: entries(45)}
	r := newRouter(handler.Deps{Entries: stub})

	for _, target := range []string{
		"/api/v1/entries?page=9223372036854775807",
		"/api/v1/search?author=nobody&page=9223372036854775807",
		"/api/v1/entries/popular?page=9223372036854775807&per_page=100",
	} {
		w := do(r, http.MethodGet, target, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", target, w.Code, w.Body.String())
		}
		var body paging.Page[model.Entry]
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Items) != 0 || body.Pagination.Total != 45 || body.Pagination.HasNext {
			t.Fatalf("%s: expected an empty page past the end, got %d items %+v", target, len(body.Items), body.Pagination)
		}
	}
}

func TestEntries_Popular(t *testing.T) {
	stub := &stubEntryService{items: entries(12)}
	r := newRouter(handler.Deps{Entries: stub})

	w := do(r, http.MethodGet, "/api/v1/entries/popular?per_page=5&page=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stub.gotReq != (paging.Request{Page: 2, PerPage: 5}) {
		t.Fatalf("unexpected request: %+v", stub.gotReq)
	}
	if !strings.Contains(w.Header().Get("Link"), "/api/v1/entries/popular?page=3&per_page=5") {
		t.Fatalf("expected next link on popular route, got %q", w.Header().Get("Link"))
	}
}

func TestEntries_List_StrictPolicyRejects(t *testing.T) {
	stub := &stubEntryService{items: entries(3)}
	r := newRouter(handler.Deps{Entries: stub, Paging: handler.Paging{Limits: paging.DefaultLimits(), Policy: paging.Strict}})

	w := do(r, http.MethodGet, "/api/v1/entries?per_page=1000", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "invalid_pagination" {
		t.Fatalf("unexpected payload: %v", resp)
	}
}

func TestEntries_Feed(t *testing.T) {
	stub := &stubEntryService{items: entries(3)}
	r := newRouter(handler.Deps{Entries: stub})

	w := do(r, http.MethodGet, "/api/v1/entries/feed?per_page=2&cursor="+paging.EncodeCursor(7), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if stub.gotCur.After == nil || *stub.gotCur.After != 7 || stub.gotCur.PerPage != 2 {
		t.Fatalf("unexpected cursor request: %+v", stub.gotCur)
	}
	if !strings.Contains(w.Header().Get("Link"), `rel="next"`) {
		t.Fatalf("expected next link, got %q", w.Header().Get("Link"))
	}

	w = do(r, http.MethodGet, "/api/v1/entries/feed?cursor=!!bogus", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed cursor, got %d", w.Code)
	}
}

func TestEntries_Search_ForwardsFilters(t *testing.T) {
	stub := &stubEntryService{items: entries(1)}
	r := newRouter(handler.Deps{Entries: stub})

	w := do(r, http.MethodGet, "/api/v1/search?q=go&author=alice&date_from=2024-01-01&date_to=2024-02-01&sort=title_asc", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	want := service.SearchQuery{Q: "go", Author: "alice", DateFrom: "2024-01-01", DateTo: "2024-02-01", Sort: "title_asc"}
	if stub.gotS != want {
		t.Fatalf("got %+v", stub.gotS)
	}

	stub.err = service.NewInvalidInputError([]service.FieldError{{Field: "q", Message: "required"}})
	w = do(r, http.MethodGet, "/api/v1/search", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEntries_Get(t *testing.T) {
	r := newRouter(handler.Deps{Entries: &stubEntryService{items: entries(2)}})

	if w := do(r, http.MethodGet, "/api/v1/entries/2", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/entries/5", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/entries/abc", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEntries_WritesRequireAuth(t *testing.T) {
	stub := &stubEntryService{}
	r := newRouter(handler.Deps{Entries: stub})

	in := map[string]any{"title": "t", "content": "c"}
	if w := do(r, http.MethodPost, "/api/v1/entries", "", in); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/entries", "Bearer nope", in); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}

	authz := bearer(t, model.User{ID: 4, Username: "alice"})
	w := do(r, http.MethodPost, "/api/v1/entries", authz, in)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if stub.gotP.UserID != 4 || stub.gotP.Username != "alice" {
		t.Fatalf("principal not forwarded: %+v", stub.gotP)
	}

	if w := do(r, http.MethodPost, "/api/v1/entries", authz, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing body, got %d", w.Code)
	}

	stub.err = service.ErrForbidden
	if w := do(r, http.MethodPut, "/api/v1/entries/1", authz, in); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	stub.err = nil
	if w := do(r, http.MethodDelete, "/api/v1/entries/1", authz, nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestEntries_StorageFailureIs500(t *testing.T) {
	r := newRouter(handler.Deps{Entries: &stubEntryService{err: errors.New("db gone")}})
	w := do(r, http.MethodGet, "/api/v1/entries", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "db gone") {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}

type stubCategoryService struct{ created service.CategoryInput }

func (s *stubCategoryService) List(ctx context.Context) ([]model.Category, error) {
	return []model.Category{{ID: 1, Name: "Go", Slug: "go"}}, nil
}

func (s *stubCategoryService) Create(ctx context.Context, p model.Principal, in service.CategoryInput) (model.Category, error) {
	s.created = in
	return model.Category{ID: 2, Name: in.Name}, nil
}

func TestCategories_AdminGuard(t *testing.T) {
	stub := &stubCategoryService{}
	r := newRouter(handler.Deps{Categories: stub})

	if w := do(r, http.MethodGet, "/api/v1/categories", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	in := map[string]string{"name": "Rust"}
	if w := do(r, http.MethodPost, "/api/v1/categories", "", in); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/categories", bearer(t, model.User{ID: 2, Username: "bob"}), in); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	w := do(r, http.MethodPost, "/api/v1/categories", bearer(t, model.User{ID: 1, Username: "root", IsAdmin: true}), in)
	if w.Code != http.StatusCreated || stub.created.Name != "Rust" {
		t.Fatalf("expected 201 with forwarded input, got %d (%+v)", w.Code, stub.created)
	}
}

func TestReadiness(t *testing.T) {
	r := newRouter(handler.Deps{Checks: []handler.Check{{Name: "database", Pinger: stubPinger{}}}})
	w := do(r, http.MethodGet, "/ready", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = do(r, http.MethodGet, "/api/v1/health/live", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	r = newRouter(handler.Deps{Checks: []handler.Check{
		{Name: "database", Pinger: stubPinger{}},
		{Name: "cache", Pinger: stubPinger{err: errors.New("redis down")}},
	}})
	w = do(r, http.MethodGet, "/api/v1/health/ready", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var resp struct {
		Checks map[string]string `json:"checks"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Checks["database"] != "ok" || resp.Checks["cache"] != "redis down" {
		t.Fatalf("unexpected checks: %v", resp.Checks)
	}
}

// countingStore is a cache.Store that remembers every key written.
type countingStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *countingStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *countingStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// switchPinger fails once err is set.
type switchPinger struct {
	mu  sync.Mutex
	err error
}

func (p *switchPinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *switchPinger) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func TestReadiness_BypassesPipeline(t *testing.T) {
	store := &countingStore{data: map[string][]byte{}}
	db := &switchPinger{}
	blocked := 0
	r := newRouter(handler.Deps{
		Checks:  []handler.Check{{Name: "database", Pinger: db}},
		Entries: &stubEntryService{items: entries(1)},
		Pipeline: middleware.Pipeline{
			{Name: "cache", Handler: middleware.ResponseCache(store, time.Minute, zerolog.Nop())},
			{Name: "deny", Handler: func(c *gin.Context) {
				blocked++
				c.AbortWithStatus(http.StatusTooManyRequests)
			}},
		},
	})

	if w := do(r, http.MethodGet, "/api/v1/health/ready", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	db.fail(errors.New("connection refused"))
	w := do(r, http.MethodGet, "/api/v1/health/ready", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected a fresh 503 after the dependency failed, got %d", w.Code)
	}
	if w.Header().Get(middleware.HeaderCache) != "" {
		t.Fatalf("readiness went through the response cache")
	}
	if len(store.data) != 0 || blocked != 0 {
		t.Fatalf("health must not touch the pipeline: cached=%d blocked=%d", len(store.data), blocked)
	}

	// the rest of the API still runs the pipeline
	if w := do(r, http.MethodGet, "/api/v1/entries", "", nil); w.Code != http.StatusTooManyRequests || blocked != 1 {
		t.Fatalf("expected pipeline on /entries, got %d (blocked=%d)", w.Code, blocked)
	}
}

func TestDocsAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "hub_docs_hits_total"}))
	r := newRouter(handler.Deps{Gatherer: reg})

	w := do(r, http.MethodGet, "/openapi.yaml", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/entries/feed") {
		t.Fatalf("openapi not served: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/docs", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = do(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "hub_docs_hits_total") {
		t.Fatalf("metrics not exposed: %d %s", w.Code, w.Body.String())
	}
}
