package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/knowledge-hub/internal/auth"
	"github.com/maxviazov/knowledge-hub/internal/config"
	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

func newEngine(p Pipeline, h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(p.Handlers()...)
	r.GET("/things/:id", h)
	return r
}

func do(r http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": c.Param("id")}) }

func TestPipeline_OrderAndNames(t *testing.T) {
	var order []string
	mark := func(name string) Stage {
		return Stage{Name: name, Handler: func(c *gin.Context) { order = append(order, name); c.Next() }}
	}
	p := Pipeline{mark("a"), {Name: "disabled"}, mark("b")}
	q := p.Then(mark("c"))

	assert.Equal(t, []string{"a", "b"}, p.Names())
	assert.Equal(t, []string{"a", "b", "c"}, q.Names())

	do(newEngine(q, ok), http.MethodGet, "/things/1", nil)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	r := newEngine(Pipeline{{Name: "request_id", Handler: RequestID()}}, func(c *gin.Context) {
		seen = RequestIDFrom(c)
		c.Status(http.StatusNoContent)
	})

	w := do(r, http.MethodGet, "/things/1", nil)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), seen)

	w = do(r, http.MethodGet, "/things/1", map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = do(r, http.MethodGet, "/things/1", map[string]string{HeaderRequestID: strings.Repeat("x", 500)})
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestAccessLog_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	r := newEngine(Pipeline{{Name: "request_id", Handler: RequestID()}, {Name: "access_log", Handler: AccessLog(log)}}, ok)

	do(r, http.MethodGet, "/things/7?page=2", map[string]string{HeaderRequestID: "rid-1"})
	line := buf.String()
	assert.Contains(t, line, `"request_id":"rid-1"`)
	assert.Contains(t, line, `"path":"/things/7"`)
	assert.Contains(t, line, `"query":"page=2"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"level":"info"`)
}

func TestMetrics_LabelsByRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	r := newEngine(Pipeline{{Name: "metrics", Handler: m.Handler()}}, ok)

	do(r, http.MethodGet, "/things/1", nil)
	do(r, http.MethodGet, "/things/2", nil)
	do(r, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, 2.0, counterValue(t, reg, "/things/:id", "200"))
	assert.Equal(t, 1.0, counterValue(t, reg, "unmatched", "404"))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "double registration must fail")
}

func counterValue(t *testing.T, reg *prometheus.Registry, route, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "knowledge_hub_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label(m, "route") == route && label(m, "status") == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestRateLimiter_RejectsOverBudget(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2})
	rl.now = func() time.Time { return now }
	r := newEngine(Pipeline{{Name: "rate_limit", Handler: rl.Handler()}}, ok)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/things/1", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/things/1", nil).Code)
	w := do(r, http.MethodGet, "/things/1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/things/1", nil).Code)
}

func TestRateLimiter_SeparateBucketsAndSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1, Burst: 1})
	rl.now = func() time.Time { return now }

	a, _ := rl.allow("a")
	b, _ := rl.allow("b")
	again, wait := rl.allow("a")
	assert.True(t, a)
	assert.True(t, b)
	assert.False(t, again)
	assert.Greater(t, wait, time.Duration(0))

	now = now.Add(visitorIdleTTL + 2*sweepEvery)
	rl.allow("c")
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimiter_ConcurrentSafe(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMinute: 6000, Burst: 1000})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rl.allow("shared")
		}()
	}
	wg.Wait()
	assert.Len(t, rl.visitors, 1)
}

func newTokens() *auth.Tokens {
	return auth.NewTokens(config.AuthConfig{JWTSecret: "0123456789abcdef", TokenTTL: 60})
}

// userTable is an in-memory UserLookup.
type userTable struct {
	mu    sync.Mutex
	users map[int64]model.User
	err   error
}

func (u *userTable) GetByID(_ context.Context, id int64) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return model.User{}, u.err
	}
	got, ok := u.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return got, nil
}

func (u *userTable) update(id int64, fn func(*model.User)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	got := u.users[id]
	fn(&got)
	u.users[id] = got
}

func activeUsers() *userTable {
	return &userTable{users: map[int64]model.User{
		1: {ID: 1, Username: "u", IsActive: true},
		2: {ID: 2, Username: "a", IsAdmin: true, IsActive: true},
		3: {ID: 3, Username: "carol", IsActive: true},
	}}
}

func TestAuthenticate(t *testing.T) {
	tokens := newTokens()
	var got model.Principal
	r := newEngine(Pipeline{{Name: "auth", Handler: Authenticate(tokens, activeUsers())}}, func(c *gin.Context) {
		got = PrincipalFrom(c)
		c.Status(http.StatusNoContent)
	})

	w := do(r, http.MethodGet, "/things/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, got.Authenticated())

	raw, _, err := tokens.Issue(model.User{ID: 3, Username: "carol"})
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/things/1", map[string]string{"Authorization": "Bearer " + raw})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(3), got.UserID)

	for _, h := range []string{"Bearer", "Basic abc", "Bearer nope"} {
		w = do(r, http.MethodGet, "/things/1", map[string]string{"Authorization": h})
		assert.Equal(t, http.StatusUnauthorized, w.Code, h)
	}
}

func TestAuthenticate_PrincipalComesFromStoredUser(t *testing.T) {
	tokens := newTokens()
	users := activeUsers()
	r := newEngine(Pipeline{
		{Name: "auth", Handler: Authenticate(tokens, users)},
		{Name: "admin", Handler: RequireAdmin()},
	}, ok)

	raw, _, err := tokens.Issue(model.User{ID: 2, Username: "a", IsAdmin: true})
	require.NoError(t, err)
	hdr := map[string]string{"Authorization": "Bearer " + raw}
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/things/1", hdr).Code)

	// admin revoked after the token was issued
	users.update(2, func(u *model.User) { u.IsAdmin = false })
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/things/1", hdr).Code)

	// a token claiming admin for a plain account does not elevate it
	forged, _, _ := tokens.Issue(model.User{ID: 1, Username: "u", IsAdmin: true})
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/things/1", map[string]string{"Authorization": "Bearer " + forged}).Code)

	users.update(2, func(u *model.User) { u.IsActive = false })
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/things/1", hdr).Code)

	gone, _, _ := tokens.Issue(model.User{ID: 42, Username: "ghost"})
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/things/1", map[string]string{"Authorization": "Bearer " + gone}).Code)

	users.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/things/1", hdr).Code)
}

func TestRequireAdmin(t *testing.T) {
	tokens := newTokens()
	r := newEngine(Pipeline{
		{Name: "auth", Handler: Authenticate(tokens, activeUsers())},
		{Name: "admin", Handler: RequireAdmin()},
	}, ok)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/things/1", nil).Code)

	user, _, _ := tokens.Issue(model.User{ID: 1, Username: "u"})
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/things/1", map[string]string{"Authorization": "Bearer " + user}).Code)

	admin, _, _ := tokens.Issue(model.User{ID: 2, Username: "a", IsAdmin: true})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/things/1", map[string]string{"Authorization": "Bearer " + admin}).Code)
}

func TestRequireAuth(t *testing.T) {
	tokens := newTokens()
	r := newEngine(Pipeline{{Name: "auth", Handler: Authenticate(tokens, activeUsers())}, {Name: "require_auth", Handler: RequireAuth()}}, ok)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/things/1", nil).Code)
	raw, _, _ := tokens.Issue(model.User{ID: 1, Username: "u"})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/things/1", map[string]string{"Authorization": "Bearer " + raw}).Code)
}

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func TestResponseCache_ServesAnonymousHits(t *testing.T) {
	store := &mapStore{data: map[string][]byte{}}
	calls := 0
	tokens := newTokens()
	r := newEngine(Pipeline{
		{Name: "auth", Handler: Authenticate(tokens, activeUsers())},
		{Name: "cache", Handler: ResponseCache(store, time.Minute, zerolog.Nop())},
	}, func(c *gin.Context) {
		calls++
		c.Header("Link", `</things/2>; rel="next"`)
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	first := do(r, http.MethodGet, "/things/1?page=1", nil)
	assert.Equal(t, "MISS", first.Header().Get(HeaderCache))
	second := do(r, http.MethodGet, "/things/1?page=1", nil)
	assert.Equal(t, "HIT", second.Header().Get(HeaderCache))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, `</things/2>; rel="next"`, second.Header().Get("Link"))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	do(r, http.MethodGet, "/things/1?page=2", nil)
	assert.Equal(t, 2, calls, "different query is a different key")

	raw, _, _ := tokens.Issue(model.User{ID: 1, Username: "u"})
	w := do(r, http.MethodGet, "/things/1?page=1", map[string]string{"Authorization": "Bearer " + raw})
	assert.Empty(t, w.Header().Get(HeaderCache))
	assert.Equal(t, 3, calls)
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	store := &mapStore{data: map[string][]byte{}}
	r := newEngine(Pipeline{{Name: "cache", Handler: ResponseCache(store, time.Minute, zerolog.Nop())}}, func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})
	do(r, http.MethodGet, "/things/1", nil)
	assert.Zero(t, store.sets)
}
