package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxviazov/knowledge-hub/internal/cache"
)

// HeaderCache reports HIT or MISS for cacheable requests.
const HeaderCache = "X-Cache"

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Link        string `json:"link,omitempty"`
	Body        []byte `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache serves anonymous GET responses from store for ttl.
// Authenticated reads bypass it because visibility depends on the caller.
// Store failures degrade to a pass-through.
func ResponseCache(store cache.Store, ttl time.Duration, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("module", "http").Str("component", "cache").Logger()
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || PrincipalFrom(c).Authenticated() || ttl <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := c.Request.URL.RequestURI()

		if raw, ok, err := store.Get(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		} else if ok {
			var cr cachedResponse
			if err := json.Unmarshal(raw, &cr); err == nil {
				if cr.Link != "" {
					c.Header("Link", cr.Link)
				}
				c.Header(HeaderCache, "HIT")
				c.Data(cr.Status, cr.ContentType, cr.Body)
				c.Abort()
				return
			}
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Header(HeaderCache, "MISS")
		c.Next()

		if rec.Status() != http.StatusOK {
			return
		}
		raw, err := json.Marshal(cachedResponse{
			Status:      rec.Status(),
			ContentType: rec.Header().Get("Content-Type"),
			Link:        rec.Header().Get("Link"),
			Body:        rec.buf.Bytes(),
		})
		if err != nil {
			return
		}
		if err := store.Set(ctx, key, raw, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
}
