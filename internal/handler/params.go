package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

// Paging is the REST list policy. Every REST list endpoint shares it.
type Paging struct {
	Limits paging.Limits
	Policy paging.Policy
}

// routeOf rebuilds the absolute request URL so navigation links are usable as-is.
func routeOf(c *gin.Context) *paging.Route {
	u := *c.Request.URL
	u.Scheme = "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		u.Scheme = "https"
	}
	u.Host = c.Request.Host
	return paging.NewRoute(&u)
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.NewInvalidInputError([]service.FieldError{{Field: name, Message: "must be a positive integer"}})
	}
	return id, nil
}
