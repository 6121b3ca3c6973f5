package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/knowledge-hub/internal/graph"
	"github.com/maxviazov/knowledge-hub/internal/middleware"
	"github.com/maxviazov/knowledge-hub/internal/service"
	"github.com/maxviazov/knowledge-hub/pkg/response"
)

type GraphHandler struct {
	exec *graph.Executor
}

func NewGraphHandler(exec *graph.Executor) *GraphHandler { return &GraphHandler{exec: exec} }

func (h *GraphHandler) Register(r *gin.RouterGroup) {
	r.POST("/graphql", h.query)
}

// query always answers 200 once the body parses; resolver failures travel in "errors".
func (h *GraphHandler) query(c *gin.Context) {
	var req graph.Request
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		response.WriteError(c, service.NewInvalidInputError([]service.FieldError{{Field: "query", Message: "must not be empty"}}))
		return
	}
	res := h.exec.Execute(c.Request.Context(), req, middleware.PrincipalFrom(c))
	c.JSON(http.StatusOK, res)
}
