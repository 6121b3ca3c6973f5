package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/knowledge-hub/internal/middleware"
	"github.com/maxviazov/knowledge-hub/internal/service"
	"github.com/maxviazov/knowledge-hub/pkg/response"
)

type CategoryHandler struct {
	svc service.CategoryService
}

func NewCategoryHandler(svc service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/categories")
	{
		g.GET("", h.list)
		g.POST("", middleware.RequireAdmin(), h.create)
	}
}

func (h *CategoryHandler) list(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, gin.H{"items": out})
}

func (h *CategoryHandler) create(c *gin.Context) {
	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	out, err := h.svc.Create(c.Request.Context(), middleware.PrincipalFrom(c), in)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, out)
}
