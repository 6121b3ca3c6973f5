package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/knowledge-hub/internal/service"
	"github.com/maxviazov/knowledge-hub/pkg/response"
)

type StatsHandler struct {
	svc service.StatsService
}

func NewStatsHandler(svc service.StatsService) *StatsHandler { return &StatsHandler{svc: svc} }

func (h *StatsHandler) Register(r *gin.RouterGroup) {
	r.GET("/stats/overview", h.overview)
}

func (h *StatsHandler) overview(c *gin.Context) {
	out, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, out)
}
