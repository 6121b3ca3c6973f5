package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/knowledge-hub/internal/middleware"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/service"
	"github.com/maxviazov/knowledge-hub/pkg/response"
)

type EntryHandler struct {
	svc    service.EntryService
	paging Paging
}

func NewEntryHandler(svc service.EntryService, p Paging) *EntryHandler {
	return &EntryHandler{svc: svc, paging: p}
}

func (h *EntryHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/entries")
	{
		g.GET("", h.list)
		// static segment first; gin resolves it before the :entry_id wildcard
		g.GET("/feed", h.feed)
		g.GET("/popular", h.popular)
		g.GET("/:entry_id", h.get)
		g.POST("", middleware.RequireAuth(), h.create)
		g.PUT("/:entry_id", middleware.RequireAuth(), h.update)
		g.DELETE("/:entry_id", middleware.RequireAuth(), h.remove)
	}
	r.GET("/search", h.search)
}

func (h *EntryHandler) list(c *gin.Context) {
	req, err := paging.ParseQuery(c.Request.URL.Query(), h.paging.Limits, h.paging.Policy)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	q := service.EntryQuery{Category: c.Query("category"), Search: c.Query("search"), Sort: c.Query("sort")}
	page, err := h.svc.List(c.Request.Context(), middleware.PrincipalFrom(c), q, req, routeOf(c))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WritePage(c, page)
}

func (h *EntryHandler) feed(c *gin.Context) {
	req, err := paging.ParseCursorQuery(c.Request.URL.Query(), h.paging.Limits, h.paging.Policy)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	q := service.EntryQuery{Category: c.Query("category"), Search: c.Query("search")}
	page, err := h.svc.Feed(c.Request.Context(), middleware.PrincipalFrom(c), q, req, routeOf(c))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteCursorPage(c, page)
}

func (h *EntryHandler) popular(c *gin.Context) {
	req, err := paging.ParseQuery(c.Request.URL.Query(), h.paging.Limits, h.paging.Policy)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	page, err := h.svc.Popular(c.Request.Context(), req, routeOf(c))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WritePage(c, page)
}

func (h *EntryHandler) search(c *gin.Context) {
	req, err := paging.ParseQuery(c.Request.URL.Query(), h.paging.Limits, h.paging.Policy)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	q := service.SearchQuery{
		Q:        c.Query("q"),
		Category: c.Query("category"),
		Author:   c.Query("author"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
		Sort:     c.Query("sort"),
	}
	page, err := h.svc.Search(c.Request.Context(), middleware.PrincipalFrom(c), q, req, routeOf(c))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WritePage(c, page)
}

func (h *EntryHandler) get(c *gin.Context) {
	id, err := pathID(c, "entry_id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	e, err := h.svc.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, e)
}

func (h *EntryHandler) create(c *gin.Context) {
	var in service.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	e, err := h.svc.Create(c.Request.Context(), middleware.PrincipalFrom(c), in)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, e)
}

func (h *EntryHandler) update(c *gin.Context) {
	id, err := pathID(c, "entry_id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	var in service.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	e, err := h.svc.Update(c.Request.Context(), middleware.PrincipalFrom(c), id, in)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, e)
}

func (h *EntryHandler) remove(c *gin.Context) {
	id, err := pathID(c, "entry_id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.PrincipalFrom(c), id); err != nil {
		response.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
