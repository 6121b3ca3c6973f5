package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/knowledge-hub/internal/middleware"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/service"
	"github.com/maxviazov/knowledge-hub/pkg/response"
)

// UserHandler serves the auth endpoints, profiles and the admin user listing.
type UserHandler struct {
	svc    service.UserService
	paging Paging
}

func NewUserHandler(svc service.UserService, p Paging) *UserHandler {
	return &UserHandler{svc: svc, paging: p}
}

func (h *UserHandler) Register(r *gin.RouterGroup) {
	r.POST("/auth/login", h.login)
	r.POST("/auth/register", h.register)
	r.POST("/auth/refresh", h.refresh)
	r.GET("/users", middleware.RequireAdmin(), h.list)
	r.GET("/users/:user_id", middleware.RequireAuth(), h.get)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UserHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, sess)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, u)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *UserHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	sess, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, sess)
}

func (h *UserHandler) get(c *gin.Context) {
	id, err := pathID(c, "user_id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	u, err := h.svc.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, u)
}

func (h *UserHandler) list(c *gin.Context) {
	req, err := paging.ParseQuery(c.Request.URL.Query(), h.paging.Limits, h.paging.Policy)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	page, err := h.svc.List(c.Request.Context(), middleware.PrincipalFrom(c), req, routeOf(c))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WritePage(c, page)
}
