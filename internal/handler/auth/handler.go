package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

type EmailChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

type Handler struct {
	service EmailChecker
}

func NewHandler(service EmailChecker) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public auth endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/check-email", h.CheckEmail)
}

// RegisterProtectedRoutes mounts endpoints that need a token but no role.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/role", h.Role)
}

func (h *Handler) CheckEmail(c *gin.Context) {
	var req model.CheckEmailRequest
	if !handler.Bind(c, &req) {
		return
	}

	exists, err := h.service.EmailExists(c.Request.Context(), req.Email)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"exists": exists})
}

// Role returns the caller's role, or null when no profile carries one.
func (h *Handler) Role(c *gin.Context) {
	actor := handler.Actor(c)
	if actor == nil || actor.Role == "" {
		handler.OK(c, http.StatusOK, gin.H{"role": nil})
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"role": actor.Role})
}
