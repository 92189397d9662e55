package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	notificationsvc "github.com/sghealthtrack/healthtrack-api/internal/service/notification"
)

// Handler serves the patient's notification inbox.
type Handler struct {
	inbox notificationsvc.Inbox
}

func NewHandler(inbox notificationsvc.Inbox) *Handler {
	return &Handler{inbox: inbox}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, require handler.Guard) {
	guard := require(model.ActionReadNotifications)
	rg.GET("/notifications/me", guard, h.List)
	rg.PATCH("/notifications/:id/read", guard, h.MarkRead)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.inbox.List(c.Request.Context(), handler.Actor(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Fail(c, http.StatusBadRequest, "Invalid notification id")
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), handler.Actor(c), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"id": id})
}
