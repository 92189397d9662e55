package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

// Scheduler is the front-desk part of the workflow.
type Scheduler interface {
	ListAll(ctx context.Context) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.UpdateStatusRequest) (*model.Appointment, error)
	Approve(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.ApproveRequest) (*model.Appointment, error)
	Reject(ctx context.Context, actor *model.Actor, id uuid.UUID, reason string) (*model.Appointment, error)
	ConfirmArrival(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error)
	NoShow(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error)
	Availability(ctx context.Context, month string) (map[string][]string, error)
	SendNotification(ctx context.Context, req model.SendNotificationRequest) (*model.Notification, error)
}

type Handler struct {
	service Scheduler
}

func NewHandler(service Scheduler) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, require handler.Guard) {
	admin := rg.Group("/admin")
	{
		admin.GET("/appointments", require(model.ActionManageAppointments), h.List)
		admin.PATCH("/appointments/:id/status", require(model.ActionManageAppointments), h.UpdateStatus)

		schedule := require(model.ActionScheduleAppointments)
		admin.POST("/appointments/:id/approve", schedule, h.Approve)
		admin.POST("/appointments/:id/reject", schedule, h.Reject)
		admin.POST("/appointments/:id/arrival", schedule, h.ConfirmArrival)
		admin.POST("/appointments/:id/no-show", schedule, h.NoShow)
		admin.GET("/availability", schedule, h.Availability)

		admin.POST("/notifications", require(model.ActionSendNotifications), h.SendNotification)
	}
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"appointments": list})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}
	var req model.UpdateStatusRequest
	if !handler.Bind(c, &req) {
		return
	}
	h.respond(c, func(ctx context.Context, actor *model.Actor) (*model.Appointment, error) {
		return h.service.UpdateStatus(ctx, actor, id, req)
	})
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}
	var req model.ApproveRequest
	if !handler.Bind(c, &req) {
		return
	}
	h.respond(c, func(ctx context.Context, actor *model.Actor) (*model.Appointment, error) {
		return h.service.Approve(ctx, actor, id, req)
	})
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}
	var req model.RejectRequest
	if !handler.Bind(c, &req) {
		return
	}
	h.respond(c, func(ctx context.Context, actor *model.Actor) (*model.Appointment, error) {
		return h.service.Reject(ctx, actor, id, req.Reason)
	})
}

func (h *Handler) ConfirmArrival(c *gin.Context) {
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context, actor *model.Actor) (*model.Appointment, error) {
		return h.service.ConfirmArrival(ctx, actor, id)
	})
}

func (h *Handler) NoShow(c *gin.Context) {
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context, actor *model.Actor) (*model.Appointment, error) {
		return h.service.NoShow(ctx, actor, id)
	})
}

// Availability answers GET /admin/availability?month=YYYY-MM.
func (h *Handler) Availability(c *gin.Context) {
	booked, err := h.service.Availability(c.Request.Context(), c.Query("month"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"month": c.Query("month"), "booked": booked})
}

func (h *Handler) SendNotification(c *gin.Context) {
	var req model.SendNotificationRequest
	if !handler.Bind(c, &req) {
		return
	}

	n, err := h.service.SendNotification(c.Request.Context(), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusCreated, gin.H{"notification": n})
}

func (h *Handler) respond(c *gin.Context, op func(context.Context, *model.Actor) (*model.Appointment, error)) {
	appt, err := op(c.Request.Context(), handler.Actor(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"appointment": appt})
}
