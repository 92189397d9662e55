package staff

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

// ClinicalService records the clinical steps that follow arrival.
type ClinicalService interface {
	ListApproved(ctx context.Context) ([]*model.Appointment, error)
	RecordPayment(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordPaymentRequest) (*model.Payment, error)
	RecordVitals(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordVitalsRequest) (*model.Vitals, error)
	RecordLab(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordLabRequest) (*model.LabResult, error)
	RecordXray(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordXrayRequest) (*model.XrayResult, error)
	RecordDoctorReport(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordDoctorReportRequest) (*model.DoctorReport, error)
	Release(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error)
}

type Handler struct {
	service ClinicalService
}

func NewHandler(service ClinicalService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, require handler.Guard) {
	rg.GET("/staff/appointments/approved", require(model.ActionViewApprovedQueue), h.Approved)
	rg.POST("/cashier/appointments/:id/payments", require(model.ActionRecordPayment), h.RecordPayment)
	rg.POST("/nurse/appointments/:id/vitals", require(model.ActionRecordVitals), h.RecordVitals)
	rg.POST("/lab/appointments/:id/results", require(model.ActionRecordLab), h.RecordLab)
	rg.POST("/xray/appointments/:id/results", require(model.ActionRecordXray), h.RecordXray)

	doctor := rg.Group("/doctor/appointments/:id")
	{
		doctor.POST("/report", require(model.ActionRecordDoctorReport), h.RecordDoctorReport)
		doctor.POST("/release", require(model.ActionReleaseReport), h.Release)
	}
}

func (h *Handler) Approved(c *gin.Context) {
	list, err := h.service.ListApproved(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"appointments": list})
}

func (h *Handler) RecordPayment(c *gin.Context) {
	var req model.RecordPaymentRequest
	record(c, &req, "payment", func(ctx context.Context, actor *model.Actor, id uuid.UUID) (interface{}, error) {
		return h.service.RecordPayment(ctx, actor, id, req)
	})
}

func (h *Handler) RecordVitals(c *gin.Context) {
	var req model.RecordVitalsRequest
	record(c, &req, "vitals", func(ctx context.Context, actor *model.Actor, id uuid.UUID) (interface{}, error) {
		return h.service.RecordVitals(ctx, actor, id, req)
	})
}

func (h *Handler) RecordLab(c *gin.Context) {
	var req model.RecordLabRequest
	record(c, &req, "lab_result", func(ctx context.Context, actor *model.Actor, id uuid.UUID) (interface{}, error) {
		return h.service.RecordLab(ctx, actor, id, req)
	})
}

func (h *Handler) RecordXray(c *gin.Context) {
	var req model.RecordXrayRequest
	record(c, &req, "xray_result", func(ctx context.Context, actor *model.Actor, id uuid.UUID) (interface{}, error) {
		return h.service.RecordXray(ctx, actor, id, req)
	})
}

func (h *Handler) RecordDoctorReport(c *gin.Context) {
	var req model.RecordDoctorReportRequest
	record(c, &req, "report", func(ctx context.Context, actor *model.Actor, id uuid.UUID) (interface{}, error) {
		return h.service.RecordDoctorReport(ctx, actor, id, req)
	})
}

func (h *Handler) Release(c *gin.Context) {
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}

	appt, err := h.service.Release(c.Request.Context(), handler.Actor(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"appointment": appt})
}

// record parses :id and the body, runs op and writes {"ok":true,key:result}.
// op runs after req is populated.
func record(c *gin.Context, req interface{}, key string, op func(context.Context, *model.Actor, uuid.UUID) (interface{}, error)) {
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}
	if !handler.Bind(c, req) {
		return
	}

	out, err := op(c.Request.Context(), handler.Actor(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusCreated, gin.H{key: out})
}
