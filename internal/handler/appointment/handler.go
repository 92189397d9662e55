package appointment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

// PatientService is the patient-facing part of the workflow.
type PatientService interface {
	Book(ctx context.Context, actor *model.Actor, req model.BookAppointmentRequest) (*model.Appointment, error)
	ListMine(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
	BookingLock(ctx context.Context, patientID uuid.UUID) (*model.BookingLock, error)
	SubmitFormSlip(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.FormSlipRequest) (*model.Requirements, error)
	MockQRPayment(ctx context.Context, actor *model.Actor, req model.MockQRPaymentRequest) (*model.Payment, *model.MockQR, error)
}

type Handler struct {
	service PatientService
}

func NewHandler(service PatientService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, require handler.Guard) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", require(model.ActionBookAppointment), h.Book)
		appointments.GET("/me", require(model.ActionBookAppointment), h.ListMine)
		appointments.GET("/booking-lock", require(model.ActionBookAppointment), h.BookingLock)
		appointments.PUT("/:id/requirements", require(model.ActionEditFormSlip), h.SubmitFormSlip)
	}
	rg.POST("/payments/qrph/mock", require(model.ActionPayOnline), h.MockQRPayment)
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}

	appt, err := h.service.Book(c.Request.Context(), handler.Actor(c), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusCreated, gin.H{"appointment": appt})
}

func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.service.ListMine(c.Request.Context(), handler.Actor(c).UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"appointments": list})
}

func (h *Handler) BookingLock(c *gin.Context) {
	lock, err := h.service.BookingLock(c.Request.Context(), handler.Actor(c).UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	body := gin.H{"canBook": lock.CanBook}
	if lock.Reason != "" {
		body["reason"] = lock.Reason
	}
	handler.OK(c, http.StatusOK, body)
}

func (h *Handler) SubmitFormSlip(c *gin.Context) {
	id, ok := handler.ParamID(c)
	if !ok {
		return
	}
	var req model.FormSlipRequest
	if !handler.Bind(c, &req) {
		return
	}

	reqs, err := h.service.SubmitFormSlip(c.Request.Context(), handler.Actor(c), id, req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"requirements": reqs})
}

func (h *Handler) MockQRPayment(c *gin.Context) {
	var req model.MockQRPaymentRequest
	if !handler.Bind(c, &req) {
		return
	}

	payment, qr, err := h.service.MockQRPayment(c.Request.Context(), handler.Actor(c), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, http.StatusOK, gin.H{"payment": payment, "qr": qr})
}
