package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	reportsvc "github.com/sghealthtrack/healthtrack-api/internal/service/report"
)

type Generator interface {
	Generate(ctx context.Context, data map[string]interface{}) (*reportsvc.PDF, error)
}

type Handler struct {
	service Generator
}

func NewHandler(service Generator) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, require handler.Guard) {
	rg.POST("/report/generate", require(model.ActionGenerateReport), h.Generate)
}

type generateRequest struct {
	Data map[string]interface{} `json:"data"`
}

// Generate streams the rendered medical report inline.
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if !handler.Bind(c, &req) {
		return
	}

	pdf, err := h.service.Generate(c.Request.Context(), req.Data)
	if err != nil {
		var genErr *reportsvc.GenerationError
		if errors.As(err, &genErr) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, handler.ErrorResponse{
				Error:   genErr.PublicMessage(),
				Details: genErr.Details,
			})
			return
		}
		handler.RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", pdf.Filename))
	c.Data(http.StatusOK, "application/pdf", pdf.Content)
}
