package archive

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

type Archiver interface {
	Options(req model.ArchiveRequest) (model.ArchiveOptions, error)
	Run(ctx context.Context, actor *model.Actor, opts model.ArchiveOptions) (*model.ArchiveSummary, error)
}

type Handler struct {
	service Archiver
}

func NewHandler(service Archiver) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the run endpoint under /archive and the legacy
// /admin/archive path.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, require handler.Guard) {
	guard := require(model.ActionRunArchive)
	rg.POST("/archive/run", guard, h.Run)
	rg.POST("/admin/archive/run", guard, h.Run)
}

func (h *Handler) Run(c *gin.Context) {
	var req model.ArchiveRequest
	if !handler.Bind(c, &req) {
		return
	}

	opts, err := h.service.Options(req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	summary, err := h.service.Run(c.Request.Context(), handler.Actor(c), opts)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
