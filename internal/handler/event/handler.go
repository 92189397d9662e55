package event

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/pkg/messaging"
)

const keepAlive = 25 * time.Second

type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// Handler streams workflow change events as Server-Sent Events.
type Handler struct {
	subscriber Subscriber
	keepAlive  time.Duration
}

func NewHandler(subscriber Subscriber) *Handler {
	return &Handler{subscriber: subscriber, keepAlive: keepAlive}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, require handler.Guard) {
	rg.GET("/events", require(model.ActionViewEvents), h.Stream)
}

// Stream forwards change events until the client disconnects. Patients only
// receive events about their own appointments.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	events, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	actor := handler.Actor(c)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.SSEvent("ready", gin.H{"ok": true})
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
		case msg, ok := <-events:
			if !ok {
				return
			}
			if !visible(actor, msg) {
				continue
			}
			c.SSEvent("change", json.RawMessage(msg))
		}
		c.Writer.Flush()
	}
}

func visible(actor *model.Actor, msg []byte) bool {
	if actor == nil || actor.Role != model.RolePatient {
		return true
	}
	var evt messaging.ChangeEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		log.Debug().Err(err).Msg("dropping malformed change event")
		return false
	}
	return evt.PatientID == actor.UserID
}
