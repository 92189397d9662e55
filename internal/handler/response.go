package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

// ContextActor is the gin context key holding the authenticated *model.Actor.
const ContextActor = "actor"

// Guard builds the middleware that admits only roles allowed to perform an action.
type Guard func(model.Action) gin.HandlerFunc

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// OK writes {"ok":true, ...body}.
func OK(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["ok"] = true
	c.JSON(status, body)
}

// Fail writes {"ok":false,"error":msg} and aborts the chain.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// RespondError maps err onto its status code and client message.
func RespondError(c *gin.Context, err error) {
	status := apperrors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	_ = c.Error(err)
	Fail(c, status, apperrors.MessageOf(err))
}

// Bind decodes the JSON body into req and reports a 400 on failure.
// An empty body is treated as {} and still has to pass validation.
func Bind(c *gin.Context, req interface{}) bool {
	var err error
	if c.Request.ContentLength == 0 {
		err = binding.Validator.ValidateStruct(req)
	} else {
		err = c.ShouldBindJSON(req)
	}
	if err != nil {
		Fail(c, http.StatusBadRequest, bindMessage(err))
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s is too long", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

// ParamID parses the :id path parameter.
func ParamID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Fail(c, http.StatusBadRequest, "Invalid appointment id")
		return uuid.Nil, false
	}
	return id, true
}

// Actor returns the caller set by the auth middleware.
func Actor(c *gin.Context) *model.Actor {
	if v, ok := c.Get(ContextActor); ok {
		if actor, ok := v.(*model.Actor); ok {
			return actor
		}
	}
	return nil
}
