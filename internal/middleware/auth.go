package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/service/auth"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Actor, error)
}

type AuthMiddleware struct {
	authService Authenticator
}

func NewAuthMiddleware(authService Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate verifies the bearer token and stores the actor in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			handler.Fail(c, http.StatusUnauthorized, auth.MsgMissingToken)
			return
		}

		actor, err := m.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			handler.RespondError(c, err)
			return
		}

		c.Set(handler.ContextActor, actor)
		c.Set("user_id", actor.UserID.String())
		c.Next()
	}
}

// RequireAction admits only roles the policy allows to perform action.
func (m *AuthMiddleware) RequireAction(action model.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := handler.Actor(c)
		if actor == nil {
			handler.Fail(c, http.StatusUnauthorized, auth.MsgMissingToken)
			return
		}
		if actor.Role == "" {
			handler.Fail(c, http.StatusForbidden, "No role found")
			return
		}
		if !actor.Role.Can(action) {
			handler.Fail(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}
