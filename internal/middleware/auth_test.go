package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/service/auth"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

type stubAuthenticator map[string]*model.Actor

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*model.Actor, error) {
	if actor, ok := s[token]; ok {
		return actor, nil
	}
	return nil, apperrors.Unauthorized(auth.MsgInvalidToken, nil)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(stubAuthenticator{
		"nurse":   {UserID: uuid.New(), Role: model.RoleNurse},
		"norole":  {UserID: uuid.New()},
		"cashier": {UserID: uuid.New(), Role: model.RoleCashier},
	})

	r := gin.New()
	r.GET("/vitals", m.Authenticate(), m.RequireAction(model.ActionRecordVitals), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, `{"ok":false,"error":"Missing Bearer token"}`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `{"ok":false,"error":"Missing Bearer token"}`},
		{"invalid token", "Bearer bogus", http.StatusUnauthorized, `{"ok":false,"error":"Invalid token"}`},
		{"no role", "Bearer norole", http.StatusForbidden, `{"ok":false,"error":"No role found"}`},
		{"role not allowed", "Bearer cashier", http.StatusForbidden, `{"ok":false,"error":"Forbidden"}`},
		{"allowed", "Bearer nurse", http.StatusNoContent, ""},
	}

	r := setupRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/vitals", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}
