package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	authsvc "github.com/sghealthtrack/healthtrack-api/internal/service/auth"
)

func setupRouter(h *Handler, actor *model.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	h.RegisterRoutes(api)
	protected := api.Group("")
	protected.Use(func(c *gin.Context) {
		if actor != nil {
			c.Set(handler.ContextActor, actor)
		}
	})
	h.RegisterProtectedRoutes(protected)
	return r
}

type stubChecker struct {
	exists bool
	called bool
}

func (s *stubChecker) EmailExists(_ context.Context, email string) (bool, error) {
	s.called = true
	return s.exists, nil
}

func TestCheckEmailMissingEmail(t *testing.T) {
	// The real service validates before touching the profile store.
	r := setupRouter(NewHandler(authsvc.NewService(nil, nil, 0)), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/check-email", strings.NewReader(`{"email":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Equal(t, "email is required", body.Error)
}

func TestCheckEmailExists(t *testing.T) {
	checker := &stubChecker{exists: true}
	r := setupRouter(NewHandler(checker), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/check-email", strings.NewReader(`{"email":"a@b.ph"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"exists":true}`, w.Body.String())
	assert.True(t, checker.called)
}

func TestRole(t *testing.T) {
	t.Run("known role", func(t *testing.T) {
		r := setupRouter(NewHandler(&stubChecker{}), &model.Actor{UserID: uuid.New(), Role: model.RoleCashier})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/role", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"role":"cashier"}`, w.Body.String())
	})

	t.Run("no role", func(t *testing.T) {
		r := setupRouter(NewHandler(&stubChecker{}), &model.Actor{UserID: uuid.New()})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/role", nil))

		assert.JSONEq(t, `{"ok":true,"role":null}`, w.Body.String())
	})
}
