package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/service/workflow"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

var admin = &model.Actor{UserID: uuid.New(), Email: "admin@sghealthtrack.ph", Role: model.RoleAdmin}

func allowAll(model.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(handler.ContextActor, admin)
		c.Next()
	}
}

func setupRouter(svc Scheduler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"), allowAll)
	return r
}

func patch(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateStatusInvalidStatus(t *testing.T) {
	r := setupRouter(workflow.NewService(workflow.Deps{}))

	w := patch(r, "/api/admin/appointments/"+uuid.NewString()+"/status", `{"status":"done"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Invalid status"}`, w.Body.String())
}

func TestUpdateStatusInvalidID(t *testing.T) {
	r := setupRouter(workflow.NewService(workflow.Deps{}))

	w := patch(r, "/api/admin/appointments/not-a-uuid/status", `{"status":"pending"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubScheduler struct {
	Scheduler
	approveReq model.ApproveRequest
	err        error
}

func (s *stubScheduler) Approve(_ context.Context, actor *model.Actor, id uuid.UUID, req model.ApproveRequest) (*model.Appointment, error) {
	s.approveReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &model.Appointment{Base: model.Base{ID: id}, WorkflowStatus: model.WorkflowApproved, ScheduledAt: req.ScheduledAt}, nil
}

func TestApprove(t *testing.T) {
	stub := &stubScheduler{}
	r := setupRouter(stub)
	id := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/appointments/"+id.String()+"/approve",
		strings.NewReader(`{"scheduled_at":"2025-06-02T00:30:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, stub.approveReq.ScheduledAt)
	assert.True(t, stub.approveReq.ScheduledAt.Equal(time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, id.String(), body["appointment"].(map[string]interface{})["id"])
}

func TestApproveConflict(t *testing.T) {
	r := setupRouter(&stubScheduler{err: apperrors.Conflict(workflow.MsgSlotTaken, nil)})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/appointments/"+uuid.NewString()+"/approve", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"`+workflow.MsgSlotTaken+`"}`, w.Body.String())
}
