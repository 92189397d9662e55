package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

type stubInbox struct {
	list   []*model.Notification
	actor  *model.Actor
	marked uuid.UUID
	err    error
}

func (s *stubInbox) List(_ context.Context, actor *model.Actor) ([]*model.Notification, error) {
	s.actor = actor
	return s.list, s.err
}

func (s *stubInbox) MarkRead(_ context.Context, actor *model.Actor, id uuid.UUID) error {
	s.actor, s.marked = actor, id
	return s.err
}

func serve(t *testing.T, stub *stubInbox, actor *model.Actor, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var guarded model.Action
	NewHandler(stub).RegisterRoutes(r.Group("/api"), func(a model.Action) gin.HandlerFunc {
		guarded = a
		return func(c *gin.Context) { c.Set(handler.ContextActor, actor) }
	})
	require.Equal(t, model.ActionReadNotifications, guarded)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestListReturnsCallerInbox(t *testing.T) {
	me := &model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	stub := &stubInbox{list: []*model.Notification{{ID: uuid.New(), PatientID: me.UserID, Title: "Appointment Approved"}}}

	w := serve(t, stub, me, http.MethodGet, "/api/notifications/me")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, me, stub.actor)
	var body struct {
		OK            bool                  `json:"ok"`
		Notifications []*model.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "Appointment Approved", body.Notifications[0].Title)
}

func TestMarkRead(t *testing.T) {
	me := &model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	id := uuid.New()
	stub := &stubInbox{}

	w := serve(t, stub, me, http.MethodPatch, "/api/notifications/"+id.String()+"/read")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, stub.marked)
	assert.JSONEq(t, `{"ok":true,"id":"`+id.String()+`"}`, w.Body.String())
}

func TestMarkReadUnknownNotification(t *testing.T) {
	stub := &stubInbox{err: apperrors.NotFound("Notification", nil)}

	w := serve(t, stub, &model.Actor{UserID: uuid.New()}, http.MethodPatch, "/api/notifications/"+uuid.NewString()+"/read")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Notification not found"}`, w.Body.String())
}

func TestMarkReadInvalidID(t *testing.T) {
	stub := &stubInbox{}

	w := serve(t, stub, &model.Actor{UserID: uuid.New()}, http.MethodPatch, "/api/notifications/nope/read")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, uuid.Nil, stub.marked)
}
