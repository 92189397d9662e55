package report

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	reportsvc "github.com/sghealthtrack/healthtrack-api/internal/service/report"
)

type stubGenerator struct {
	pdf  *reportsvc.PDF
	err  error
	data map[string]interface{}
}

func (s *stubGenerator) Generate(_ context.Context, data map[string]interface{}) (*reportsvc.PDF, error) {
	s.data = data
	return s.pdf, s.err
}

func serve(gen Generator, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(gen).RegisterRoutes(r.Group("/api"), func(model.Action) gin.HandlerFunc {
		return func(c *gin.Context) {}
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/report/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateStreamsPDF(t *testing.T) {
	gen := &stubGenerator{pdf: &reportsvc.PDF{Filename: "medical_report_1.pdf", Content: []byte("%PDF")}}

	w := serve(gen, `{"data":{"patient":"Juan"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="medical_report_1.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", w.Body.String())
	assert.Equal(t, "Juan", gen.data["patient"])
}

func TestGenerateScriptFailure(t *testing.T) {
	gen := &stubGenerator{err: &reportsvc.GenerationError{Details: "ModuleNotFoundError: reportlab", Err: errors.New("exit status 1")}}

	w := serve(gen, `{"data":{}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"PDF generation failed","details":"ModuleNotFoundError: reportlab"}`, w.Body.String())
}
