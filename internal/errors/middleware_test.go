package errors

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gradebook/internal/shared/testutil"
)

func TestErrorMiddleware_LogsRequests(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel slog.Level
	}{
		{"success", http.StatusOK, slog.LevelInfo},
		{"client error", http.StatusNotFound, slog.LevelWarn},
		{"server error", http.StatusInternalServerError, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			m := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

			h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classes?x=1", nil))

			assert.Equal(t, tt.status, rec.Code)
			records := logs.GetRecordsByLevel(tt.wantLevel)
			if assert.Len(t, records, 1) {
				assert.Equal(t, "http request", records[0].Message)
				assert.Equal(t, int64(tt.status), records[0].Attrs["status"])
				assert.Equal(t, "x=1", records[0].Attrs["query"])
			}
		})
	}
}

func TestErrorMiddleware_RedactsFailedJSONBody(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	m := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(`{"name":"Ana Lopez","class_id":"c1"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	records := logs.GetRecordsByLevel(slog.LevelWarn)
	if assert.Len(t, records, 1) {
		body, _ := records[0].Attrs["request_body"].(string)
		assert.Contains(t, body, `"class_id":"c1"`)
		assert.NotContains(t, body, "Ana Lopez")
	}
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	m := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	h := m.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, logs.ContainsMessage("panic recovered"))
	assert.True(t, logs.ContainsMessage("http request"))
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := RecoveryMiddleware(NewErrorHandler(logger, false))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSanitizeRequestBody(t *testing.T) {
	assert.Equal(t, `{"name":"[REDACTED]"}`, sanitizeRequestBody(`{"name":"Ana"}`))
	assert.Equal(t, "not json", sanitizeRequestBody("not json"))
}
