package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// captureLog はロガーを通してリクエストを1件処理し、出力されたJSONログを返す。
func captureLog(t *testing.T, next http.Handler, req *http.Request) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	NewLoggingMiddleware(logger)(next).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	entry := captureLog(t, okHandler, httptest.NewRequest(http.MethodGet, "/api/saved-designs", nil))

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/api/saved-designs" {
		t.Errorf("path = %v, want /api/saved-designs", entry["path"])
	}
	if status, _ := entry["status"].(float64); status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v, want >= 0", entry["duration_ms"])
	}
	if _, ok := entry["user_id"]; ok {
		t.Error("user_id should be omitted for unauthenticated request")
	}
}

// TestLoggingMiddleware_IncludesUserAndRequestID はユーザーIDとリクエストIDがログに含まれることを検証する。
func TestLoggingMiddleware_IncludesUserAndRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/saved-designs/e1", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-123"))

	var entry map[string]interface{}
	chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry = captureLog(t, okHandler, r)
	})).ServeHTTP(httptest.NewRecorder(), req)

	if entry["user_id"] != "user-123" {
		t.Errorf("user_id = %v, want user-123", entry["user_id"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("request_id should be set")
	}
}

// TestLoggingMiddleware_LevelByStatus はステータスコードに応じたログレベルを検証する。
func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		wantLevel  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusCreated, "INFO"},
		{http.StatusNoContent, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})
			entry := captureLog(t, next, httptest.NewRequest(http.MethodGet, "/test", nil))

			if status := int(entry["status"].(float64)); status != tt.statusCode {
				t.Errorf("status = %d, want %d", status, tt.statusCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
		})
	}
}

// TestLoggingMiddleware_BodyWriteCapture はWriteHeaderなしの書き込みで200とバイト数が記録されることを検証する。
func TestLoggingMiddleware_BodyWriteCapture(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})
	entry := captureLog(t, next, httptest.NewRequest(http.MethodGet, "/test", nil))

	if status := int(entry["status"].(float64)); status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
	if n := int(entry["bytes"].(float64)); n != 5 {
		t.Errorf("bytes = %d, want 5", n)
	}
}
