package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, &buf
}

func TestLogging_BasicFields(t *testing.T) {
	logger, buf := newBufferLogger()
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/feed/viewer-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	if entry["method"] != "GET" {
		t.Errorf("expected method GET, got %v", entry["method"])
	}
	if entry["path"] != "/v1/feed/viewer-1" {
		t.Errorf("expected path logged, got %v", entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("expected status 200, got %v", entry["status"])
	}
	if entry["size"] != float64(2) {
		t.Errorf("expected size 2, got %v", entry["size"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("expected INFO level for 200, got %v", entry["level"])
	}
}

func TestLogging_ErrorLevels(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"server error", http.StatusInternalServerError, "ERROR"},
		{"client error", http.StatusBadRequest, "WARN"},
		{"success", http.StatusOK, "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger()
			handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log entry: %v", err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("expected level %s for status %d, got %v", tt.wantLevel, tt.status, entry["level"])
			}
		})
	}
}

func TestLogging_ErrorCodeFromUpdatedContext(t *testing.T) {
	logger, buf := newBufferLogger()
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetErrorCode(r.Context(), "not_found")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/feed/nobody", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["error_code"] != "not_found" {
		t.Errorf("expected error_code not_found, got %v", entry["error_code"])
	}
}

func TestLogging_ContextSurvivesStackedWriters(t *testing.T) {
	logger, buf := newBufferLogger()
	metrics := NewHTTPMetrics()

	// Same shape as the server wiring: RequestID -> Logging -> per-route
	// metrics wrapper -> handler. The metrics wrapper adds a second
	// responseWriter layer between the handler and the logging layer.
	inner := metrics.Middleware("/v1/feed/{viewerID}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetViewerID(r.Context(), "viewer-1")
		ctx = SetErrorCode(ctx, "invalid_limit")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusBadRequest)
	}))
	handler := RequestID(Logging(logger)(inner))

	req := httptest.NewRequest(http.MethodGet, "/v1/feed/viewer-1?limit=abc", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["error_code"] != "invalid_limit" {
		t.Errorf("expected error_code through the metrics wrapper, got %v", entry["error_code"])
	}
	if entry["viewer_id"] != "viewer-1" {
		t.Errorf("expected viewer_id through the metrics wrapper, got %v", entry["viewer_id"])
	}
	if entry["status"] != float64(400) {
		t.Errorf("expected status 400, got %v", entry["status"])
	}
}

func TestLogging_ViewerIDLogged(t *testing.T) {
	logger, buf := newBufferLogger()
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		UpdateResponseContext(w, SetViewerID(r.Context(), "viewer-9"))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"viewer_id":"viewer-9"`) {
		t.Errorf("expected viewer_id in log output, got %s", buf.String())
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec, nil)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("expected first status to win, got %d", rw.statusCode)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected recorder status 404, got %d", rec.Code)
	}
}

func TestNewLogger_Environments(t *testing.T) {
	if NewLogger("production") == nil {
		t.Error("expected non-nil production logger")
	}
	if NewLogger("development") == nil {
		t.Error("expected non-nil development logger")
	}
}
