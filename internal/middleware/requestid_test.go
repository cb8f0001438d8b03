package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/feed/viewer-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == "" {
		t.Fatal("expected a generated request ID in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != captured {
		t.Errorf("response header %q does not match context value %q", got, captured)
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/feed/viewer-1", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured != "client-supplied-id" {
		t.Errorf("expected client-supplied ID to be preserved, got %q", captured)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("expected empty string for missing request ID, got %q", got)
	}
}

func TestViewerIDRoundTrip(t *testing.T) {
	ctx := SetViewerID(context.Background(), "did:plc:viewer")
	if got := GetViewerID(ctx); got != "did:plc:viewer" {
		t.Errorf("expected viewer ID round trip, got %q", got)
	}
	if got := GetViewerID(context.Background()); got != "" {
		t.Errorf("expected empty viewer ID on bare context, got %q", got)
	}
}

func TestErrorCodeRoundTrip(t *testing.T) {
	ctx := SetErrorCode(context.Background(), "invalid_limit")
	if got := GetErrorCode(ctx); got != "invalid_limit" {
		t.Errorf("expected error code round trip, got %q", got)
	}
}
