package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"yolodemo/internal/logger"
)

func TestRecover(t *testing.T) {
	h := Recover(logger.NewDiscard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/detect", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"error"`) {
		t.Errorf("Expected JSON error body, got %q", rr.Body.String())
	}
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging(logger.NewDiscard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), Recover(logger.NewDiscard()), Logging(logger.NewDiscard()), CORS)

	req := httptest.NewRequest(http.MethodOptions, "/api/selection", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected wildcard origin, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
	if called {
		t.Error("Preflight should be answered by the CORS layer")
	}
}
