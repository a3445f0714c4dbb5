package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yolodemo/internal/catalog"
	"yolodemo/internal/config"
	"yolodemo/internal/logger"
	"yolodemo/internal/service"
	"yolodemo/internal/service/inference"
	"yolodemo/internal/service/modelcache"
	"yolodemo/internal/service/storage"
	"yolodemo/internal/service/websocket"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewDiscard()

	static := filepath.Join(dir, "static")
	os.MkdirAll(static, 0755)
	os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>YOLO demo</h1>"), 0644)

	cfg := &config.Config{StaticDirectory: static}
	hub := websocket.NewHubService(log)
	cache := modelcache.NewCache(filepath.Join(dir, "models"), nil, nil, nil, log)
	manager := service.NewManager(catalog.Default(), cache, storage.NewScratchService(dir, log), inference.NewRunner(nil, log), hub, log)

	return SetupRoutes(manager, cfg, log)
}

func TestSetupRoutes(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		method   string
		path     string
		expected int
		contains string
	}{
		{http.MethodGet, "/", http.StatusOK, "YOLO demo"},
		{http.MethodGet, "/index", http.StatusOK, "YOLO demo"},
		{http.MethodGet, "/missing", http.StatusNotFound, ""},
		{http.MethodGet, "/healthz", http.StatusOK, "ok"},
		{http.MethodGet, "/api/settings", http.StatusOK, "maxVideoFrames"},
		{http.MethodGet, "/api/models", http.StatusOK, "Yolo 11 Extra"},
		{http.MethodPost, "/api/models", http.StatusMethodNotAllowed, "error"},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
		if rr.Code != tt.expected {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.expected, rr.Code)
		}
		if tt.contains != "" && !strings.Contains(rr.Body.String(), tt.contains) {
			t.Errorf("%s %s: body %q lacks %q", tt.method, tt.path, rr.Body.String(), tt.contains)
		}
	}
}

func TestIndexPage(t *testing.T) {
	cfg := &config.Config{StaticDirectory: filepath.Join("..", "..", "static")}
	rr := httptest.NewRecorder()
	dynamicHTMLHandler(cfg.StaticDirectory).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	page := rr.Body.String()

	// Uploaded videos are previewed before the annotated frames.
	for _, want := range []string{"URL.createObjectURL(file)", "'Uploaded Video'", "file.type.startsWith('video')"} {
		if !strings.Contains(page, want) {
			t.Errorf("Page should contain %s", want)
		}
	}

	// Failures reach a streaming viewer in the upload response too, so
	// stream error messages must not be rendered a second time.
	if strings.Contains(page, "case 'error':") {
		t.Error("Stream errors should not be rendered next to the upload error")
	}
}
