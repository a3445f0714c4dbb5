package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"yolodemo/internal/config"
	"yolodemo/internal/handler"
	"yolodemo/internal/logger"
	"yolodemo/internal/middleware"
	"yolodemo/internal/service"
)

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the UI, the JSON API, the viewer stream and the log
// viewer, and wraps the mux with recovery, request logging and CORS.
func SetupRoutes(manager *service.Manager, cfg *config.Config, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// API endpoints
	mux.HandleFunc("/api/models", handler.ModelsHandler(manager, log))
	mux.HandleFunc("/api/settings", handler.SettingsHandler(manager))
	mux.HandleFunc("/api/selection", handler.SelectionHandler(manager, log))
	mux.HandleFunc("/api/detect", handler.DetectHandler(manager, log))
	mux.HandleFunc("/api/stream", handler.StreamHandler(manager, log))
	mux.HandleFunc("/healthz", handler.HealthHandler(manager))

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("/logs/warning", handler.ShowLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("/logs/error", handler.ShowLogsHandler(log, logger.ErrorFile))

	mux.HandleFunc("/logs/info/clear", handler.ClearLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("/logs/warning/clear", handler.ClearLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("/logs/error/clear", handler.ClearLogsHandler(log, logger.ErrorFile))

	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	return middleware.Chain(mux, middleware.Recover(log), middleware.Logging(log), middleware.CORS)
}
