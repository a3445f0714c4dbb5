package handler

import (
	"encoding/json"
	"net/http"

	"yolodemo/internal/dto"
	"yolodemo/internal/logger"
	"yolodemo/internal/service"
)

// ModelsHandler lists the catalog with cache state.
func ModelsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}

		statuses, err := manager.Models()
		if err != nil {
			logger.Error("Failed to list models: %v", err)
			respondError(w, "Failed to list models", http.StatusInternalServerError)
			return
		}

		respondJSON(w, dto.NewModelInfos(statuses), http.StatusOK)
	}
}

// SettingsHandler returns slider bounds, accepted uploads and the current selection.
func SettingsHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		respondJSON(w, dto.NewSettings(manager.Catalog().Names(), manager.Selection()), http.StatusOK)
	}
}

// SelectionHandler switches the active model, loading it on first use.
func SelectionHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPut) {
			return
		}

		var req dto.SelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		threshold := manager.Selection().Threshold
		if req.Threshold != nil {
			threshold = *req.Threshold
		}

		notify := func(msg string) { logger.Info("%s", msg) }
		selection, err := manager.Select(r.Context(), req.Model, threshold, notify)
		if err != nil {
			logger.Error("Failed to select %q: %v", req.Model, err)
			respondError(w, err.Error(), statusFor(err))
			return
		}

		respondJSON(w, selection, http.StatusOK)
	}
}

// HealthHandler reports liveness with the number of connected viewers and
// stored uploads.
func HealthHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := manager.Health()
		respondJSON(w, map[string]interface{}{
			"status":  "ok",
			"viewers": h.Viewers,
			"uploads": h.Uploads,
		}, http.StatusOK)
	}
}
