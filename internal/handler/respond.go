package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"yolodemo/internal/detect"
	"yolodemo/internal/service"
	"yolodemo/internal/service/modelcache"
)

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownModel):
		return http.StatusBadRequest
	case errors.Is(err, detect.ErrUnreadableImage), errors.Is(err, detect.ErrVideoOpen):
		return http.StatusUnprocessableEntity
	case errors.Is(err, modelcache.ErrAcquisition):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}
