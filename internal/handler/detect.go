package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"yolodemo/internal/config"
	"yolodemo/internal/dto"
	"yolodemo/internal/logger"
	"yolodemo/internal/service"
)

// multipart parts above this size spill to disk
const maxFormMemory = 32 << 20

// DetectHandler accepts a multipart upload in the "file" field, with
// optional "model", "threshold" and "client" fields, and runs it through
// the selected model.
func DetectHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			respondError(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, "No file uploaded", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
		if !slices.Contains(config.AcceptedExtensions, ext) {
			respondError(w, fmt.Sprintf("Unsupported file type %q, expected one of %s", ext, strings.Join(config.AcceptedExtensions, ", ")), http.StatusBadRequest)
			return
		}

		req := service.DetectRequest{
			Body:        file,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Model:       r.FormValue("model"),
			Client:      r.FormValue("client"),
		}
		if raw := r.FormValue("threshold"); raw != "" {
			threshold, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				respondError(w, "Invalid threshold", http.StatusBadRequest)
				return
			}
			req.Threshold = &threshold
		}

		result, err := manager.Detect(r.Context(), req)
		if err != nil {
			logger.Error("Detection request for %s failed: %v", header.Filename, err)
			respondError(w, err.Error(), statusFor(err))
			return
		}

		respondJSON(w, dto.NewDetectResponse(result), http.StatusOK)
	}
}
