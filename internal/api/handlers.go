package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"formulary/internal/domain"
	"formulary/internal/storage"
	"formulary/internal/xlsx"
)

func (s *Server) handleExportRequest(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")
	if datasetID == "" {
		s.respondWithError(w, http.StatusBadRequest, "Dataset identifier is required")
		return
	}

	doc, err := s.exporter.Export(r.Context(), datasetID)
	if err != nil {
		var malformed *domain.MalformedFieldError
		switch {
		case errors.Is(err, storage.ErrDatasetNotFound):
			s.respondWithError(w, http.StatusNotFound, "Dataset not found")
		case errors.As(err, &malformed):
			s.respondWithError(w, http.StatusUnprocessableEntity, malformed.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.respondWithError(w, http.StatusServiceUnavailable, "Export cancelled")
		default:
			s.logger.Error("export failed", zap.String("dataset", datasetID), zap.Error(err))
			s.respondWithError(w, http.StatusInternalServerError, "Could not export formulary")
		}
		return
	}

	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", xlsx.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.store.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if healthStatus["postgres"] != "healthy" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
