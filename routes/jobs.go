package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"vidvault/logger"
	"vidvault/pipeline"
)

// JobStatusHandler returns the aggregated processing status for an asset.
func (h *Handler) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Job status request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for status endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	assetID := r.URL.Query().Get("asset")
	if assetID == "" {
		logger.Warn("Missing asset parameter in status request")
		http.Error(w, "Missing asset parameter", http.StatusBadRequest)
		return
	}

	status, err := h.Pipeline.GetProcessingStatus(r.Context(), assetID)
	if err != nil {
		logger.Errorf("Failed to get processing status for %s: %v", assetID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logger.Errorf("Failed to encode status response: %v", err)
	}
}

// JobScheduleHandler queues the full processing plan for an asset.
func (h *Handler) JobScheduleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	assetID := r.URL.Query().Get("asset")
	if assetID == "" {
		http.Error(w, "Missing asset parameter", http.StatusBadRequest)
		return
	}

	jobs, err := h.Pipeline.ScheduleProcessingJobs(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, pipeline.ErrAssetNotFound) {
			http.Error(w, "Asset not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, pipeline.ErrNoActiveServers) {
			http.Error(w, "No active storage servers", http.StatusServiceUnavailable)
			return
		}
		logger.Errorf("Failed to schedule jobs for asset %s: %v", assetID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"asset":     assetID,
		"scheduled": len(jobs),
	}); err != nil {
		logger.Errorf("Failed to encode schedule response: %v", err)
	}
}

// JobProcessHandler triggers one queue drain pass outside the scheduler tick.
func (h *Handler) JobProcessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	if err := h.Pipeline.ProcessJobQueue(r.Context()); err != nil {
		logger.Errorf("Manual queue pass failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
