package routes

import (
	"encoding/json"
	"net/http"

	"vidvault/logger"
)

// FailureQueryHandler returns the archived failure record for one job.
func (h *Handler) FailureQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := r.URL.Query().Get("job")
	if jobID == "" {
		http.Error(w, "job parameter required", http.StatusBadRequest)
		return
	}

	record, err := h.Failures.Get(jobID)
	if err != nil {
		logger.Errorf("Failed to query failure for job %s: %v", jobID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if record == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job":     jobID,
			"status":  "success",
			"message": "No failure recorded",
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"job":       record.JobID,
		"status":    "failed",
		"stage":     record.Stage,
		"timestamp": record.Timestamp,
		"error":     record.Error,
		"detail":    record.Detail,
	})
}

// FailureListHandler lists every archived failure (admin endpoint).
func (h *Handler) FailureListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	records, err := h.Failures.List()
	if err != nil {
		logger.Errorf("Failed to list failures: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"failures": records,
		"count":    len(records),
	})
}
