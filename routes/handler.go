// Package routes wires the HTTP operations surface onto the default mux.
package routes

import (
	"net/http"

	"vidvault/auth"
	"vidvault/backup"
	"vidvault/faillog"
	"vidvault/logger"
	"vidvault/pipeline"
	"vidvault/store"
)

// Handler carries the shared dependencies of every endpoint.
type Handler struct {
	Store    *store.Store
	Pipeline *pipeline.Pipeline
	Engine   *backup.Engine
	Failures *faillog.Log
	Secret   []byte
}

// Register attaches all endpoints to the default mux.
func (h *Handler) Register() {
	http.HandleFunc("/health", HealthHandler)
	http.HandleFunc("/jobs/status", h.JobStatusHandler)
	http.HandleFunc("/jobs/schedule", h.JobScheduleHandler)
	http.HandleFunc("/jobs/process", h.JobProcessHandler)
	http.HandleFunc("/backups/stats", h.BackupStatsHandler)
	http.HandleFunc("/backups/run", h.BackupRunHandler)
	http.HandleFunc("/backups/verify", h.BackupVerifyHandler)
	http.HandleFunc("/backups/restore", h.BackupRestoreHandler)
	http.HandleFunc("/failures", h.FailureQueryHandler)
	http.HandleFunc("/failures/list", h.FailureListHandler)
}

// requireAdmin verifies the bearer token on mutating endpoints. Returns false
// after writing the error response.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if _, err := auth.FromRequest(r, auth.VerifyConfig{SecretKey: h.Secret}); err != nil {
		logger.Warnf("Rejected request to %s: %v", r.URL.Path, err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}
