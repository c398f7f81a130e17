package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"vidvault/backup"
	"vidvault/logger"
	"vidvault/models"
)

// BackupStatsHandler returns replica aggregates, optionally scoped to one
// rendition via ?rendition=.
func (h *Handler) BackupStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.Engine.Stats(r.Context(), r.URL.Query().Get("rendition"))
	if err != nil {
		logger.Errorf("Failed to compute backup stats: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		logger.Errorf("Failed to encode stats response: %v", err)
	}
}

// BackupRunHandler creates a manual backup (?rendition= and ?server=) or,
// with no parameters, runs a full policy pass.
func (h *Handler) BackupRunHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	renditionID := r.URL.Query().Get("rendition")
	serverID := r.URL.Query().Get("server")

	w.Header().Set("Content-Type", "application/json")

	if renditionID == "" && serverID == "" {
		if err := h.Engine.ExecuteBackupPolicies(r.Context()); err != nil {
			logger.Errorf("Manual policy pass failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "policies executed"})
		return
	}

	if renditionID == "" || serverID == "" {
		http.Error(w, "Both rendition and server parameters required", http.StatusBadRequest)
		return
	}

	record, err := h.Engine.CreateBackup(r.Context(), renditionID, serverID, models.CreationManual)
	if err != nil {
		if errors.Is(err, backup.ErrRenditionNotFound) {
			http.Error(w, "Rendition not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, backup.ErrServerUnavailable) {
			http.Error(w, "Storage server unavailable", http.StatusConflict)
			return
		}
		logger.Errorf("Manual backup failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"backup":   record.ID,
		"path":     record.Path,
		"size":     record.SizeBytes,
		"checksum": record.Checksum,
	})
}

// BackupVerifyHandler re-checks one backup immediately (?backup=).
func (h *Handler) BackupVerifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	backupID := r.URL.Query().Get("backup")
	if backupID == "" {
		http.Error(w, "Missing backup parameter", http.StatusBadRequest)
		return
	}

	ok, err := h.Engine.VerifyBackup(r.Context(), backupID)
	if err != nil {
		if errors.Is(err, backup.ErrBackupNotFound) {
			http.Error(w, "Backup not found", http.StatusNotFound)
			return
		}
		logger.Errorf("Verification of backup %s failed: %v", backupID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"backup":   backupID,
		"verified": ok,
	})
}

// BackupRestoreHandler restores a verified backup onto a server
// (?backup= and ?server=).
func (h *Handler) BackupRestoreHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	backupID := r.URL.Query().Get("backup")
	serverID := r.URL.Query().Get("server")
	if backupID == "" || serverID == "" {
		http.Error(w, "Both backup and server parameters required", http.StatusBadRequest)
		return
	}

	if err := h.Engine.RestoreFromBackup(r.Context(), backupID, serverID); err != nil {
		switch {
		case errors.Is(err, backup.ErrBackupNotFound):
			http.Error(w, "Backup not found", http.StatusNotFound)
		case errors.Is(err, backup.ErrUnverifiedBackup):
			http.Error(w, "Backup is not verified", http.StatusConflict)
		case errors.Is(err, backup.ErrServerUnavailable):
			http.Error(w, "Storage server unavailable", http.StatusConflict)
		default:
			logger.Errorf("Restore from backup %s failed: %v", backupID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "restored"})
}
