package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/machinestack/machine-monitor/internal/models"
)

// TelemetryLog is the slice of the append log the handlers need.
type TelemetryLog interface {
	Latest() (models.Reading, bool, error)
	Append(r models.Reading) error
}

// AnalysisTable is the slice of the analysis sink the handlers need.
type AnalysisTable interface {
	Latest() (map[string]string, bool, error)
}

// Handlers implements the boundary endpoints over the shared files.
type Handlers struct {
	logger      *slog.Logger
	log         TelemetryLog
	table       AnalysisTable
	statuses    []models.Status
	transitions map[models.Status][]models.Status
	now         func() time.Time
}

// NewHandlers constructs the endpoint handlers. now is overridable in tests
// and defaults to time.Now.
func NewHandlers(
	logger *slog.Logger,
	log TelemetryLog,
	table AnalysisTable,
	statuses []models.Status,
	transitions map[models.Status][]models.Status,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		logger:      logger,
		log:         log,
		table:       table,
		statuses:    statuses,
		transitions: transitions,
		now:         time.Now,
	}
}

// GetData returns the latest analysis row together with the current status.
func (h *Handlers) GetData(w http.ResponseWriter, r *http.Request) {
	current, hasCurrent, err := h.log.Latest()
	if err != nil {
		h.logger.Error("read telemetry log failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to read current data",
		})
		return
	}

	var currentStatus, currentTimestamp any
	if hasCurrent {
		currentStatus = string(current.Status)
		currentTimestamp = current.Timestamp.Format(models.TimestampLayout)
	}

	row, hasRow, err := h.table.Latest()
	if err != nil {
		h.logger.Error("read analysis table failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to read analysis data",
		})
		return
	}
	if !hasRow {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        false,
			"error":          "No data available",
			"current_status": currentStatus,
			"timestamp":      currentTimestamp,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"processed_data": row,
		"current_status": currentStatus,
		"timestamp":      currentTimestamp,
	})
}

// GetStatus returns the most recent reading.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	current, ok, err := h.log.Latest()
	if err != nil {
		h.logger.Error("read telemetry log failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to read current data",
		})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "No current data available",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"status":      string(current.Status),
			"timestamp":   current.Timestamp.Format(models.TimestampLayout),
			"temperature": current.Temperature,
			"speed":       current.Speed,
		},
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus validates a requested status against the alphabet and the
// transition graph, then appends a new reading reusing the last known
// temperature and speed. Invalid requests never mutate the log.
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Status is required",
		})
		return
	}

	requested := models.Status(strings.ToUpper(req.Status))
	if !h.inAlphabet(requested) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("Invalid status. Allowed values: %v", h.alphabetStrings()),
		})
		return
	}

	current, ok, err := h.log.Latest()
	if err != nil {
		h.logger.Error("read telemetry log failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to read current data",
		})
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Cannot update status: no current data available",
		})
		return
	}

	if !models.ValidTransition(h.transitions, current.Status, requested) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("Invalid status transition from %s to %s", current.Status, requested),
		})
		return
	}

	reading := models.Reading{
		Timestamp:   h.now(),
		Temperature: current.Temperature,
		Speed:       current.Speed,
		Status:      requested,
	}
	if err := h.log.Append(reading); err != nil {
		h.logger.Error("append status update failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to record status update",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"status":      string(reading.Status),
			"timestamp":   reading.Timestamp.Format(models.TimestampLayout),
			"temperature": reading.Temperature,
			"speed":       reading.Speed,
		},
	})
}

func (h *Handlers) inAlphabet(s models.Status) bool {
	for _, member := range h.statuses {
		if member == s {
			return true
		}
	}
	return false
}

func (h *Handlers) alphabetStrings() []string {
	out := make([]string, 0, len(h.statuses))
	for _, s := range h.statuses {
		out = append(out, string(s))
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
