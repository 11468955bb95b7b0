package reports

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/fdg312/cityfix/internal/userctx"
	"github.com/google/uuid"
)

// Handlers handles HTTP requests for reports
type Handlers struct {
	service *Service
}

// NewHandlers creates new handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleCreate handles POST /v1/reports
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}
	if userID, ok := userctx.GetUserID(r.Context()); ok {
		req.UserID = &userID
	}

	report, err := h.service.Create(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// HandleList handles GET /v1/reports with optional status, priority and type.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Status:   optionalParam(q.Get("status")),
		Priority: optionalParam(q.Get("priority")),
		Type:     optionalParam(q.Get("type")),
	}

	reports, err := h.service.Filter(r.Context(), f)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReportsResponse{Reports: reports})
}

// HandleGet handles GET /v1/reports/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleUpdateStatus handles PATCH /v1/reports/{id}/status
func (h *Handlers) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	report, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleDelete handles DELETE /v1/reports/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// WriteServiceError maps the service error taxonomy onto HTTP responses.
func WriteServiceError(w http.ResponseWriter, err error) {
	var (
		dup        *DuplicateReportError
		invalid    *InvalidStateError
		validation *ValidationError
		storageErr *StorageError
	)

	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]string{
				"code":               "duplicate_report",
				"message":            "A similar report already exists nearby",
				"existing_report_id": dup.ExistingID.String(),
			},
		})
	case errors.Is(err, ErrReportNotFound):
		writeError(w, http.StatusNotFound, "report_not_found", "Report not found")
	case errors.As(err, &invalid):
		writeError(w, http.StatusConflict, "invalid_state", invalid.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_error", validation.Error())
	case errors.As(err, &storageErr):
		log.Printf("ERROR reports: %v", storageErr)
		writeError(w, http.StatusInternalServerError, "storage_error", "Storage is unavailable, try again later")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Helper functions

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid report ID")
		return uuid.Nil, false
	}
	return id, true
}

func optionalParam(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
