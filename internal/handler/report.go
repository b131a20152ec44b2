package handler

import (
	"net/http"
	"strconv"

	"floatbook/internal/kiosk"
	"floatbook/internal/report"
	"floatbook/pkg/logger"
)

// ReportHandler serves the daily report and its history.
type ReportHandler struct {
	service *report.Service
	access  *kiosk.Service
	logger  logger.Logger
}

func NewReportHandler(service *report.Service, access *kiosk.Service, log logger.Logger) *ReportHandler {
	return &ReportHandler{service: service, access: access, logger: log}
}

// Daily returns the report for a day, generating and persisting it on first
// request.
func (h *ReportHandler) Daily(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}

	canView, err := h.access.CanView(r.Context(), kioskID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !canView {
		respondError(w, http.StatusForbidden, "Not a member of this kiosk")
		return
	}

	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	rep, err := h.service.GetOrGenerate(r.Context(), kioskID, date)
	if err != nil {
		h.logger.Error("Failed to generate report", map[string]interface{}{
			"error":    err.Error(),
			"kiosk_id": kioskID,
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}

	canView, err := h.access.CanView(r.Context(), kioskID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !canView {
		respondError(w, http.StatusForbidden, "Not a member of this kiosk")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reports, err := h.service.History(r.Context(), kioskID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}
