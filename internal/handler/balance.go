package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"floatbook/internal/balance"
	"floatbook/internal/kiosk"
	"floatbook/pkg/logger"
	"floatbook/pkg/validator"
)

// BalanceHandler exposes the daily opening balance and the day dashboard.
type BalanceHandler struct {
	service   *balance.Service
	access    *kiosk.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewBalanceHandler(service *balance.Service, access *kiosk.Service, val *validator.Validator, log logger.Logger) *BalanceHandler {
	return &BalanceHandler{
		service:   service,
		access:    access,
		validator: val,
		logger:    log,
	}
}

// StartDay records or edits the explicit opening balance for a day. Only the
// current day can be started or edited; closed days are immutable.
func (h *BalanceHandler) StartDay(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}

	var req balance.StartDayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.KioskID = kioskID
	req.CreatedBy = &userID
	if req.Date.IsZero() {
		req.Date = time.Now().UTC()
	}
	if !balance.DateOnly(req.Date).Equal(balance.DateOnly(time.Now().UTC())) {
		respondError(w, http.StatusBadRequest, "Opening balances can only be set for the current day")
		return
	}

	canManage, err := h.access.CanManage(r.Context(), kioskID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !canManage {
		respondError(w, http.StatusForbidden, "Only a manager can start the day")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := h.service.StartDay(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to start day", map[string]interface{}{
			"error":    err.Error(),
			"kiosk_id": kioskID,
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, row)
}

// Opening returns the opening position for a day, synthesizing a rollover
// when no explicit row exists.
func (h *BalanceHandler) Opening(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireView(w, r, kioskID, userID) {
		return
	}

	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	pos, err := h.service.OpeningPosition(r.Context(), kioskID, date)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	started, err := h.service.DayStarted(r.Context(), kioskID, date)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"opening":     pos,
		"day_started": started,
	})
}

// Summary returns the folded position for a day.
func (h *BalanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireView(w, r, kioskID, userID) {
		return
	}

	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	summary, err := h.service.DaySummary(r.Context(), kioskID, date)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (h *BalanceHandler) requireView(w http.ResponseWriter, r *http.Request, kioskID, userID uuid.UUID) bool {
	ok, err := h.access.CanView(r.Context(), kioskID, userID)
	if err != nil {
		respondServiceError(w, err)
		return false
	}
	if !ok {
		respondError(w, http.StatusForbidden, "Not a member of this kiosk")
		return false
	}
	return true
}

// dateParam parses the ?date= query parameter, defaulting to today.
func dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now().UTC(), true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}
