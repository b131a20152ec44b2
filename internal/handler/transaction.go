package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"floatbook/internal/kiosk"
	"floatbook/internal/ledger"
	"floatbook/internal/middleware"
	"floatbook/pkg/logger"
	"floatbook/pkg/validator"
)

// TransactionHandler exposes the ledger. Any team member can record and edit;
// deleting needs a manager.
type TransactionHandler struct {
	service   *ledger.Service
	access    *kiosk.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewTransactionHandler(service *ledger.Service, access *kiosk.Service, val *validator.Validator, log logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		service:   service,
		access:    access,
		validator: val,
		logger:    log,
	}
}

func (h *TransactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ledger.RecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RecordedBy = &userID

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.requireView(w, r, req.KioskID, userID) {
		return
	}

	tx, err := h.service.Record(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to record transaction", map[string]interface{}{
			"error":    err.Error(),
			"kiosk_id": req.KioskID,
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireView(w, r, kioskID, userID) {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if day := r.URL.Query().Get("date"); day != "" {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		txs, err := h.service.ListForDay(r.Context(), kioskID, date)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": txs,
			"count":        len(txs),
		})
		return
	}

	txs, total, err := h.service.ListForKiosk(r.Context(), kioskID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"total":        total,
	})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	txID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	tx, err := h.service.Get(r.Context(), txID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !h.requireView(w, r, tx.KioskID, userID) {
		return
	}

	respondJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	txID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	var req ledger.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.service.Get(r.Context(), txID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !h.requireView(w, r, existing.KioskID, userID) {
		return
	}

	tx, err := h.service.Update(r.Context(), txID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	txID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	existing, err := h.service.Get(r.Context(), txID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	isOwner, err := h.access.IsOwner(r.Context(), existing.KioskID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !isOwner {
		respondError(w, http.StatusForbidden, "Only the kiosk owner can delete entries")
		return
	}

	if err := h.service.Delete(r.Context(), txID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) SearchByCustomer(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireView(w, r, kioskID, userID) {
		return
	}

	phone := r.URL.Query().Get("phone")
	if phone == "" {
		respondError(w, http.StatusBadRequest, "phone query parameter required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	txs, err := h.service.SearchByCustomer(r.Context(), kioskID, phone, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

func (h *TransactionHandler) requireView(w http.ResponseWriter, r *http.Request, kioskID, userID uuid.UUID) bool {
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

// kioskAndUser pulls the authenticated user and the {kioskID} path variable.
func kioskAndUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}

	kioskID, err := uuid.Parse(mux.Vars(r)["kioskID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid kiosk ID")
		return uuid.Nil, uuid.Nil, false
	}
	return kioskID, userID, true
}
