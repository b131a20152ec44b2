package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"floatbook/internal/kiosk"
	"floatbook/internal/middleware"
	"floatbook/pkg/logger"
	"floatbook/pkg/validator"
)

type KioskHandler struct {
	service   *kiosk.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewKioskHandler(service *kiosk.Service, val *validator.Validator, log logger.Logger) *KioskHandler {
	return &KioskHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

func (h *KioskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req kiosk.CreateKioskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.OwnerID = userID

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.CreateKiosk(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create kiosk", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID,
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (h *KioskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	kiosks, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kiosks": kiosks,
		"count":  len(kiosks),
	})
}

func (h *KioskHandler) Get(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireView(w, r, kioskID, userID) {
		return
	}

	k, err := h.service.GetKiosk(r.Context(), kioskID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, k)
}

// GetBySlug resolves shared kiosk links.
func (h *KioskHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	k, err := h.service.GetKioskBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !h.requireView(w, r, k.ID, userID) {
		return
	}

	respondJSON(w, http.StatusOK, k)
}

func (h *KioskHandler) Update(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}

	var req kiosk.UpdateKioskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.UpdateKiosk(r.Context(), kioskID, userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

func (h *KioskHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}

	var req kiosk.InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := h.service.InviteMember(r.Context(), kioskID, userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, member)
}

func (h *KioskHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.RemoveMember(r.Context(), kioskID, userID, memberID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *KioskHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireView(w, r, kioskID, userID) {
		return
	}

	members, err := h.service.ListMembers(r.Context(), kioskID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"members": members,
		"count":   len(members),
	})
}

func (h *KioskHandler) requireView(w http.ResponseWriter, r *http.Request, kioskID, userID uuid.UUID) bool {
	ok, err := h.service.CanView(r.Context(), kioskID, userID)
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
