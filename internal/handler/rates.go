package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"floatbook/internal/commission"
	"floatbook/internal/domain"
	"floatbook/internal/kiosk"
	"floatbook/internal/middleware"
	"floatbook/pkg/logger"
	"floatbook/pkg/validator"
)

// NetworkSource lists the provider reference data.
type NetworkSource interface {
	ActiveNetworks(ctx context.Context) ([]domain.Network, error)
}

// RateHandler exposes both commission tables. Per-kiosk agent overrides are
// gated on kiosk ownership; the network-wide tables apply to every kiosk, so
// writes to them require an account listed in ADMIN_EMAILS.
type RateHandler struct {
	service   *commission.Service
	networks  NetworkSource
	access    *kiosk.Service
	admins    map[string]struct{}
	validator *validator.Validator
	logger    logger.Logger
}

func NewRateHandler(service *commission.Service, networks NetworkSource, access *kiosk.Service, adminEmails []string, val *validator.Validator, log logger.Logger) *RateHandler {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(email)] = struct{}{}
	}
	return &RateHandler{
		service:   service,
		networks:  networks,
		access:    access,
		admins:    admins,
		validator: val,
		logger:    log,
	}
}

func (h *RateHandler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := h.networks.ActiveNetworks(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"networks": networks})
}

func (h *RateHandler) ListNetworkRates(w http.ResponseWriter, r *http.Request) {
	networkID, err := uuid.Parse(mux.Vars(r)["networkID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid network ID")
		return
	}

	rates, err := h.service.ListRates(r.Context(), networkID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rates": rates})
}

func (h *RateHandler) CreateNetworkRate(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	networkID, err := uuid.Parse(mux.Vars(r)["networkID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid network ID")
		return
	}

	var req commission.RateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.NetworkID = networkID

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rate, err := h.service.CreateRate(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create network rate", map[string]interface{}{
			"error":      err.Error(),
			"network_id": networkID,
		})
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rate)
}

func (h *RateHandler) UpdateNetworkRate(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	rateID, err := uuid.Parse(mux.Vars(r)["rateID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid rate ID")
		return
	}

	networkID, err := uuid.Parse(mux.Vars(r)["networkID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid network ID")
		return
	}

	var req commission.RateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// A tier cannot move between networks; the path decides which table the
	// row belongs to.
	req.NetworkID = networkID

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rate, err := h.service.UpdateRate(r.Context(), rateID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rate)
}

func (h *RateHandler) DeactivateNetworkRate(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	rateID, err := uuid.Parse(mux.Vars(r)["rateID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid rate ID")
		return
	}

	if err := h.service.DeactivateRate(r.Context(), rateID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RateHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User not found in context")
		return false
	}
	if _, ok := h.admins[strings.ToLower(email)]; !ok {
		respondError(w, http.StatusForbidden, "Network rate tables can only be edited by an administrator")
		return false
	}
	return true
}

func (h *RateHandler) ListAgentRates(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireOwner(w, r, kioskID, userID) {
		return
	}

	networkID, err := uuid.Parse(r.URL.Query().Get("network_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "network_id query parameter required")
		return
	}
	txType := domain.TransactionType(r.URL.Query().Get("type"))
	if txType != domain.TypeDeposit && txType != domain.TypeWithdrawal {
		respondError(w, http.StatusBadRequest, "type must be DEPOSIT or WITHDRAWAL")
		return
	}

	rates, err := h.service.ListAgentRates(r.Context(), kioskID, networkID, txType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rates": rates})
}

func (h *RateHandler) UpsertAgentRate(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireOwner(w, r, kioskID, userID) {
		return
	}

	var req commission.AgentRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.KioskID = kioskID

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rate, err := h.service.UpsertAgentRate(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to upsert agent rate", map[string]interface{}{
			"error":    err.Error(),
			"kiosk_id": kioskID,
		})
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rate)
}

func (h *RateHandler) DeactivateAgentRate(w http.ResponseWriter, r *http.Request) {
	kioskID, userID, ok := kioskAndUser(w, r)
	if !ok {
		return
	}
	if !h.requireOwner(w, r, kioskID, userID) {
		return
	}

	rateID, err := uuid.Parse(mux.Vars(r)["rateID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid rate ID")
		return
	}

	if err := h.service.DeactivateAgentRate(r.Context(), kioskID, rateID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RateHandler) requireOwner(w http.ResponseWriter, r *http.Request, kioskID, userID uuid.UUID) bool {
	ok, err := h.access.IsOwner(r.Context(), kioskID, userID)
	if err != nil {
		respondServiceError(w, err)
		return false
	}
	if !ok {
		respondError(w, http.StatusForbidden, "Only the kiosk owner can manage rates")
		return false
	}
	return true
}
