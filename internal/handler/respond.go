// Package handler provides the HTTP surface over the services.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"floatbook/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a capped, strict JSON body into dst. It writes the error
// response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondServiceError maps the service sentinels onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrKioskNotFound),
		errors.Is(err, errors.ErrNetworkNotFound),
		errors.Is(err, errors.ErrRateNotFound),
		errors.Is(err, errors.ErrTransactionNotFound),
		errors.Is(err, errors.ErrOpeningBalanceNotFound),
		errors.Is(err, errors.ErrReportNotFound),
		errors.Is(err, errors.ErrNotificationNotFound),
		errors.Is(err, errors.ErrUserNotFound),
		errors.Is(err, errors.ErrMemberNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errors.ErrNotAuthorized),
		errors.Is(err, errors.ErrOwnerOnly):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errors.ErrAlreadyMember),
		errors.Is(err, errors.ErrUserAlreadyExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errors.ErrInvalidCredentials),
		errors.Is(err, errors.ErrInvalidRefreshToken):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
