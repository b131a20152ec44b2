package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type correlationKey string

const ctxRequestIDKey correlationKey = "request_id"

// Client-supplied IDs are kept, but clamped; the header is attacker
// controlled and ends up in every log line for the request.
const maxRequestIDLen = 64

// CorrelationID ensures every request carries an X-Request-ID, minted here
// when the client did not send one. The ID is echoed on the response and
// attached to the request log line.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if len(reqID) > maxRequestIDLen {
			reqID = reqID[:maxRequestIDLen]
		}
		if reqID == "" {
			reqID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), ctxRequestIDKey, reqID)
		w.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request's correlation ID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxRequestIDKey).(string)
	return s, ok
}
