package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// requestIDContextKey keeps the context entry distinct from other packages'
// string keys.
type requestIDContextKey string

const RequestIDContextKey requestIDContextKey = "request_id"

// resolveRequestID reuses an id set by chi's middleware or the caller's
// header, generating a fresh UUID only when neither exists.
func resolveRequestID(r *http.Request) string {
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		return requestID
	}
	if requestID := r.Header.Get(RequestIDHeader); requestID != "" {
		return requestID
	}
	return uuid.New().String()
}

// RequestID stamps every request with a correlation id and echoes it in the
// response headers so callers can quote it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := resolveRequestID(r)
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the correlation id for ctx. It falls back to chi's
// request id for handlers mounted without this middleware.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return requestID
	}
	return middleware.GetReqID(ctx)
}
