package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/transit241/port-logistics/pkg/logger"
)

const (
	traceHeader   = "X-Trace-ID"
	maxTraceIDLen = 64
)

// RequestID propagates X-Trace-ID, minting one when the caller sent none.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" || len(traceID) > maxTraceIDLen {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(traceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
