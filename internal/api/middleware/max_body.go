package middleware

import (
	"net/http"

	"github.com/corpusai/corpusd/internal/api"
)

// MaxBodyBytes caps request body size at limit bytes. Requests that declare a
// larger Content-Length are rejected with 413 up front; streaming bodies are
// wrapped in http.MaxBytesReader so the handler's read fails at the cap.
// A limit of zero or less disables the check.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength != -1 && r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
