package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireBearer guards discovery routes with the configured bearer token.
// Dev mode bypasses the check entirely so local tooling can browse the
// catalog without credentials.
func (h *Handler) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.devMode {
			next.ServeHTTP(w, r)
			return
		}
		if h.authToken == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "discovery disabled: no token configured"})
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.authToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
