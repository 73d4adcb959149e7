package middleware

import (
	"net/http"

	"coffeeshop-be/internal/auth"
	"coffeeshop-be/internal/handler"
)

// Authenticate requires a valid access token and stores the resolved
// principal in the request context.
func Authenticate(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := gate.Authenticate(r)
			if err != nil {
				handler.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				handler.WriteError(w, r, auth.ErrUnauthenticated)
				return
			}
			if _, err := gate.RequireAdmin(r.Context(), p); err != nil {
				handler.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
