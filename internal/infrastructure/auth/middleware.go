package auth

import (
	"net/http"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
)

// Optional attaches the user when a valid token is present.
func (v *Verifier) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := v.FromRequest(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (v *Verifier) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := v.FromRequest(r)
		if err != nil {
			json.WriteUnauthorizedError(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin must run after Required.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin {
			json.WriteForbiddenError(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
