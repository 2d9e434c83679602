package middleware

import (
	"crypto/subtle"
	"net/http"

	"termomaz/config"
	"termomaz/httputil"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BasicAuth protects every request that can change data. Reads stay open so the
// counter screens keep working without credentials. Credentials come from the current
// config on every request, so a password saved through /api/config applies at once.
func BasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		auth := config.Get().Auth
		if !auth.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(auth.AdminUser)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(auth.AdminPasswordHash), []byte(p)) != nil {
			zap.L().Warn("rejected credentials", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			w.Header().Set("WWW-Authenticate", `Basic realm="termomaz"`)
			httputil.WriteMessage(w, http.StatusUnauthorized, "Se requiere autenticación.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashPassword returns the bcrypt hash stored in the config.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
