package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"clipper/internal/logging"
)

// requireToken guards mutating routes with "Authorization: Bearer <token>".
// An empty token disables the check; viewer analytics routes never use it.
func (s *apiServer) requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	expected := []byte(token)
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok || subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
			logging.WithContext(r.Context(), s.logger).Warn("rejected unauthenticated request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Bool("credentials_present", ok),
				logging.String(logging.FieldEventType, "auth_rejected"),
				logging.String(logging.FieldErrorHint, "pass --token or set CLIPPER_API_TOKEN"),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="clipperd"`)
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
