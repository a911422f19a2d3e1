package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"wavecatch/internal/logging"
)

const codeUnauthorized = "unauthorized"

// requireToken guards next with the configured API token. An empty token
// leaves the API open. Clients send "Authorization: Bearer <token>"; a
// "token" query parameter is accepted for /api/events so plain browser
// polling works without custom headers.
func (s *apiServer) requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	want := []byte(token)
	return func(w http.ResponseWriter, r *http.Request) {
		presented, source := presentedToken(r)
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), want) != 1 {
			logging.WithContext(r.Context(), s.log()).Debug("api request rejected",
				logging.String("path", r.URL.Path),
				logging.String("token_source", source),
			)
			s.writeJSON(w, http.StatusUnauthorized, unauthorizedBody)
			return
		}
		next(w, r)
	}
}

var unauthorizedBody = map[string]string{"error": codeUnauthorized, "code": codeUnauthorized}

func presentedToken(r *http.Request) (string, string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, value, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", "header"
		}
		return strings.TrimSpace(value), "header"
	}
	if r.URL.Path == "/api/events" {
		if value := r.URL.Query().Get("token"); value != "" {
			return value, "query"
		}
	}
	return "", "none"
}
