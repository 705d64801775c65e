package identity

import (
	"net/http"
	"strings"

	"spendwise/internal/log"
)

// SessionCookie is the cookie a browser session token travels in.
const SessionCookie = "__session"

// Verifier checks a raw session token.
type Verifier interface {
	Verify(raw string) (Identity, error)
}

// Middleware attaches the identity of a valid session token to the request
// context. Requests without one pass through unauthenticated; operations
// then fail with core.ErrUnauthorized.
func Middleware(v Verifier, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFrom(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := v.Verify(raw)
			if err != nil {
				logger.DebugContext(r.Context(), "Rejected session token",
					log.FieldPath, r.URL.Path,
					log.FieldError, err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
