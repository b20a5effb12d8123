package middleware

import (
	"net/http"
	"strings"

	"github.com/planetory/tokenauth"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. A missing or malformed header is not an error; it reports ok=false
// and the request proceeds anonymously.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "Bearer "

	value := r.Header.Get("Authorization")
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate resolves the bearer token into a principal and attaches it to
// the request context. It always passes the request through: no header, an
// invalid token, or an expired token all yield an anonymous context, leaving
// the accept/reject decision to [RequireAuth] or [Protect].
func Authenticate(engine *tokenauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if ok && engine != nil && engine.Validate(token) {
				if principal, err := engine.PrincipalOf(token); err == nil {
					r = r.WithContext(tokenauth.ContextWithPrincipal(r.Context(), principal))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401. It expects to run after
// [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tokenauth.PrincipalFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allowlist enumerates the request paths that may be served without a
// principal. An entry ending in "/*" permits the whole subtree; any other
// entry must match exactly.
type Allowlist []string

// Permits reports whether path may be served anonymously.
func (a Allowlist) Permits(path string) bool {
	for _, entry := range a {
		if prefix, ok := strings.CutSuffix(entry, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == entry {
			return true
		}
	}
	return false
}

// Protect combines [Authenticate] with an allow-list: requests to permitted
// paths always pass, everything else requires a principal.
func Protect(engine *tokenauth.Engine, allow Allowlist) func(http.Handler) http.Handler {
	authenticate := Authenticate(engine)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allow.Permits(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := tokenauth.PrincipalFromContext(r.Context()); !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
