package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

// Authenticator establishes the principal of a request from its bearer token.
type Authenticator struct {
	issuer *TokenIssuer
}

func NewAuthenticator(issuer *TokenIssuer) *Authenticator {
	return &Authenticator{issuer: issuer}
}

// Middleware stores the principal carried by a valid bearer token in the
// request context. Requests without one continue as anonymous; an invalid
// token is treated the same way so public routes keep working.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := a.issuer.Parse(raw)
		if err != nil {
			logger.From(r.Context()).Debug("bearer token rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		l := logger.From(r.Context()).With(zap.Int64("principal", p.UserID))
		ctx := logger.ToContext(access.WithPrincipal(r.Context(), p), l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests with the UNALLOWED envelope.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !access.FromContext(r.Context()).Authenticated() {
			response.Error(w, r, apperr.Unauthorized(access.ReasonNotAllowed))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
