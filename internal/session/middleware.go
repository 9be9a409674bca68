package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
)

type ctxKeyClaims struct{}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims{}).(*Claims)
	return c, ok
}

func bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	// EventSource cannot set headers.
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// RequireAuth returns a middleware that verifies the bearer token and puts the
// identity and claims in the request context. Rotation tokens are refused
// with FIRST_LOGIN_REQUIRED unless allowRotation is set.
func RequireAuth(svc *Service, logger *zap.SugaredLogger, allowRotation bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r)
			if tok == "" {
				apperr.Respond(w, logger, fmt.Errorf("missing bearer token: %w", apperr.ErrAuthentication))
				return
			}
			c, err := svc.Authenticate(r.Context(), tok)
			if err != nil {
				apperr.Respond(w, logger, err)
				return
			}
			if c.FirstLoginPending && !allowRotation {
				apperr.Respond(w, logger, apperr.ErrFirstLoginRequired)
				return
			}
			ctx := access.WithIdentity(r.Context(), c.Identity())
			ctx = context.WithValue(ctx, ctxKeyClaims{}, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
