package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/server/auth"
)

type ctxKey int

const identityKey ctxKey = 0

// withAuth rejects requests without a valid bearer token and places the
// caller's identity in the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := auth.ParseIdentity(token, s.jwtSecret)
		if err != nil {
			s.logger.Debug(r.Context(), "rejected token", "error", err.Error())
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom returns the authenticated identity stored by withAuth. The
// second return is false only on routes mounted without the middleware.
func identityFrom(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*auth.Identity)
	return identity, ok
}
