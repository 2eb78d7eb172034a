// Package guard enforces the service-token check on API routes.
package guard

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hollandale/creekrun/pkg/auth"
	"github.com/hollandale/creekrun/pkg/clog"
)

type contextKey string

const principalKey contextKey = "principal"

type Service struct {
	secret []byte
	logger *clog.Logger
}

func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		logger: clog.NewDefault(),
	}
}

// open paths need no token
func isOpen(path string) bool {
	return path == "/api/health" || !strings.HasPrefix(path, "/api")
}

// Middleware rejects API requests without a valid bearer token.
func (s *Service) Middleware(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if isOpen(ctx.URL().Path) {
			next(ctx)
			return
		}

		authHeader := ctx.Header("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			huma.WriteErr(api, ctx, 401, "missing bearer token")
			return
		}

		claims, err := auth.Verify(s.secret, parts[1])
		if err != nil {
			s.logger.Warn("invalid token", "error", err.Error())
			huma.WriteErr(api, ctx, 401, "invalid token")
			return
		}

		s.logger.Debug("authenticated", "subject", claims.Subject)
		ctx = huma.WithValue(ctx, principalKey, claims)
		next(ctx)
	}
}

// Principal returns the verified claims attached by the middleware.
func Principal(ctx huma.Context) (*auth.TokenClaims, bool) {
	claims, ok := ctx.Context().Value(principalKey).(*auth.TokenClaims)
	return claims, ok
}
