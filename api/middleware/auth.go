package middleware

import (
	"net/http"
	"strings"

	"github.com/stocktrail/stocktrail-backend/api/responses"
	pkgAuth "github.com/stocktrail/stocktrail-backend/pkg/auth"
	"github.com/stocktrail/stocktrail-backend/pkg/config"
	pkgerrors "github.com/stocktrail/stocktrail-backend/pkg/errors"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Username, claims.Roles)

			if logg != nil {
				roleNames := make([]string, 0, len(claims.Roles))
				for _, role := range claims.Roles {
					roleNames = append(roleNames, role.String())
				}
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID,
					"username":   claims.Username,
					"actor_role": strings.Join(roleNames, ","),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
