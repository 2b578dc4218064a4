package middleware

import (
	"net/http"

	"github.com/coffeeworth/coffeeworth-backend/api/responses"
	"github.com/coffeeworth/coffeeworth-backend/api/validators"
	pkgauth "github.com/coffeeworth/coffeeworth-backend/pkg/auth"
	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

// RequireAuth validates the bearer access token and stashes the caller's
// identity in the request context. Requests without a valid token are
// rejected before the handler runs.
func RequireAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := validators.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
				return
			}

			ctx = WithUserID(ctx, claims.UserID.String())
			if claims.Email != "" {
				ctx = WithEmail(ctx, claims.Email)
			}
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
