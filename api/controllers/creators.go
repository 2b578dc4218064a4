package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/coffeeworth/coffeeworth-backend/api/responses"
	"github.com/coffeeworth/coffeeworth-backend/internal/creators"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

// CreatorProfile serves a creator's public support page by username.
func CreatorProfile(svc creators.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "creator service unavailable"))
			return
		}

		username := strings.TrimSpace(chi.URLParam(r, "username"))
		if username == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "username required"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCreator(ctx, username)
		}

		profile, err := svc.GetPublicProfile(ctx, username)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}
