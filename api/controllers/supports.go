package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coffeeworth/coffeeworth-backend/api/responses"
	"github.com/coffeeworth/coffeeworth-backend/api/validators"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

type createSupportRequest struct {
	CreatorUsername string  `json:"creator_username" validate:"required"`
	CoffeeCount     int     `json:"coffee_count" validate:"required,min=1,max=100"`
	Message         *string `json:"message,omitempty"`
	SupporterName   *string `json:"supporter_name,omitempty"`
	SupporterEmail  *string `json:"supporter_email,omitempty" validate:"omitempty,email"`
	IsAnonymous     bool    `json:"is_anonymous"`
}

// CreateSupport opens a pending support that the supporter then pays through
// the gateway checkout. No authentication; supporters are anonymous visitors.
func CreateSupport(svc supports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "support service unavailable"))
			return
		}

		var req createSupportRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		support, err := svc.Create(r.Context(), supports.CreateSupportInput{
			CreatorUsername: req.CreatorUsername,
			CoffeeCount:     req.CoffeeCount,
			Message:         req.Message,
			SupporterName:   req.SupporterName,
			SupporterEmail:  req.SupporterEmail,
			IsAnonymous:     req.IsAnonymous,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, support)
	}
}

// GetSupport returns the public view of a completed support. Supports that
// have not settled yet come back as forbidden, and anonymous supports never
// expose the stored supporter name or message.
func GetSupport(svc supports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "support service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid support id"))
			return
		}

		support, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, support)
	}
}
