package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coffeeworth/coffeeworth-backend/api/middleware"
	"github.com/coffeeworth/coffeeworth-backend/api/responses"
	"github.com/coffeeworth/coffeeworth-backend/api/validators"
	"github.com/coffeeworth/coffeeworth-backend/internal/creators"
	"github.com/coffeeworth/coffeeworth-backend/internal/payouts"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	dbtypes "github.com/coffeeworth/coffeeworth-backend/pkg/db/types"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

func authedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id in token")
	}
	return id, nil
}

// Me returns the authenticated creator's own account, bank details included.
func Me(svc creators.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "creator service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		me, err := svc.GetMe(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, me)
	}
}

type updateMeRequest struct {
	Name        *string              `json:"name,omitempty"`
	Username    *string              `json:"username,omitempty"`
	Image       *string              `json:"image,omitempty"`
	Bio         *string              `json:"bio,omitempty"`
	CoffeePrice *int                 `json:"coffee_price,omitempty" validate:"omitempty,gt=0"`
	ThemeColor  *string              `json:"theme_color,omitempty"`
	SocialLinks *dbtypes.SocialLinks `json:"social_links,omitempty"`
	BankCode    *string              `json:"bank_code,omitempty"`
	BankAccount *string              `json:"bank_account,omitempty"`
	BankHolder  *string              `json:"bank_holder,omitempty"`
	EmailNotify *bool                `json:"email_notify,omitempty"`
	IsPublic    *bool                `json:"is_public,omitempty"`
}

// UpdateMe applies a partial update to the creator's profile and settings.
func UpdateMe(svc creators.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "creator service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateMeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		me, err := svc.UpdateMe(r.Context(), userID, creators.UpdateProfileInput{
			Name:        req.Name,
			Username:    req.Username,
			Image:       req.Image,
			Bio:         req.Bio,
			CoffeePrice: req.CoffeePrice,
			ThemeColor:  req.ThemeColor,
			SocialLinks: req.SocialLinks,
			BankCode:    req.BankCode,
			BankAccount: req.BankAccount,
			BankHolder:  req.BankHolder,
			EmailNotify: req.EmailNotify,
			IsPublic:    req.IsPublic,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, me)
	}
}

// MyStats returns lifetime and current-month support aggregates for the
// authenticated creator.
func MyStats(svc supports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "support service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.StatsForCreator(r.Context(), userID, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// MySupports lists the authenticated creator's received supports, newest
// first, with cursor pagination.
func MySupports(svc supports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "support service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForCreator(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// MyBalance returns the creator's settlement balance and payout history.
func MyBalance(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}

// RequestPayout asks to pay out the creator's full pending balance to the
// bank account on file.
func RequestPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Request(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}
