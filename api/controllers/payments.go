package controllers

import (
	"net/http"

	"github.com/coffeeworth/coffeeworth-backend/api/responses"
	"github.com/coffeeworth/coffeeworth-backend/api/validators"
	"github.com/coffeeworth/coffeeworth-backend/internal/payments"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

type confirmPaymentRequest struct {
	PaymentKey string `json:"payment_key" validate:"required"`
	OrderID    string `json:"order_id" validate:"required"`
	Amount     int    `json:"amount" validate:"required,gt=0"`
}

// ConfirmPayment settles a support after the supporter authorized the
// payment in the gateway checkout. The frontend calls this from the
// gateway success redirect.
func ConfirmPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var req confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, req.OrderID)
		}

		result, err := svc.Confirm(ctx, payments.ConfirmInput{
			PaymentKey: req.PaymentKey,
			OrderID:    req.OrderID,
			Amount:     req.Amount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
