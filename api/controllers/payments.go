package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/api/middleware"
	"github.com/craftlinehq/craftline-backend/api/responses"
	"github.com/craftlinehq/craftline-backend/api/validators"
	"github.com/craftlinehq/craftline-backend/internal/payments"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
)

type milestoneRequest struct {
	MilestoneType string `json:"milestone_type" validate:"required,oneof=deposit upfront"`
}

// RequestMilestonePayment opens a deposit or upfront milestone for payment.
func RequestMilestonePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req milestoneRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.RequestMilestone(r.Context(), payments.RequestMilestoneInput{
			OrderID:       orderID,
			MilestoneType: enums.MilestoneType(req.MilestoneType),
			ActorUserID:   actor,
			ActorRole:     middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, intent)
	}
}

// RequestFinalPayment opens the final balance milestone for payment.
func RequestFinalPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.RequestMilestone(r.Context(), payments.RequestMilestoneInput{
			OrderID:       orderID,
			MilestoneType: enums.MilestoneTypeFinal,
			ActorUserID:   actor,
			ActorRole:     middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, intent)
	}
}
