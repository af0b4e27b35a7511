package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/api/middleware"
	"github.com/craftlinehq/craftline-backend/api/responses"
	"github.com/craftlinehq/craftline-backend/api/validators"
	"github.com/craftlinehq/craftline-backend/internal/assignments"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
)

type assignRequest struct {
	OrderID   string `json:"order_id" validate:"required,uuid"`
	RepUserID string `json:"rep_user_id" validate:"required,uuid"`
}

// AssignRep binds a sourcing rep to an order or sample.
func AssignRep(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignments service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		repID, err := uuid.Parse(req.RepUserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rep user id"))
			return
		}

		result, err := svc.Assign(r.Context(), assignments.AssignInput{
			OrderID:          orderID,
			RepUserID:        repID,
			AssignedByUserID: actor,
			ActorRole:        middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
