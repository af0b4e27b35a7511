package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/api/middleware"
	"github.com/craftlinehq/craftline-backend/api/responses"
	"github.com/craftlinehq/craftline-backend/api/validators"
	"github.com/craftlinehq/craftline-backend/internal/archive"
	"github.com/craftlinehq/craftline-backend/internal/ledger"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
)

type transitionRequest struct {
	Target string  `json:"target" validate:"required"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type transitionResponse struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Version    int64             `json:"version"`
}

// TransitionOrderStatus moves an order or sample along its lifecycle graph.
func TransitionOrderStatus(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		result, err := svc.ApplyTransition(r.Context(), ledger.ApplyTransitionInput{
			OrderID:     orderID,
			Target:      target,
			ActorUserID: actor,
			ActorRole:   middleware.ActorRoleFromContext(r.Context()),
			Notes:       req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transitionResponse{
			OrderID:    result.Order.ID,
			FromStatus: result.FromStatus,
			ToStatus:   result.ToStatus,
			Version:    result.Order.Version,
		})
	}
}

type archiveRequest struct {
	CertificateURL string `json:"certificate_url" validate:"required,url"`
}

// ArchiveOrder retires a completed order behind its completion certificate.
func ArchiveOrder(svc archive.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "archive service unavailable"))
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

		var req archiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Archive(r.Context(), archive.ArchiveInput{
			OrderID:        orderID,
			CertificateURL: req.CertificateURL,
			ActorUserID:    actor,
			ActorRole:      middleware.ActorRoleFromContext(r.Context()),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}
