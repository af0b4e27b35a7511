package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/api/middleware"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
)

// actorID resolves the authenticated caller from the request context.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ActorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor id required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor id")
	}
	return id, nil
}
