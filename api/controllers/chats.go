package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/api/responses"
	"github.com/craftlinehq/craftline-backend/api/validators"
	"github.com/craftlinehq/craftline-backend/internal/chat"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
)

type postMessageRequest struct {
	Body          string  `json:"body" validate:"required,max=10000"`
	AttachmentURL *string `json:"attachment_url,omitempty" validate:"omitempty,url"`
}

// PostChatMessage records an internal message and queues outbound delivery.
func PostChatMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		chatID, err := uuid.Parse(chi.URLParam(r, "chatId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid chat id"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req postMessageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.Ingest(r.Context(), chat.IngestInput{
			ChatID:        chatID,
			SenderUserID:  &actor,
			Body:          req.Body,
			AttachmentURL: req.AttachmentURL,
			Source:        enums.MessageSourceInternal,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}
