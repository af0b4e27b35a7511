package chat

import (
	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// IngestInput carries a message into the bridge from either side. Internal
// messages need a sender; external messages need the provider's message id.
type IngestInput struct {
	ChatID            uuid.UUID
	SenderUserID      *uuid.UUID
	Body              string
	AttachmentURL     *string
	Source            enums.MessageSource
	ExternalMessageID *string
}
