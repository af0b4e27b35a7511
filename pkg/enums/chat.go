package enums

import "fmt"

// MessageSource records which surface authored a chat message.
type MessageSource string

const (
	MessageSourceInternal MessageSource = "internal"
	MessageSourceExternal MessageSource = "external"
)

var validMessageSources = []MessageSource{
	MessageSourceInternal,
	MessageSourceExternal,
}

// IsValid reports whether the value matches the canonical message source enum.
func (s MessageSource) IsValid() bool {
	for _, candidate := range validMessageSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseMessageSource converts the raw string to MessageSource.
func ParseMessageSource(value string) (MessageSource, error) {
	for _, candidate := range validMessageSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid message source %q", value)
}

// ParticipantRole tags a chat participant with their role in the engagement.
type ParticipantRole string

const (
	ParticipantRoleBuyer   ParticipantRole = "buyer"
	ParticipantRoleFactory ParticipantRole = "factory"
	ParticipantRoleRep     ParticipantRole = "rep"
)

var validParticipantRoles = []ParticipantRole{
	ParticipantRoleBuyer,
	ParticipantRoleFactory,
	ParticipantRoleRep,
}

// IsValid reports whether the value matches the canonical participant role enum.
func (r ParticipantRole) IsValid() bool {
	for _, candidate := range validParticipantRoles {
		if candidate == r {
			return true
		}
	}
	return false
}
