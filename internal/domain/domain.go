// Package domain aggregates the backend's domain types so callers can import
// a single package as "types".
package domain

import (
	"github.com/spinnernet/backend/internal/domain/persona"
	"github.com/spinnernet/backend/internal/domain/user"
)

const PurposePersonaDiscovery = persona.PurposePersonaDiscovery

type (
	User      = user.User
	UserToken = user.UserToken

	Conversation     = persona.Conversation
	Message          = persona.Message
	Sender           = persona.Sender
	ExtractionResult = persona.ExtractionResult
	PersonaProfile   = persona.PersonaProfile
)

const (
	SenderUser      = persona.SenderUser
	SenderAssistant = persona.SenderAssistant
)
