package entity

import (
	"time"

	"github.com/google/uuid"
)

// ApiCredential holds a user's keys for the external chat-completion and
// remote tool endpoints. Either key may be absent.
type ApiCredential struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	OpenRouterKey *string
	UniverMcpKey  *string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
