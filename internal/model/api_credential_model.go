package model

import (
	"time"

	"github.com/google/uuid"
)

type ApiCredential struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	OpenRouterKey *string   `gorm:"type:text"`
	UniverMcpKey  *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (ApiCredential) TableName() string {
	return "api_credentials"
}
