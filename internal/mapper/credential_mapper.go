package mapper

import (
	"time"

	"sheetgrid-be/internal/entity"
	"sheetgrid-be/internal/model"
)

type CredentialMapper struct{}

func NewCredentialMapper() *CredentialMapper {
	return &CredentialMapper{}
}

func (m *CredentialMapper) ToEntity(c *model.ApiCredential) *entity.ApiCredential {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.ApiCredential{
		Id:            c.Id,
		UserId:        c.UserId,
		OpenRouterKey: c.OpenRouterKey,
		UniverMcpKey:  c.UniverMcpKey,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *CredentialMapper) ToModel(c *entity.ApiCredential) *model.ApiCredential {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.ApiCredential{
		Id:            c.Id,
		UserId:        c.UserId,
		OpenRouterKey: c.OpenRouterKey,
		UniverMcpKey:  c.UniverMcpKey,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}
