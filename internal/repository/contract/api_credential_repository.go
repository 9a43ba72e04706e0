package contract

import (
	"context"

	"sheetgrid-be/internal/entity"

	"github.com/google/uuid"
)

type ApiCredentialRepository interface {
	FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.ApiCredential, error)
	// Upsert creates or updates the user's credential row. Nil key fields
	// are preserved, non-nil fields overwrite.
	Upsert(ctx context.Context, credential *entity.ApiCredential) error
}
