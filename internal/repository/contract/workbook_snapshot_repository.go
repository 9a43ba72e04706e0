package contract

import (
	"context"

	"sheetgrid-be/internal/entity"

	"github.com/google/uuid"
)

type WorkbookSnapshotRepository interface {
	FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.WorkbookSnapshot, error)
	// Save upserts the user's single snapshot slot.
	Save(ctx context.Context, snapshot *entity.WorkbookSnapshot) error
	DeleteByUserId(ctx context.Context, userId uuid.UUID) error
}
