package implementation

import (
	"context"
	"errors"

	"sheetgrid-be/internal/entity"
	"sheetgrid-be/internal/mapper"
	"sheetgrid-be/internal/model"
	"sheetgrid-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkbookSnapshotRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WorkbookMapper
}

func NewWorkbookSnapshotRepository(db *gorm.DB) contract.WorkbookSnapshotRepository {
	return &WorkbookSnapshotRepositoryImpl{
		db:     db,
		mapper: mapper.NewWorkbookMapper(),
	}
}

func (r *WorkbookSnapshotRepositoryImpl) FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.WorkbookSnapshot, error) {
	var m model.WorkbookSnapshot
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SnapshotToEntity(&m), nil
}

func (r *WorkbookSnapshotRepositoryImpl) Save(ctx context.Context, snapshot *entity.WorkbookSnapshot) error {
	m := r.mapper.SnapshotToModel(snapshot)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(m).Error; err != nil {
		return err
	}
	*snapshot = *r.mapper.SnapshotToEntity(m)
	return nil
}

func (r *WorkbookSnapshotRepositoryImpl) DeleteByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.WorkbookSnapshot{}).Error
}
