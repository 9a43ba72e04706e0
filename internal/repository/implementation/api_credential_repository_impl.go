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

type ApiCredentialRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CredentialMapper
}

func NewApiCredentialRepository(db *gorm.DB) contract.ApiCredentialRepository {
	return &ApiCredentialRepositoryImpl{
		db:     db,
		mapper: mapper.NewCredentialMapper(),
	}
}

func (r *ApiCredentialRepositoryImpl) FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.ApiCredential, error) {
	var m model.ApiCredential
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ApiCredentialRepositoryImpl) Upsert(ctx context.Context, credential *entity.ApiCredential) error {
	m := r.mapper.ToModel(credential)

	// Partial update: only the keys present in the request overwrite,
	// absent keys keep their stored value.
	assignments := map[string]interface{}{}
	if m.OpenRouterKey != nil {
		assignments["open_router_key"] = *m.OpenRouterKey
	}
	if m.UniverMcpKey != nil {
		assignments["univer_mcp_key"] = *m.UniverMcpKey
	}

	tx := r.db.WithContext(ctx)
	if len(assignments) == 0 {
		// Nothing to update, still ensure the row exists
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(m).Error
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(m).Error; err != nil {
		return err
	}
	*credential = *r.mapper.ToEntity(m)
	return nil
}
