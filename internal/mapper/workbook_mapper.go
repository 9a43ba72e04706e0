package mapper

import (
	"time"

	"sheetgrid-be/internal/entity"
	"sheetgrid-be/internal/model"

	"gorm.io/datatypes"
)

type WorkbookMapper struct{}

func NewWorkbookMapper() *WorkbookMapper {
	return &WorkbookMapper{}
}

func (m *WorkbookMapper) SnapshotToEntity(s *model.WorkbookSnapshot) *entity.WorkbookSnapshot {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.WorkbookSnapshot{
		Id:        s.Id,
		UserId:    s.UserId,
		Data:      []byte(s.Data),
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *WorkbookMapper) SnapshotToModel(s *entity.WorkbookSnapshot) *model.WorkbookSnapshot {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.WorkbookSnapshot{
		Id:        s.Id,
		UserId:    s.UserId,
		Data:      datatypes.JSON(s.Data),
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}
