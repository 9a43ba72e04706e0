package entity

import (
	"time"

	"github.com/google/uuid"
)

// WorkbookSnapshot is the single cached workbook per user, stored as the
// serialized internal model.
type WorkbookSnapshot struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Data      []byte // workbook model JSON
	CreatedAt time.Time
	UpdatedAt *time.Time
}
