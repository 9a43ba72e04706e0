package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PublishSnapshotMessage is the queue payload asking the consumer to
// persist a serialized workbook for a user.
type PublishSnapshotMessage struct {
	UserId   uuid.UUID       `json:"user_id"`
	Workbook json.RawMessage `json:"workbook"`
}

type ImportWorkbookResponse struct {
	WorkbookId string   `json:"workbook_id"`
	Name       string   `json:"name"`
	Sheets     []string `json:"sheets"`
}

type SaveSnapshotRequest struct {
	UserId string `json:"user_id" validate:"required"`
}

type SnapshotResponse struct {
	WorkbookId string     `json:"workbook_id"`
	Name       string     `json:"name"`
	SavedAt    *time.Time `json:"saved_at,omitempty"`
}
