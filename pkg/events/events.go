package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TOOL_EXECUTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewToolExecuted records one tool call executed on behalf of a chat
// session, for the audit stream.
func NewToolExecuted(sessionId, toolName string, remote bool) Event {
	return BaseEvent{
		Type: "TOOL_EXECUTED",
		Data: map[string]interface{}{
			"session_id": sessionId,
			"tool":       toolName,
			"remote":     remote,
		},
		OccurredAt: time.Now(),
	}
}

// NewWorkbookImported records a completed XLSX import.
func NewWorkbookImported(userId, workbookId string, sheets int) Event {
	return BaseEvent{
		Type: "WORKBOOK_IMPORTED",
		Data: map[string]interface{}{
			"user_id":     userId,
			"workbook_id": workbookId,
			"sheets":      sheets,
		},
		OccurredAt: time.Now(),
	}
}
