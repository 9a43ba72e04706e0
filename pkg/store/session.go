package store

import "context"

// ChatExchange tracks the in-memory state of one chat session's active
// exchange with the model.
type ChatExchange struct {
	ID     string `json:"id"` // ChatSessionID
	UserID string `json:"user_id"`
	State  string `json:"state"` // "IDLE" | "AWAITING_MODEL" | "EXECUTING_TOOLS"

	// Cancel aborts the in-flight exchange. Nil when idle.
	Cancel context.CancelFunc `json:"-"`
}

const (
	StateIdle           = "IDLE"
	StateAwaitingModel  = "AWAITING_MODEL"
	StateExecutingTools = "EXECUTING_TOOLS"
)
