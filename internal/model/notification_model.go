package model

// Notification is the envelope pushed to connected websocket clients.
// Event names in use: "chat.reply", "chat.cancelled", "workbook.updated".
type Notification struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}
