package models

// Roles a stored message may carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a persisted conversation turn. Messages are immutable once
// written; edits are not supported.
type Message struct {
	ID        string `json:"id"`
	ChatID    string `json:"chat_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedTS int64  `json:"created_ts"`
}

// ChatMessage is the wire form sent to the completion provider. It is
// distinct from Message: no identity, no timestamps, just role and text.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether role is one a client may persist.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
