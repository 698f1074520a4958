package utils

import "github.com/google/uuid"

// NewChatID returns a fresh chat identifier.
func NewChatID() string {
	return "chat-" + uuid.NewString()
}

// NewMessageID returns a fresh message identifier. IDs are the dedupe key
// for subscription consumers, so they must be unique per insert, not per
// content.
func NewMessageID() string {
	return "msg-" + uuid.NewString()
}

// NewRequestID returns an identifier for one streaming send session.
func NewRequestID() string {
	return "req-" + uuid.NewString()
}
