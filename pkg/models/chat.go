package models

// Chat groups messages exchanged with a single character. UpdatedTS is the
// recency watermark: it moves forward whenever a user message is accepted
// and is never allowed to move backwards.
type Chat struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	CharacterID string `json:"character_id"`
	Title       string `json:"title,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - last accepted user activity
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}
