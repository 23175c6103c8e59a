package domain

import "time"

type ConversationID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Tag is a label applied to subscribers in the remote account.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Timestamp = time.Time
