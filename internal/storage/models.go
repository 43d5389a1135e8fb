package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Query is one answered request, as logged for review and feedback.
type Query struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	SessionID   string    `json:"session_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Workflow    string    `json:"workflow"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Links       []string  `json:"links"`
	Model       string    `json:"model"`
	LatencyMS   int64     `json:"latency_ms"`
	Success     bool      `json:"success"`
	FailureKind string    `json:"failure_kind,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	ThumbsUp    bool      `json:"thumbs_up"`
	ThumbsDown  bool      `json:"thumbs_down"`
	Feedback    string    `json:"feedback,omitempty"`
}

// Feedback is a user's rating of an answer.
type Feedback struct {
	ThumbsUp   bool
	ThumbsDown bool
	Note       string
}
