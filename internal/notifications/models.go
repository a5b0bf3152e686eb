package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification kinds follow the submission lifecycle.
const (
	KindReceived  = "submission_received"
	KindApproved  = "submission_approved"
	KindRejected  = "submission_rejected"
	KindForwarded = "submission_forwarded"
)

// Notification is one in-app notification row for one recipient.
type Notification struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	SubmissionID uuid.UUID  `json:"submission_id" db:"submission_id"`
	Kind         string     `json:"kind" db:"kind"`
	Subject      string     `json:"subject" db:"subject"`
	Body         string     `json:"body" db:"body"`
	ReadAt       *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Event is a submission lifecycle event to fan out. DivisionID is the
// division owning the submission after the event took effect.
type Event struct {
	SubmissionID uuid.UUID
	Title        string
	Kind         string
	CreatorID    uuid.UUID
	DivisionID   uuid.UUID
	ActorName    string
	Note         string
}

// WSMessage is the frame pushed to connected clients.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
