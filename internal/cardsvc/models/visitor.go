package models

import "time"

const (
	VisitorWaiting    = "waiting"
	VisitorInProgress = "in_progress"
	VisitorCompleted  = "completed" // terminal, no re-entry
)

type Visitor struct {
	ID        int64     `json:"id"`         // Primary key
	Name      string    `json:"name"`       // Visitor full name
	State     string    `json:"state"`      // 'waiting', 'in_progress', 'completed'
	CardID    *int64    `json:"card_id"`    // FK to cards(id), nil when no card issued
	CreatedAt time.Time `json:"created_at"` // Timestamp
	UpdatedAt time.Time `json:"updated_at"` // Timestamp
}
