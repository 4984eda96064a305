package models

import "time"

type Card struct {
	ID         int64      `json:"id"`          // Primary key
	CardSN     string     `json:"card_sn"`     // Unique serial number printed on the badge
	IsActive   bool       `json:"is_active"`   // Inactive cards cannot be assigned
	SupplierID int64      `json:"supplier_id"` // FK to suppliers(id), owning supplier
	VisitorID  *int64     `json:"visitor_id"`  // FK to visitors(id), nil when unassigned
	IssuedAt   *time.Time `json:"issued_at"`   // Set on assignment, cleared on unassignment
	Latitude   *float64   `json:"latitude"`    // Denormalized last reading
	Longitude  *float64   `json:"longitude"`   // Denormalized last reading
	Accuracy   *float64   `json:"accuracy"`    // Denormalized last reading, meters
	CreatedAt  time.Time  `json:"created_at"`  // Timestamp
	UpdatedAt  time.Time  `json:"updated_at"`  // Timestamp
}
