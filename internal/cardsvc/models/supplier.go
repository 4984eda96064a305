package models

import "time"

type Supplier struct {
	ID        int64     `json:"id"`         // Primary key
	Name      string    `json:"name"`       // Supplier company name
	CreatedAt time.Time `json:"created_at"` // Timestamp
	UpdatedAt time.Time `json:"updated_at"` // Timestamp
}
