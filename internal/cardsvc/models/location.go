package models

import "time"

// CardLocationHistory rows are append-only; they are never updated or
// deleted once written.
type CardLocationHistory struct {
	ID        int64     `json:"id"`        // Primary key
	CardID    int64     `json:"card_id"`   // FK to cards(id)
	Latitude  float64   `json:"latitude"`  // [-90, 90]
	Longitude float64   `json:"longitude"` // [-180, 180]
	Accuracy  *float64  `json:"accuracy"`  // [0, 1000] meters, optional
	Timestamp time.Time `json:"timestamp"` // Reading time, set by the store
}
