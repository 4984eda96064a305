package comm

import (
	"encoding/json"
	"time"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "location-report", "watch-supplier"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}

type ServiceShutdown struct {
	ID string `json:"id"` // service id
}

// LocationReport is an inbound GPS reading for a card, either from the
// HTTP endpoint or from the card.report NATS topic.
type LocationReport struct {
	CardID    int64    `json:"card_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"` // meters, optional
}

// LocationEvent is published on card.location after a report has been
// committed to the store.
type LocationEvent struct {
	CardID     int64     `json:"card_id"`
	CardSN     string    `json:"card_sn"`
	SupplierID int64     `json:"supplier_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Timestamp  time.Time `json:"timestamp"`
}

// WatchSupplier is sent by feed clients to receive location events for
// one supplier's cards.
type WatchSupplier struct {
	SupplierID int64 `json:"supplier_id"`
}
