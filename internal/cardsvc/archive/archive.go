package archive

import (
	"context"
	"time"

	"github.com/sitepass/card-services/internal/comm"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "card_location_reports"

	retention = 30 * 24 * time.Hour
)

type reportDocument struct {
	CardID     int64     `bson:"card_id"`
	Latitude   float64   `bson:"latitude"`
	Longitude  float64   `bson:"longitude"`
	Accuracy   *float64  `bson:"accuracy,omitempty"`
	ReceivedAt time.Time `bson:"received_at"`
	ExpiresAt  time.Time `bson:"expires_at"` // TTL index field
}

// Archive keeps raw location reports for a bounded window. It is never
// read on the serving path; writes are best-effort beside the cache.
type Archive struct {
	collection *mongo.Collection
}

func NewArchive(db *mongo.Database) *Archive {
	return &Archive{collection: db.Collection(CollectionName)}
}

func (a *Archive) StoreReport(ctx context.Context, report comm.LocationReport, receivedAt time.Time) error {
	doc := reportDocument{
		CardID:     report.CardID,
		Latitude:   report.Latitude,
		Longitude:  report.Longitude,
		Accuracy:   report.Accuracy,
		ReceivedAt: receivedAt,
		ExpiresAt:  receivedAt.Add(retention),
	}

	_, err := a.collection.InsertOne(ctx, doc)
	return err
}
