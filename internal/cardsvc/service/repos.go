package service

import (
	"context"
	"time"

	"github.com/sitepass/card-services/internal/cardsvc/models"
	"github.com/sitepass/card-services/internal/comm"
)

// Repository interfaces let the services run against in-memory fakes in
// unit tests; the pgx stores satisfy them in production wiring.

type CardRepo interface {
	GetCardByID(ctx context.Context, id int64) (*models.Card, error)
	GetCardBySN(ctx context.Context, sn string) (*models.Card, error)
	CreateCard(ctx context.Context, cardSN string, supplierID int64) (*models.Card, error)
	UpdateCardActive(ctx context.Context, id int64, isActive bool) (*models.Card, error)
	DeleteCard(ctx context.Context, id int64) (bool, error)
	UpdateCardPosition(ctx context.Context, id int64, latitude, longitude float64, accuracy *float64) error
	SetVisitor(ctx context.Context, id int64, visitorID *int64, issuedAt *time.Time) error
	GetCardsInBoundingBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64, limit int) ([]*models.Card, error)
}

type LocationRepo interface {
	CreateHistory(ctx context.Context, cardID int64, latitude, longitude float64, accuracy *float64) (*models.CardLocationHistory, error)
	GetLatestByCardID(ctx context.Context, cardID int64) (*models.CardLocationHistory, error)
	ListByCardID(ctx context.Context, cardID int64, limit int) ([]*models.CardLocationHistory, error)
}

type VisitorRepo interface {
	GetVisitorByID(ctx context.Context, id int64) (*models.Visitor, error)
	SetStateAndCard(ctx context.Context, id int64, state string, cardID *int64) error
}

type SupplierRepo interface {
	GetSupplierByID(ctx context.Context, id int64) (*models.Supplier, error)
}

// Archiver keeps raw reports outside the serving path; writes are
// best-effort.
type Archiver interface {
	StoreReport(ctx context.Context, report comm.LocationReport, receivedAt time.Time) error
}

// EventPublisher pushes committed location events to downstream
// consumers; failures never fail the write that produced the event.
type EventPublisher interface {
	PublishLocation(event comm.LocationEvent) error
}
