package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sitepass/card-services/internal/cardsvc/service"
	"github.com/sitepass/card-services/internal/comm"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	ReportTopic   = "card.report"
	LocationTopic = "card.location"
)

// Broker is the message-driven twin of the HTTP surface: gateways
// publish card GPS readings on card.report, and every committed
// reading goes back out on card.location for the feed service.
type Broker struct {
	Conn            *nats.Conn
	LocationService *service.LocationService
}

func NewBroker(nc *nats.Conn, locationService *service.LocationService) *Broker {
	return &Broker{
		Conn:            nc,
		LocationService: locationService,
	}
}

func (b *Broker) SubscribeReports() (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(ReportTopic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// handles message coming from field gateways
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	err := json.Unmarshal(msgNat.Data, &msg)
	if err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch msg.Type {
	case "location-report":
		report := comm.LocationReport{}
		if err := json.Unmarshal(msg.Data, &report); err != nil {
			log.Errorf("Error invalid LocationReport payload: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := b.LocationService.RecordLocation(ctx, report.CardID, report.Latitude, report.Longitude, report.Accuracy)
		if err != nil {
			log.Errorf("Error [LocationService.RecordLocation] card %d: %s", report.CardID, err)
		}
	default:
		log.Warnf("unknown message type received: %s", msg.Type)
	}
}

// PublishLocation fans a committed reading out to card.location.
func (b *Broker) PublishLocation(event comm.LocationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &comm.WSMessage{
		Type: "card-location",
		Data: data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := b.Conn.Publish(LocationTopic, payload); err != nil {
		log.Errorf("error publishing card-location for card %d: %v", event.CardID, err)
		return err
	}

	return nil
}
