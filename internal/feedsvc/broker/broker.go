package broker

import (
	"encoding/json"
	"strconv"

	"github.com/sitepass/card-services/internal/comm"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker bridges card.location events from NATS to the websocket
// clients watching the owning supplier.
type Broker struct {
	Conn               *nats.Conn
	GetConnection      func(string) (*websocket.Conn, bool)
	GetSupplierSockets func(string) ([]string, bool)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool), fncGetSupplierSockets func(string) ([]string, bool)) *Broker {
	return &Broker{
		Conn:               conn,
		GetConnection:      fncGetConnection,
		GetSupplierSockets: fncGetSupplierSockets,
	}
}

func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// handleMessages receives committed location events from card service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case "card-location":
		b.fanOut(message)
	default:
		log.Error("Unknown message")
		return
	}
}

// fanOut pushes the event to every socket watching the supplier.
func (b *Broker) fanOut(m *comm.WSMessage) {
	var event comm.LocationEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		log.Errorf("Error invalid LocationEvent payload: %s", err)
		return
	}

	sockets, ok := b.GetSupplierSockets(strconv.FormatInt(event.SupplierID, 10))
	if !ok {
		return
	}

	for _, socketId := range sockets {
		if conn, ok := b.GetConnection(socketId); ok {
			if err := conn.WriteJSON(m); err != nil {
				log.Println(err)
			}
		}
	}
}
