package ws

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/sitepass/card-services/internal/comm"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Ws struct {
	connMap  sync.Map // to keep track of socket connection with socketId
	watchMap sync.Map // to keep track of which supplier a socket watches
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "watch-supplier":
		s.handleWatch(socketId, message)
	case "unwatch-supplier":
		s.watchMap.Delete(socketId)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleWatch(socketId string, msg *comm.WSMessage) {
	var payload comm.WatchSupplier
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: invalid_watch_data Malformed watch payload %s", err)
		return
	}

	if payload.SupplierID <= 0 {
		log.Error("Invalid watch payload: missing supplier id")
		return
	}

	s.watchMap.Store(socketId, strconv.FormatInt(payload.SupplierID, 10))
	log.Infof("socket %s now watching supplier %d", socketId, payload.SupplierID)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

// GetSupplierSockets returns the sockets currently watching a supplier.
func (s *Ws) GetSupplierSockets(supplierId string) ([]string, bool) {
	var sockets []string
	found := false

	s.watchMap.Range(func(key, value interface{}) bool {
		if value.(string) == supplierId {
			sockets = append(sockets, key.(string))
			found = true
		}
		return true // continue iterating
	})

	return sockets, found
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.watchMap.Delete(socketId)
}
