package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/telecare/telehealth_api/logger"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// Envelope is one event addressed to a set of users.
type Envelope struct {
	Recipients []uuid.UUID
	Event      string
	Data       json.RawMessage
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var clients = make(map[uuid.UUID]*websocket.Conn)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Broadcast = make(chan *Envelope, 256)

var ErrHubBusy = errors.New("realtime hub queue is full")

func RunHub() {
	for {
		select {
		case client := <-Register:
			logger.Log.Debug().Str("user_id", client.UserID.String()).Msg("Client registered")
			clientsMu.Lock()
			if old, ok := clients[client.UserID]; ok && old != client.Conn {
				old.Close()
			}
			clients[client.UserID] = client.Conn
			clientsMu.Unlock()
		case client := <-Unregister:
			logger.Log.Debug().Str("user_id", client.UserID.String()).Msg("Client unregistered")
			clientsMu.Lock()
			if conn, ok := clients[client.UserID]; ok && conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case env := <-Broadcast:
			deliver(env)
		}
	}
}

func deliver(env *Envelope) {
	msg := frame{Type: env.Event, Data: env.Data}

	var dead []uuid.UUID
	clientsMu.RLock()
	for _, id := range env.Recipients {
		conn, ok := clients[id]
		if !ok {
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			logger.Log.Warn().Err(err).Str("user_id", id.String()).Msg("⚠️ Error sending event to client")
			conn.Close()
			dead = append(dead, id)
		}
	}
	clientsMu.RUnlock()

	if len(dead) > 0 {
		clientsMu.Lock()
		for _, id := range dead {
			delete(clients, id)
		}
		clientsMu.Unlock()
	}
}

// IsOnline reports whether userID has a live socket.
func IsOnline(userID uuid.UUID) bool {
	clientsMu.RLock()
	defer clientsMu.RUnlock()
	_, ok := clients[userID]
	return ok
}

// Emitter queues events on the hub without blocking the caller.
type Emitter struct{}

func (Emitter) Emit(userID uuid.UUID, event string, payload []byte) error {
	select {
	case Broadcast <- &Envelope{Recipients: []uuid.UUID{userID}, Event: event, Data: payload}:
		return nil
	default:
		return ErrHubBusy
	}
}

// Reply queues a frame for userID through the hub, which owns every socket write once a
// client is registered.
func Reply(userID uuid.UUID, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Error().Err(err).Str("event", event).Msg("🔥 Failed to encode socket reply")
		return
	}
	Broadcast <- &Envelope{Recipients: []uuid.UUID{userID}, Event: event, Data: data}
}
