package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Publisher is the broadcast gateway the engine pushes through after any
// mutating action so observers receive updated state.
type Publisher interface {
	Publish(gameID, event string, payload any)
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub fans broadcast messages out to websocket subscribers, one topic per
// game.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[string]map[*subscriber]bool
}

// NewHub creates a hub with no subscribers.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger: logger.WithPrefix("hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins.
				return true
			},
		},
		subs: make(map[string]map[*subscriber]bool),
	}
}

// Publish implements Publisher: sends the event to every subscriber of the
// game. Slow subscribers are dropped rather than blocking the engine.
func (h *Hub) Publish(gameID, event string, payload any) {
	msg := &Message{
		Type:      event,
		GameID:    gameID,
		Data:      payload,
		Timestamp: time.Now(),
	}

	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs[gameID]))
	for sub := range h.subs[gameID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("Dropping slow subscriber", "game", gameID)
			h.remove(gameID, sub)
			sub.close()
		}
	}
}

// Subscribe upgrades the request to a websocket and streams the game's
// events until the client disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan *Message, 64),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[*subscriber]bool)
	}
	h.subs[gameID][sub] = true
	h.mu.Unlock()

	h.logger.Debug("Subscriber connected", "game", gameID, "remote", conn.RemoteAddr())

	go sub.writePump()
	sub.readPump()

	h.remove(gameID, sub)
	sub.close()
	h.logger.Debug("Subscriber disconnected", "game", gameID)
}

// SubscriberCount returns the number of live subscribers for a game.
func (h *Hub) SubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[gameID])
}

func (h *Hub) remove(gameID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[gameID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, gameID)
		}
	}
}

// subscriber is one websocket connection with its outbound queue. The send
// channel is never closed; writePump exits via done, so a concurrent
// Publish can never hit a closed channel.
type subscriber struct {
	conn      *websocket.Conn
	send      chan *Message
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// readPump discards inbound frames; clients act through the HTTP API. It
// exists to process control frames and detect disconnects.
func (s *subscriber) readPump() {
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}
