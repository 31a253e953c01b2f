package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 16
)

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// RunStream pushes finished run reports to websocket subscribers.
// Slow subscribers are dropped rather than blocking a run.
type RunStream struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

// NewRunStream creates a new run stream. allowedOrigins of ["*"] accepts any origin.
func NewRunStream(allowedOrigins []string, log *logger.Logger) *RunStream {
	s := &RunStream{
		logger:      log.WithComponent("run_stream"),
		subscribers: make(map[*subscriber]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return s
}

// Publish implements contracts.ReportPublisher
func (s *RunStream) Publish(report *contracts.RunReport) {
	data, err := json.Marshal(report)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal run report")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subscribers {
		select {
		case sub.send <- data:
		default:
			s.logger.Warn("Dropping slow run stream subscriber")
			s.removeLocked(sub)
		}
	}
}

// Subscribers returns the number of connected clients
func (s *RunStream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// ServeHTTP upgrades the request and streams reports until the client leaves
// GET /ws/runs
func (s *RunStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	go s.writeLoop(sub)
	s.readLoop(sub)
}

// Close disconnects every subscriber
func (s *RunStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers {
		s.removeLocked(sub)
	}
}

func (s *RunStream) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(sub)
}

func (s *RunStream) removeLocked(sub *subscriber) {
	if _, ok := s.subscribers[sub]; !ok {
		return
	}
	delete(s.subscribers, sub)
	close(sub.send)
}

// readLoop only consumes control frames; clients never send data
func (s *RunStream) readLoop(sub *subscriber) {
	defer func() {
		s.remove(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *RunStream) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
