// Package notify implements the liveness notification channel: a websocket
// listener that greets every new client with a single serverOnline event and
// sends nothing afterwards.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soypete/userapi/pkg/metrics"
)

// EventServerOnline is the only event the channel ever sends.
const EventServerOnline = "serverOnline"

// Event is the JSON payload of a notification frame.
type Event struct {
	Event string `json:"event"`
}

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Any client may listen for liveness
	},
}

// Server is the notification channel listener.
type Server struct {
	httpServer  *http.Server
	connections map[string]*websocket.Conn
	connMutex   sync.Mutex
}

// NewServer creates a notification server listening on addr.
func NewServer(addr string) *Server {
	s := &Server{
		connections: make(map[string]*websocket.Conn),
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: http.HandlerFunc(s.handleWebSocket),
	}
	return s
}

// Handler returns the websocket upgrade handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve accepts websocket clients on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	log.Printf("Starting notification channel on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and closes every open client connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.connMutex.Lock()
	for id, conn := range s.connections {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait),
		)
		conn.Close()
		delete(s.connections, id)
	}
	s.connMutex.Unlock()

	return err
}

// ConnectionCount returns the number of open client connections.
func (s *Server) ConnectionCount() int {
	s.connMutex.Lock()
	defer s.connMutex.Unlock()
	return len(s.connections)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.New().String()
	metrics.NotifyConnectionsTotal.Inc()

	// Register connection
	s.connMutex.Lock()
	s.connections[id] = conn
	s.connMutex.Unlock()

	defer func() {
		s.connMutex.Lock()
		delete(s.connections, id)
		s.connMutex.Unlock()
	}()

	if err := sendEvent(conn, EventServerOnline); err != nil {
		log.Printf("WebSocket client %s: failed to send %s: %v", id, EventServerOnline, err)
		return
	}

	// Nothing else is ever sent. Reading keeps ping and close frames flowing
	// until the client goes away.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// sendEvent writes one text frame holding the event as JSON.
func sendEvent(conn *websocket.Conn, event string) error {
	payload, err := json.Marshal(Event{Event: event})
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
