// Package events pushes library import progress to browsers over WebSocket.
package events

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/auth"
	"photonix/photo-portal/internal/library"
)

const (
	TypeImportStarted  = "import_started"
	TypeImportFinished = "import_finished"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Event is one message sent to the clients watching a library
type Event struct {
	Type      string    `json:"type"`
	LibraryID string    `json:"library_id"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

var _ library.Listener = (*Hub)(nil)

// Libraries lists the libraries a user may watch
type Libraries interface {
	Libraries(ctx context.Context, userID string) ([]library.Library, error)
}

type client struct {
	id        string
	userID    string
	libraryID string
	conn      *websocket.Conn
	send      chan Event
}

// Hub fans import events out to the connected clients of each library
type Hub struct {
	libraries Libraries
	logger    *zap.Logger
	upgrader  websocket.Upgrader

	// clients is owned by run
	clients    map[*client]bool
	count      atomic.Int64
	publish    chan Event
	register   chan *client
	unregister chan *client
	stop       chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
}

// NewHub creates a hub and starts its dispatch loop
func NewHub(libraries Libraries, logger *zap.Logger) *Hub {
	h := &Hub{
		libraries: libraries,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:    make(map[*client]bool),
		publish:    make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	go h.run()
	return h
}

// ImportStarted implements library.Listener
func (h *Hub) ImportStarted(libraryID string) {
	h.Publish(Event{Type: TypeImportStarted, LibraryID: libraryID})
}

// ImportFinished implements library.Listener
func (h *Hub) ImportFinished(libraryID string, sum library.Summary) {
	h.Publish(Event{
		Type:      TypeImportFinished,
		LibraryID: libraryID,
		Imported:  sum.Imported,
		Skipped:   sum.Skipped,
		Failed:    sum.Failed,
	})
}

// Publish queues e for the clients of its library. Events are dropped when
// the queue is full.
func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now()
	}
	select {
	case h.publish <- e:
	default:
		h.logger.Warn("Event queue full, dropping event", zap.String("type", e.Type), zap.String("library_id", e.LibraryID))
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Stop disconnects every client and ends the dispatch loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Serve handles GET /events?library=<id>, upgrading to a WebSocket that
// receives the events of that library
func (h *Hub) Serve(c *gin.Context) {
	var userID string
	if s := auth.SessionFrom(c); s != nil {
		userID = s.UserID
	}
	libraryID := c.Query("library")

	allowed, err := h.allowed(c.Request.Context(), userID, libraryID)
	if err != nil {
		h.logger.Error("Failed to check library access", zap.String("user_id", userID), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	if !allowed {
		c.Status(http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.Debug("Failed to upgrade connection", zap.Error(err))
		return
	}

	cl := &client{
		id:        uuid.NewString(),
		userID:    userID,
		libraryID: libraryID,
		conn:      conn,
		send:      make(chan Event, 16),
	}
	select {
	case h.register <- cl:
	case <-h.stop:
		conn.Close()
		return
	}

	go h.writePump(cl)
	go h.readPump(cl)
}

func (h *Hub) allowed(ctx context.Context, userID, libraryID string) (bool, error) {
	if userID == "" || libraryID == "" {
		return false, nil
	}
	libs, err := h.libraries.Libraries(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, l := range libs {
		if l.ID == libraryID {
			return true, nil
		}
	}
	return false, nil
}

func (h *Hub) run() {
	for {
		select {
		case cl := <-h.register:
			h.clients[cl] = true
			h.count.Add(1)
			h.logger.Debug("Client connected", zap.String("client_id", cl.id), zap.String("user_id", cl.userID))

		case cl := <-h.unregister:
			h.drop(cl)

		case e := <-h.publish:
			for cl := range h.clients {
				if cl.libraryID != e.LibraryID {
					continue
				}
				select {
				case cl.send <- e:
				default:
					h.drop(cl)
				}
			}

		case <-h.stop:
			for cl := range h.clients {
				h.drop(cl)
			}
			return
		}
	}
}

func (h *Hub) drop(cl *client) {
	if !h.clients[cl] {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
	h.count.Add(-1)
	h.logger.Debug("Client disconnected", zap.String("client_id", cl.id))
}

// readPump only watches for the client going away
func (h *Hub) readPump(cl *client) {
	defer func() {
		select {
		case h.unregister <- cl:
		case <-h.stop:
		}
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("Unexpected close", zap.String("client_id", cl.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case e, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
