// Package messaging pushes live activity snapshots to connected operator
// dashboards over websockets.
package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
)

// ActivityClient represents a single connected dashboard client.
type ActivityClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// ActivitySnapshot is the payload sent to every dashboard on each tick.
type ActivitySnapshot struct {
	Visitors       int       `json:"visitors"`
	EventsLogged   int       `json:"eventsLogged"`
	UnlockedCount  int       `json:"unlockedCount"`
	RecentVisitors []recent  `json:"recentVisitors"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

type recent struct {
	ID       string    `json:"id"`
	Visits   int       `json:"visits"`
	LastSeen time.Time `json:"lastSeen"`
}

// ActivityBroadcaster manages connected dashboard clients and periodically
// broadcasts an activity snapshot built from the persistence layer.
type ActivityBroadcaster struct {
	clients      map[*ActivityClient]bool
	register     chan *ActivityClient
	unregister   chan *ActivityClient
	fingerprints visitor.FingerprintRepository
	events       visitor.EventLogRepository
	progress     visitor.ProgressRepository
	logger       *logging.ChanneledLogger
	tick         time.Duration
	maxClients   int
	mu           sync.RWMutex
}

// NewActivityBroadcaster creates a new broadcaster instance.
func NewActivityBroadcaster(
	fingerprints visitor.FingerprintRepository,
	events visitor.EventLogRepository,
	progress visitor.ProgressRepository,
	logger *logging.ChanneledLogger,
	tick time.Duration,
	maxClients int,
) *ActivityBroadcaster {
	return &ActivityBroadcaster{
		clients:      make(map[*ActivityClient]bool),
		register:     make(chan *ActivityClient),
		unregister:   make(chan *ActivityClient),
		fingerprints: fingerprints,
		events:       events,
		progress:     progress,
		logger:       logger,
		tick:         tick,
		maxClients:   maxClients,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *ActivityBroadcaster) Run() {
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()

	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			if len(b.clients) >= b.maxClients {
				b.mu.Unlock()
				b.logger.Activity().Warn("Dashboard client rejected: limit reached", "limit", b.maxClients)
				close(client.Send)
				client.Conn.Close()
				continue
			}
			b.clients[client] = true
			b.mu.Unlock()
			b.logger.Activity().Info("Dashboard client registered", "clients", b.ClientCount())

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			b.logger.Activity().Info("Dashboard client unregistered", "clients", b.ClientCount())

		case <-ticker.C:
			b.broadcastSnapshot()
		}
	}
}

// Register queues a client for registration.
func (b *ActivityBroadcaster) Register(client *ActivityClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *ActivityBroadcaster) Unregister(client *ActivityClient) {
	b.unregister <- client
}

// ClientCount reports the number of connected dashboard clients.
func (b *ActivityBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *ActivityBroadcaster) broadcastSnapshot() {
	if b.ClientCount() == 0 {
		return
	}

	snapshot, err := b.buildSnapshot()
	if err != nil {
		b.logger.Activity().Error("Snapshot build failed", "error", err.Error())
		return
	}

	message, err := json.Marshal(snapshot)
	if err != nil {
		b.logger.Activity().Error("Snapshot marshal failed", "error", err.Error())
		return
	}

	b.mu.RLock()
	for client := range b.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
	b.mu.RUnlock()
}

func (b *ActivityBroadcaster) buildSnapshot() (*ActivitySnapshot, error) {
	visitors, err := b.fingerprints.Count()
	if err != nil {
		return nil, err
	}
	eventCount, err := b.events.Count()
	if err != nil {
		return nil, err
	}
	unlocked, err := b.progress.CountUnlocked()
	if err != nil {
		return nil, err
	}

	recentRows, err := b.fingerprints.ListRecent(10)
	if err != nil {
		return nil, err
	}
	recents := make([]recent, 0, len(recentRows))
	for _, fp := range recentRows {
		recents = append(recents, recent{ID: fp.ID, Visits: fp.Visits, LastSeen: fp.LastSeen})
	}

	return &ActivitySnapshot{
		Visitors:       visitors,
		EventsLogged:   eventCount,
		UnlockedCount:  unlocked,
		RecentVisitors: recents,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// WritePump drains a client's send channel onto its websocket connection.
// It exits when the channel closes or a write fails.
func (b *ActivityBroadcaster) WritePump(client *ActivityClient) {
	defer client.Conn.Close()
	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump consumes (and discards) inbound frames so pings are answered and
// disconnects are noticed promptly.
func (b *ActivityBroadcaster) ReadPump(client *ActivityClient) {
	defer b.Unregister(client)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
