package services

import (
	"sync"
	"time"

	"lockproxy/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
	feedBufferSize = 64
)

var _ ReviewNotifier = (*ReviewFeed)(nil)

// feedClient one websocket subscriber
type feedClient struct {
	id       string
	operator string
	conn     *websocket.Conn
	send     chan ReviewEvent
}

// ReviewFeed pushes committed release request transitions to connected censors
type ReviewFeed struct {
	mu      sync.RWMutex
	clients map[string]*feedClient
	logger  *logrus.Logger
}

func NewReviewFeed(logger *logrus.Logger) *ReviewFeed {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReviewFeed{
		clients: make(map[string]*feedClient),
		logger:  logger,
	}
}

// NotifyReleaseRequest never blocks; a slow client drops events
func (f *ReviewFeed) NotifyReleaseRequest(event ReviewEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, client := range f.clients {
		select {
		case client.send <- event:
		default:
			f.logger.WithField("client_id", client.id).Warn("⚠️ Review feed client too slow, event dropped")
		}
	}
}

// Clients number of connected subscribers
func (f *ReviewFeed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Serve runs the connection until the peer goes away; it closes conn
func (f *ReviewFeed) Serve(conn *websocket.Conn, operator string) {
	client := &feedClient{
		id:       uuid.NewString(),
		operator: operator,
		conn:     conn,
		send:     make(chan ReviewEvent, feedBufferSize),
	}
	f.register(client)
	defer f.unregister(client)

	done := make(chan struct{})
	go f.readPump(client, done)
	f.writePump(client, done)
}

func (f *ReviewFeed) register(client *feedClient) {
	f.mu.Lock()
	f.clients[client.id] = client
	f.mu.Unlock()
	metrics.ReviewFeedClients.Inc()
	f.logger.WithFields(logrus.Fields{"client_id": client.id, "operator": client.operator}).Info("📡 Review feed client connected")
}

func (f *ReviewFeed) unregister(client *feedClient) {
	f.mu.Lock()
	delete(f.clients, client.id)
	f.mu.Unlock()
	metrics.ReviewFeedClients.Dec()
	client.conn.Close()
	f.logger.WithField("client_id", client.id).Info("📴 Review feed client disconnected")
}

// readPump only handles control frames; clients do not send commands
func (f *ReviewFeed) readPump(client *feedClient, done chan struct{}) {
	defer close(done)
	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *ReviewFeed) writePump(client *feedClient, done chan struct{}) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := client.conn.WriteJSON(event); err != nil {
				f.logger.WithError(err).WithField("client_id", client.id).Debug("review feed write failed")
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
