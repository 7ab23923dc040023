package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"loan-predictor/internal/ml"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	clientSendBuffer = 16
	broadcastBuffer  = 100
	writeWait        = 5 * time.Second
	maxReadSize      = 512
)

// DecisionEvent is what the live feed publishes for each scored request.
// It carries no applicant attributes.
type DecisionEvent struct {
	RequestID     string      `json:"request_id"`
	Decision      ml.Decision `json:"decision"`
	LRProbability float64     `json:"lr_probability"`
	DTProbability float64     `json:"dt_probability"`
	CombinedScore *float64    `json:"combined_score,omitempty"`
	Policy        ml.Policy   `json:"policy"`
	Timestamp     time.Time   `json:"timestamp"`
}

// NewDecisionEvent builds the feed event for a prediction.
func NewDecisionEvent(requestID string, res ml.PredictionResult, at time.Time) DecisionEvent {
	return DecisionEvent{
		RequestID:     requestID,
		Decision:      res.Decision,
		LRProbability: res.LRProbability,
		DTProbability: res.DTProbability,
		CombinedScore: res.CombinedScore,
		Policy:        res.Policy,
		Timestamp:     at,
	}
}

// FeedMetrics receives the connected client count.
type FeedMetrics interface {
	FeedClientsSet(n int)
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans decision events out to websocket clients. Publishing never blocks
// scoring: events are dropped when the hub is backed up, and a client whose
// buffer is full is disconnected.
type Hub struct {
	upgrader         websocket.Upgrader
	clients          map[*feedClient]bool
	clientsMu        sync.Mutex
	broadcastChannel chan DecisionEvent
	stopChannel      chan struct{}
	stopOnce         sync.Once
	metrics          FeedMetrics
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics FeedMetrics) *Hub {
	return &Hub{
		upgrader:         websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:          make(map[*feedClient]bool),
		broadcastChannel: make(chan DecisionEvent, broadcastBuffer),
		stopChannel:      make(chan struct{}),
		metrics:          metrics,
	}
}

// Run delivers published events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.broadcastChannel:
			h.broadcastToClients(ev)
		case <-h.stopChannel:
			return
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChannel)

		h.clientsMu.Lock()
		for c := range h.clients {
			h.dropLocked(c)
		}
		h.clientsMu.Unlock()
		h.reportClients()
	})
}

// Publish queues ev for delivery. It reports false when the event was
// dropped because the hub is stopped or backed up.
func (h *Hub) Publish(ev DecisionEvent) bool {
	select {
	case <-h.stopChannel:
		return false
	default:
	}

	select {
	case h.broadcastChannel <- ev:
		return true
	default:
		log.Warn().Str("request_id", ev.RequestID).Msg("Decision feed backed up, dropping event")
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcastToClients(ev DecisionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal decision event")
		return
	}

	dropped := false
	h.clientsMu.Lock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("request_id", ev.RequestID).Msg("Decision feed client too slow, disconnecting")
			h.dropLocked(c)
			dropped = true
		}
	}
	h.clientsMu.Unlock()

	if dropped {
		h.reportClients()
	}
}

// ServeHTTP upgrades the request and registers the connection as a client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.stopChannel:
		http.Error(w, "decision feed stopped", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, clientSendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}

	go h.writePump(c)

	// Clients only listen; reading detects the close.
	conn.SetReadLimit(maxReadSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.clientsMu.Lock()
	removed := h.dropLocked(c)
	h.clientsMu.Unlock()
	if removed {
		h.reportClients()
	}
}

func (h *Hub) writePump(c *feedClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug().Err(err).Msg("Failed to send message to WebSocket client")
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// register adds c unless Stop has already run.
func (h *Hub) register(c *feedClient) bool {
	h.clientsMu.Lock()
	select {
	case <-h.stopChannel:
		h.clientsMu.Unlock()
		return false
	default:
	}
	h.clients[c] = true
	h.clientsMu.Unlock()
	h.reportClients()
	return true
}

// dropLocked unregisters c and ends its write pump. The caller holds clientsMu.
func (h *Hub) dropLocked(c *feedClient) bool {
	if !h.clients[c] {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	return true
}

func (h *Hub) reportClients() {
	if h.metrics != nil {
		h.metrics.FeedClientsSet(h.ClientCount())
	}
}
