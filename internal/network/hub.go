package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/metrics"
)

// HubOptions sizes the hub's buffers and client limits.
type HubOptions struct {
	BroadcastBuffer  int
	ClientSendBuffer int
	// ActionInterval is the minimum gap between two actions from one client.
	ActionInterval time.Duration
	PollInterval   time.Duration
}

func (o HubOptions) withDefaults() HubOptions {
	if o.BroadcastBuffer <= 0 {
		o.BroadcastBuffer = 256
	}
	if o.ClientSendBuffer <= 0 {
		o.ClientSendBuffer = 64
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	return o
}

// directMessage is addressed to a single client.
type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector
	colony     Colony
	opts       HubOptions
}

// NewHub initializes a new WebSocket Hub. Client actions are applied to colony.
func NewHub(colony Colony, log *logger.Logger, m *metrics.Collector, opts HubOptions) *Hub {
	opts = opts.withDefaults()
	if m == nil {
		m = metrics.Get()
	}
	return &Hub{
		broadcast:  make(chan []byte, opts.BroadcastBuffer),
		direct:     make(chan directMessage, opts.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     log,
		metrics:    m,
		colony:     colony,
		opts:       opts,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
// Every client is disconnected when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case dm := <-h.direct:
			h.mu.Lock()
			if h.clients[dm.client] {
				select {
				case dm.client.send <- dm.data:
					h.metrics.RecordWSMessage(false)
				default:
				}
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage(false)
				default:
					// Slow consumer.
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordWSConnection(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastEvent serializes an event and queues it for every connected client.
func (h *Hub) BroadcastEvent(ctx context.Context, event events.GameEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to serialize GameEvent for WebSocket broadcast", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	case <-ctx.Done():
	}
}

// StartEventPoller spawns a goroutine that polls the EventLog and pushes new
// events to the Hub. This keeps the Hub independent from the engine's tick.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	go h.pollEvents(ctx, eventLog)
}

func (h *Hub) pollEvents(ctx context.Context, eventLog *events.EventLog) {
	pollInterval := time.NewTicker(h.opts.PollInterval)
	defer pollInterval.Stop()

	// Only events appended after startup are pushed.
	lastProcessedEvent := eventLog.Len()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollInterval.C:
			newEvents := eventLog.Since(lastProcessedEvent)
			for _, event := range newEvents {
				h.BroadcastEvent(ctx, event)
			}
			lastProcessedEvent += len(newEvents)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboards are served from other origins
	},
}

// ServeWs upgrades the request and starts the client's pumps.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("Failed to upgrade websocket connection", zap.Error(err))
		return
	}

	client := NewClient(h, conn)
	if !client.Register() {
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
