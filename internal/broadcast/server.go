// Package broadcast fans engine snapshots out to WebSocket monitor
// clients and hosts the control surface: a retrain endpoint and the
// Prometheus scrape handler. Nothing here may block the engine — slow
// clients lose frames, never the writer's time.
package broadcast

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shadow30812/sentinel/internal/model"
	"github.com/shadow30812/sentinel/internal/state"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local monitoring UI, any origin
	},
}

// Broadcaster serves /ws (snapshot stream), /retrain (control), and
// /metrics (Prometheus).
type Broadcaster struct {
	input    <-chan model.Snapshot
	history  *state.RingBuffer
	retrain  func(seconds int)
	gatherer prometheus.Gatherer
	log      *slog.Logger
}

// New returns a Broadcaster reading snapshots from input. history
// hydrates new clients; retrain is invoked by POST /retrain.
func New(
	input <-chan model.Snapshot,
	history *state.RingBuffer,
	retrain func(seconds int),
	gatherer prometheus.Gatherer,
	log *slog.Logger,
) *Broadcaster {
	return &Broadcaster{
		input:    input,
		history:  history,
		retrain:  retrain,
		gatherer: gatherer,
		log:      log,
	}
}

// Start runs the hub and the HTTP server. It blocks; run it on its own
// goroutine.
func (b *Broadcaster) Start(addr string) error {
	hub := newHub(b.history, b.log)
	go hub.run(b.input)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r, b.log)
	})
	mux.HandleFunc("/retrain", b.handleRetrain)
	if b.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(b.gatherer, promhttp.HandlerOpts{}))
	}

	b.log.Info("broadcaster listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// handleRetrain enqueues a retrain command for the engine. The engine
// applies it between ticks; this handler never touches engine state.
func (b *Broadcaster) handleRetrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if b.retrain == nil {
		http.Error(w, "retraining unavailable", http.StatusServiceUnavailable)
		return
	}

	seconds := 0
	if v := r.URL.Query().Get("seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid seconds", http.StatusBadRequest)
			return
		}
		seconds = n
	}

	b.retrain(seconds)
	b.log.Info("retrain requested via control endpoint", "seconds", seconds)
	w.WriteHeader(http.StatusAccepted)
}

// Hub maintains active clients and fans out MsgPack frames.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	history    *state.RingBuffer
	log        *slog.Logger
}

func newHub(history *state.RingBuffer, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		history:    history,
		log:        log,
	}
}

func (h *Hub) run(input <-chan model.Snapshot) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.log.Info("monitor client connected", "total", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Info("monitor client disconnected", "total", len(h.clients))
			}
		case snap := <-input:
			// Serialize once per snapshot, share the frame.
			msg := snap.AppendMsgPack(make([]byte, 0, 256))
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop this frame for it. Dead
					// clients are reaped via readPump.
				}
			}
		}
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// serveWs upgrades the connection, replays the buffered history
// (count header, then one frame per snapshot, so the client can show
// progress without decoding one giant message), and registers the
// client for live frames.
func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{hub: hub, conn: conn, send: make(chan []byte, 512)}

	if hub.history != nil {
		snapshots := hub.history.All()
		if len(snapshots) > 0 {
			// Count header: MsgPack uint32.
			n := uint32(len(snapshots))
			header := []byte{0xce, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
			if err := conn.WriteMessage(websocket.BinaryMessage, header); err != nil {
				conn.Close()
				return
			}
			for i := range snapshots {
				msg := snapshots[i].AppendMsgPack(make([]byte, 0, 256))
				if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
					conn.Close()
					return
				}
			}
		}
	}

	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
