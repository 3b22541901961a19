// Package transport is the WebSocket hub bridging the pipeline's outbound
// events and raw audio bytes, and inbound commands, to connected UI
// clients. Built on coder/websocket, the same client library the teacher
// uses against the Lokutor TTS backend.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/logging"
)

const (
	sendQueueCapacity = 100
	writeTimeout      = 10 * time.Second
)

// Dispatcher handles one inbound command and returns the success/error
// string contract the original command surface expects.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string, args json.RawMessage) (string, error)
}

// inboundMessage is one command frame received from a client.
type inboundMessage struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// outboundResult is the reply frame for one dispatched command.
type outboundResult struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// frame is one queued outbound write: its WebSocket message type plus the
// raw bytes to send, so a single per-client channel can carry both the
// JSON event/command-reply stream and the binary mic byte-stream.
type frame struct {
	kind websocket.MessageType
	data []byte
}

// client is one connected UI session: a send goroutine drains outbound
// frames fed by a buffered channel, drop-on-full, so the hub is never
// blocked by a slow reader.
type client struct {
	conn *websocket.Conn
	send chan frame
	done chan struct{}
}

// Hub fans outbound events and audio bytes to every connected client and
// routes inbound command frames to a Dispatcher. Implements events.Emitter.
type Hub struct {
	mu         sync.Mutex
	clients    map[*client]struct{}
	dispatcher Dispatcher
	logger     logging.Logger
}

// NewHub builds an empty hub. SetDispatcher must be called before clients
// can issue commands; events can be broadcast (and simply reach zero
// clients) before that.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// SetDispatcher installs the command dispatcher. Must be called before
// HandleWS serves any connections that issue commands.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatcher = d
}

// HandleWS upgrades the request to a WebSocket connection and serves it
// until the client disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("websocket accept: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan frame, sendQueueCapacity), done: make(chan struct{})}
	h.register(c)
	defer h.unregister(c)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(c)
	}()

	h.readPump(r.Context(), c)
	conn.Close(websocket.StatusNormalClosure, "")
	wg.Wait()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.done)
	}
}

func (h *Hub) writePump(c *client) {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, f.kind, f.data)
			cancel()
			if err != nil {
				h.logger.Warn("websocket write failed, dropping client: %v", err)
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	for {
		typ, payload, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		h.handleInbound(ctx, c, payload)
	}
}

func (h *Hub) handleInbound(ctx context.Context, c *client, payload []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Warn("malformed command frame: %v", err)
		return
	}

	h.mu.Lock()
	dispatcher := h.dispatcher
	h.mu.Unlock()
	if dispatcher == nil {
		h.replyTo(c, outboundResult{ID: msg.ID, Type: "command-result", Error: "no dispatcher installed"})
		return
	}

	result, err := dispatcher.Dispatch(ctx, msg.Command, msg.Args)
	reply := outboundResult{ID: msg.ID, Type: "command-result", Result: result}
	if err != nil {
		reply.Error = err.Error()
	}
	h.replyTo(c, reply)
}

func (h *Hub) replyTo(c *client, reply outboundResult) {
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	enqueue(h, c, frame{kind: websocket.MessageText, data: data}, "command reply")
}

// Emit implements events.Emitter: marshal and fan out to every client,
// dropping on a full per-client queue rather than blocking the pipeline.
func (h *Hub) Emit(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("marshal event %s: %v", e.Type, err)
		return
	}
	h.broadcast(frame{kind: websocket.MessageText, data: data}, "event")
}

// Broadcast is an explicit alias for Emit, named to match the outbound
// event contract callers outside the events package read naturally.
func (h *Hub) Broadcast(e events.Event) {
	h.Emit(e)
}

// BroadcastAudio fans raw little-endian f32 mic samples out to every
// client as a binary frame, distinct from the JSON event/command channel.
func (h *Hub) BroadcastAudio(pcmLE []byte) {
	h.broadcast(frame{kind: websocket.MessageBinary, data: pcmLE}, "audio frame")
}

func (h *Hub) broadcast(f frame, what string) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		enqueue(h, c, f, what)
	}
}

func enqueue(h *Hub, c *client, f frame, what string) {
	select {
	case c.send <- f:
	default:
		h.logger.Warn("client send queue full, dropping %s", what)
	}
}
