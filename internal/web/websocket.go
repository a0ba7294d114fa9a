// internal/web/websocket.go
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"favgrab/internal/exporter"
	"favgrab/internal/favicon"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The page may be served from another origin
	},
}

// WSMessage is what the server pushes to a client.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ClientMessage is what a client sends: an edit of the input field, a
// lookup submission, an error dismissal or an export request.
type ClientMessage struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Size int    `json:"size,omitempty"`
}

// ExportReady tells the client where its exported file can be fetched.
type ExportReady struct {
	Size        int       `json:"size"`
	FileName    string    `json:"file_name"`
	DownloadURL string    `json:"download_url"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type exportDone struct {
	size      int
	outcome   exporter.Outcome
	started   time.Time
	expiresAt time.Time
}

// WSClient is one page session. Its favicon.State is owned by run; reads,
// writes and exports talk to run over channels.
type WSClient struct {
	conn     *websocket.Conn
	send     chan WSMessage
	incoming chan ClientMessage
	exports  chan exportDone
	server   *Server
	cancel   context.CancelFunc
	state    favicon.State
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade websocket")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &WSClient{
		conn:     conn,
		send:     make(chan WSMessage, 256),
		incoming: make(chan ClientMessage, 16),
		exports:  make(chan exportDone, len(favicon.Sizes)),
		server:   s,
		cancel:   cancel,
	}

	s.register(client)

	go client.run(ctx)
	go client.writePump(ctx)
	go client.readPump(ctx)
}

func (s *Server) register(client *WSClient) {
	s.mu.Lock()
	s.wsClients[client] = true
	s.mu.Unlock()
	s.metrics.RecordWebSocketConnection(1)
}

func (s *Server) unregister(client *WSClient) {
	s.mu.Lock()
	_, ok := s.wsClients[client]
	delete(s.wsClients, client)
	s.mu.Unlock()
	if ok {
		s.metrics.RecordWebSocketConnection(-1)
	}
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wsClients)
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := make([]*WSClient, 0, len(s.wsClients))
	for client := range s.wsClients {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		client.cancel()
	}
}

func (c *WSClient) run(ctx context.Context) {
	defer c.server.unregister(c)

	c.push()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.incoming:
			c.handle(ctx, msg)
		case done := <-c.exports:
			c.finishExport(done)
		}
	}
}

func (c *WSClient) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case "input":
		c.state = c.state.Edit(msg.URL)
	case "submit":
		// A submission carries the whole field; an empty one is missing input.
		c.state = c.state.Edit(msg.URL)
		c.lookup()
	case "dismiss":
		c.state = c.state.Dismiss()
	case "export":
		c.startExport(ctx, msg)
		return
	default:
		logrus.WithField("type", msg.Type).Debug("Ignoring unknown websocket message")
		return
	}
	c.push()
}

func (c *WSClient) lookup() {
	if c.state.Loading {
		return
	}
	c.state = c.state.Submit(c.server.builder.Derive)
	c.server.metrics.RecordLookup(c.state.Err)
}

func (c *WSClient) startExport(ctx context.Context, msg ClientMessage) {
	// Only links of the set currently on screen may be exported. The size is
	// client input, so it is checked before it reaches a metric label.
	if !favicon.IsSupportedSize(msg.Size) || !c.state.Links.Contains(msg.Size, msg.URL) {
		c.state = c.state.Fail(fmt.Errorf("%w: %q is not a current link", favicon.ErrExportFailure, msg.URL))
		c.server.metrics.RecordExport(msg.Size, favicon.ErrExportFailure, 0)
		c.push()
		return
	}

	started := time.Now()
	sink := c.server.pendingSink(msg.Size, c.state.Links.Target)
	out := c.server.exporter.Go(ctx, msg.Size, msg.URL, sink)
	go func() {
		outcome := <-out
		done := exportDone{size: msg.Size, outcome: outcome, started: started, expiresAt: sink.expiresAt}
		select {
		case c.exports <- done:
		case <-ctx.Done():
		}
	}()
}

func (c *WSClient) finishExport(done exportDone) {
	c.server.metrics.RecordExport(done.size, done.outcome.Err, time.Since(done.started))

	if done.outcome.Err != nil {
		logrus.WithError(done.outcome.Err).WithField("size", done.size).Warn("Export failed")
		c.state = c.state.Fail(done.outcome.Err)
		c.push()
		return
	}

	res := done.outcome.Result
	c.enqueue(WSMessage{
		Type: "export",
		Data: ExportReady{
			Size:        res.Size,
			FileName:    res.FileName,
			DownloadURL: res.Location,
			Width:       res.Width,
			Height:      res.Height,
			ExpiresAt:   done.expiresAt,
		},
	})
}

func (c *WSClient) push() {
	c.enqueue(WSMessage{Type: "state", Data: c.state.Snapshot()})
}

func (c *WSClient) enqueue(message WSMessage) {
	select {
	case c.send <- message:
	default:
		// Slow reader; drop the session rather than block the loop.
		c.cancel()
	}
}

func (c *WSClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.cancel()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

func (c *WSClient) readPump(ctx context.Context) {
	defer c.cancel()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logrus.WithError(err).Debug("Ignoring malformed websocket message")
			continue
		}
		select {
		case c.incoming <- msg:
		case <-ctx.Done():
			return
		}
	}
}
