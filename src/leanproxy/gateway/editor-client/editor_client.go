// Package editorclient manages the WebSocket connections of browser editors.
// All traffic to and from an editor flows through a Client registered here.
package editorclient

import (
	"context"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Client is a single connected editor. Receive and Send may be used from
// different goroutines; Send is additionally safe for concurrent use.
type Client interface {
	// Receive blocks until the next text message arrives from the editor.
	// A closed connection surfaces as wsutil.ClosedError or an io error.
	Receive() ([]byte, error)
	// Send writes a text message to the editor.
	Send(data []byte) error
	// Close performs a normal closure of the connection.
	Close() error
	// CloseWithReason closes the connection with the given status code and
	// reason so the editor can tell an orderly shutdown from a failure.
	CloseWithReason(code ws.StatusCode, reason string) error
}

// Gateway tracks the connected editor clients by session UUID.
type Gateway interface {
	// Register wraps an upgraded WebSocket connection into a Client.
	Register(ctx context.Context, id uuid.UUID, conn net.Conn) (Client, error)
	// Deregister closes and forgets the client for the given session UUID.
	Deregister(ctx context.Context, id uuid.UUID) error
}

// Params define values to be used by the gateway.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type gateway struct {
	clients   map[uuid.UUID]Client
	clientsMu sync.Mutex
	logger    *zap.SugaredLogger
	stats     tally.Scope
}

// New returns a Gateway for editor WebSocket connections.
func New(p Params) Gateway {
	return &gateway{
		clients: make(map[uuid.UUID]Client),
		logger:  p.Logger,
		stats:   p.Stats.SubScope("editor_client"),
	}
}

func (g *gateway) Register(ctx context.Context, id uuid.UUID, conn net.Conn) (Client, error) {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	c := &client{conn: conn}
	g.clients[id] = c
	g.stats.Gauge("connected_clients").Update(float64(len(g.clients)))
	g.logger.Infow("editor connected", "uuid", id, "remote", conn.RemoteAddr())
	return c, nil
}

func (g *gateway) Deregister(ctx context.Context, id uuid.UUID) error {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	c, ok := g.clients[id]
	if !ok {
		return nil
	}
	delete(g.clients, id)
	g.stats.Gauge("connected_clients").Update(float64(len(g.clients)))
	g.logger.Infow("editor disconnected", "uuid", id)
	return c.Close()
}

type client struct {
	conn      net.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *client) Receive() ([]byte, error) {
	for {
		data, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			return nil, err
		}
		if op != ws.OpText {
			continue
		}
		return data, nil
	}
}

func (c *client) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return wsutil.WriteServerText(c.conn, data)
}

func (c *client) Close() error {
	return c.CloseWithReason(ws.StatusNormalClosure, "")
}

func (c *client) CloseWithReason(code ws.StatusCode, reason string) error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		frame := ws.NewCloseFrame(ws.NewCloseFrameBody(code, reason))
		writeErr := ws.WriteFrame(c.conn, frame)
		c.writeMu.Unlock()

		closeErr := c.conn.Close()
		if writeErr != nil {
			c.closeErr = writeErr
			return
		}
		c.closeErr = closeErr
	})
	return c.closeErr
}
