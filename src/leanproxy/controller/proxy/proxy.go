// Package proxy owns the session lifecycle and the bidirectional relay
// between editor WebSocket connections and language-server subprocesses.
package proxy

import (
	"context"
	"sync"

	"github.com/gobwas/ws"
	"github.com/uber-go/tally"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	docsync "github.com/leancollab/lean-lsp-proxy/src/leanproxy/controller/doc-sync"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/entity"
	editorclient "github.com/leancollab/lean-lsp-proxy/src/leanproxy/gateway/editor-client"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/framing"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/fs"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/langserver"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/mapper"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/repository/session"
)

const _closeReasonServerExited = "language server exited"

// Controller manages sessions and relays their traffic.
type Controller interface {
	// GetOrCreate returns the session for id, spawning a language server if
	// none is running. A session whose server has died is replaced.
	GetOrCreate(ctx context.Context, id string) (*entity.Session, error)

	// Release terminates the session's language server and forgets it.
	Release(ctx context.Context, id string) error

	// ReleaseAll releases every known session. Used during shutdown.
	ReleaseAll(ctx context.Context) error

	// Relay pumps messages between the editor and the session's language
	// server until one side goes away, then tears the session down.
	Relay(ctx context.Context, sess *entity.Session, client editorclient.Client) error
}

// Params define values to be used by the controller.
type Params struct {
	fx.In

	Sessions   session.Repository
	Supervisor langserver.Supervisor
	DocSync    docsync.Controller
	FS         fs.ProxyFS
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

type controller struct {
	sessions   session.Repository
	supervisor langserver.Supervisor
	docSync    docsync.Controller
	fs         fs.ProxyFS
	logger     *zap.SugaredLogger
	stats      tally.Scope

	mu sync.Mutex
}

// New creates a new proxy controller.
func New(p Params) Controller {
	return &controller{
		sessions:   p.Sessions,
		supervisor: p.Supervisor,
		docSync:    p.DocSync,
		fs:         p.FS,
		logger:     p.Logger.With("component", "proxy"),
		stats:      p.Stats.SubScope("proxy"),
	}
}

func (c *controller) GetOrCreate(ctx context.Context, id string) (*entity.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess, err := c.sessions.Get(ctx, id); err == nil {
		if sess.Alive() {
			c.stats.Counter("sessions_reused").Inc(1)
			c.logger.Infow("reusing running language server", "session", id, "pid", sess.Proc.Pid())
			return sess, nil
		}

		c.logger.Infow("language server died, respawning", "session", id, "exitErr", sess.Proc.ExitErr())
		sess.Proc.Terminate(ctx)
		c.sessions.Delete(ctx, id)
	}

	workspaceRoot := c.docSync.RootURI().Filename()
	if err := c.fs.MkdirAll(workspaceRoot); err != nil {
		return nil, err
	}

	proc, err := c.supervisor.Spawn(ctx, workspaceRoot, id)
	if err != nil {
		return nil, err
	}

	sess := mapper.NewSession(id, proc, workspaceRoot)
	if err := c.sessions.Set(ctx, sess); err != nil {
		proc.Terminate(ctx)
		return nil, err
	}

	c.stats.Counter("sessions_created").Inc(1)
	return sess, nil
}

func (c *controller) Release(ctx context.Context, id string) error {
	sess, err := c.sessions.Get(ctx, id)
	if err != nil {
		return nil
	}

	var result error
	if sess.Proc != nil {
		result = multierr.Append(result, sess.Proc.Terminate(ctx))
	}
	result = multierr.Append(result, c.sessions.Delete(ctx, id))
	c.logger.Infow("released session", "session", id)
	return result
}

func (c *controller) ReleaseAll(ctx context.Context) error {
	all, err := c.sessions.All(ctx)
	if err != nil {
		return err
	}

	var result error
	for _, sess := range all {
		result = multierr.Append(result, c.Release(ctx, sess.ID))
	}
	return result
}

// relayEvent reports which side of the relay stopped first.
type relayEvent struct {
	editorSide bool
	err        error
}

func (c *controller) Relay(ctx context.Context, sess *entity.Session, client editorclient.Client) error {
	logger := c.logger.With("session", sess.ID)

	events := make(chan relayEvent, 2)
	go func() {
		events <- c.relayInbound(ctx, sess, client)
	}()
	go func() {
		events <- c.relayOutbound(sess, client)
	}()

	first := <-events

	if first.editorSide {
		// The editor went away. Releasing the session closes the subprocess
		// streams, which unblocks the outbound direction.
		releaseErr := c.Release(ctx, sess.ID)
		client.Close()
		<-events

		logger.Infow("editor detached", "reason", first.err)
		return releaseErr
	}

	// The language server side failed: the process exited, its output could
	// no longer be framed, or its stdin went away. The session is unusable.
	c.stats.Counter("relay_failures").Inc(1)
	client.CloseWithReason(ws.StatusInternalServerError, _closeReasonServerExited)
	releaseErr := c.Release(ctx, sess.ID)
	<-events

	logger.Warnw("relay ended on language server failure", "error", first.err)
	return multierr.Append(first.err, releaseErr)
}

// relayInbound forwards editor messages to the language server, mirroring
// document content to disk along the way.
func (c *controller) relayInbound(ctx context.Context, sess *entity.Session, client editorclient.Client) relayEvent {
	logger := c.logger.With("session", sess.ID)

	for {
		data, err := client.Receive()
		if err != nil {
			return relayEvent{editorSide: true, err: err}
		}

		c.intercept(ctx, sess, logger, data)

		if err := framing.Write(sess.Proc.Stdin(), data); err != nil {
			return relayEvent{editorSide: false, err: err}
		}
		c.stats.Counter("frames_to_server").Inc(1)
	}
}

// intercept mirrors didOpen and didChange payloads to disk. Sync failures are
// logged and swallowed; the language server's own copy of the document is
// still updated by the forwarded message.
func (c *controller) intercept(ctx context.Context, sess *entity.Session, logger *zap.SugaredLogger, data []byte) {
	msg, err := framing.Parse(data)
	if err != nil {
		c.stats.Counter("unparsed_inbound").Inc(1)
		logger.Warnw("forwarding unparsable editor message", "error", err)
		return
	}
	if msg.Kind() != framing.KindNotification {
		return
	}

	switch msg.Method {
	case protocol.MethodTextDocumentDidOpen:
		sess.DocVersion.Inc()
		if err := c.docSync.DidOpen(ctx, msg.Params); err != nil {
			logger.Warnw("document sync failed on didOpen", "error", err)
		}
	case protocol.MethodTextDocumentDidChange:
		sess.DocVersion.Inc()
		if err := c.docSync.DidChange(ctx, msg.Params); err != nil {
			logger.Warnw("document sync failed on didChange", "error", err)
		}
	}
}

// relayOutbound forwards language-server frames to the editor.
func (c *controller) relayOutbound(sess *entity.Session, client editorclient.Client) relayEvent {
	frames := sess.Proc.Frames()
	for {
		body, err := frames.ReadFrame()
		if err != nil {
			return relayEvent{editorSide: false, err: err}
		}

		if err := client.Send(body); err != nil {
			return relayEvent{editorSide: true, err: err}
		}
		c.stats.Counter("frames_to_editor").Inc(1)
	}
}
