// Package lspproxy serves the HTTP surface of the proxy: the static editor
// assets, the document URI endpoint, and the per-session LSP WebSocket.
package lspproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	docsync "github.com/leancollab/lean-lsp-proxy/src/leanproxy/controller/doc-sync"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/controller/proxy"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/entity"
	editorclient "github.com/leancollab/lean-lsp-proxy/src/leanproxy/gateway/editor-client"
)

const (
	_configKey = "http"

	_defaultAddress   = "127.0.0.1:8080"
	_defaultStaticDir = "./web"

	_lspRoutePrefix = "/lsp/"

	// WebSocket close reasons are limited to 123 bytes on the wire.
	_maxCloseReasonBytes = 120
)

// Config holds the HTTP server settings from the config files.
type Config struct {
	Address   string `yaml:"address"`
	StaticDir string `yaml:"staticDir"`
}

// Handler is the inbound HTTP server of the proxy.
type Handler interface {
	// Addr returns the address the server is listening on, or nil before start.
	Addr() net.Addr
}

// Params define values to be used by the handler.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Provider
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Proxy     proxy.Controller
	DocSync   docsync.Controller
	Gateway   editorclient.Gateway
}

type handler struct {
	address   string
	staticDir string
	logger    *zap.SugaredLogger
	stats     tally.Scope
	proxy     proxy.Controller
	docSync   docsync.Controller
	gateway   editorclient.Gateway

	server   *http.Server
	listener net.Listener
}

// New constructs the HTTP handler and registers its lifecycle hooks.
func New(p Params) (Handler, error) {
	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if cfg.Address == "" {
		cfg.Address = _defaultAddress
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = _defaultStaticDir
	}

	h := &handler{
		address:   cfg.Address,
		staticDir: cfg.StaticDir,
		logger:    p.Logger.With("component", "http"),
		stats:     p.Stats.SubScope("http"),
		proxy:     p.Proxy,
		docSync:   p.DocSync,
		gateway:   p.Gateway,
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(h.staticDir)))
	mux.HandleFunc("/file-uri", h.handleFileURI)
	mux.HandleFunc(_lspRoutePrefix, h.handleLSP)
	h.server = &http.Server{Handler: mux}

	p.Lifecycle.Append(fx.Hook{
		OnStart: h.start,
		OnStop:  h.stop,
	})
	return h, nil
}

func (h *handler) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.address)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", h.address, err)
	}
	h.listener = listener
	h.logger.Infow("http server listening", "address", listener.Addr().String())

	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			h.logger.Errorw("http server stopped", "error", err)
		}
	}()
	return nil
}

func (h *handler) stop(ctx context.Context) error {
	// Releasing the sessions first ends every active relay, which also closes
	// the hijacked WebSocket connections that Shutdown does not track.
	return multierr.Append(
		h.proxy.ReleaseAll(ctx),
		h.server.Shutdown(ctx),
	)
}

func (h *handler) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// handleFileURI tells the editor which document and workspace root to open.
func (h *handler) handleFileURI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"fileUri": string(h.docSync.FileURI()),
		"rootUri": string(h.docSync.RootURI()),
	})
}

// handleLSP upgrades the connection and relays it to the session's language
// server for as long as the editor stays connected.
func (h *handler) handleLSP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, _lspRoutePrefix)
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.stats.Counter("upgrade_failures").Inc(1)
		h.logger.Warnw("websocket upgrade failed", "session", id, "error", err)
		return
	}

	h.serveSession(conn, id)
}

func (h *handler) serveSession(conn net.Conn, id string) {
	ctx := context.WithValue(context.Background(), entity.SessionContextKey, id)

	clientID := uuid.Must(uuid.NewV4())
	client, err := h.gateway.Register(ctx, clientID, conn)
	if err != nil {
		h.logger.Errorw("registering editor connection", "session", id, "error", err)
		conn.Close()
		return
	}
	defer h.gateway.Deregister(ctx, clientID)

	sess, err := h.proxy.GetOrCreate(ctx, id)
	if err != nil {
		h.stats.Counter("session_failures").Inc(1)
		h.logger.Errorw("failed to start language server", "session", id, "error", err)
		client.CloseWithReason(ws.StatusInternalServerError, truncateReason(err.Error()))
		return
	}

	if err := h.proxy.Relay(ctx, sess, client); err != nil {
		h.logger.Warnw("relay ended with error", "session", id, "error", err)
	}
}

func truncateReason(reason string) string {
	if len(reason) > _maxCloseReasonBytes {
		return reason[:_maxCloseReasonBytes]
	}
	return reason
}
