// Package docsync mirrors editor document state onto disk so the language
// server and other tooling always see the latest buffer contents.
package docsync

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/uber-go/tally"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/errors"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/fs"
)

const (
	_nameKey   = "doc-sync"
	_configKey = "project"

	_defaultProjectRoot = "./lean-project"
	_defaultProjectFile = "src/Scratch.lean"
)

// Config holds the project layout settings from the config files.
type Config struct {
	Root string `yaml:"root"`
	File string `yaml:"file"`
}

// Controller keeps the on-disk project in sync with editor buffers.
type Controller interface {
	// DidOpen applies the full text carried by a textDocument/didOpen
	// notification to disk.
	DidOpen(ctx context.Context, params json.RawMessage) error

	// DidChange applies the last full-document change carried by a
	// textDocument/didChange notification to disk. Incremental changes are
	// ignored; clients of this proxy are expected to use full sync.
	DidChange(ctx context.Context, params json.RawMessage) error

	// Apply writes text to the local file identified by docURI.
	Apply(ctx context.Context, docURI uri.URI, text string) error

	// FileURI is the canonical URI of the shared document.
	FileURI() uri.URI

	// RootURI is the URI of the project root directory.
	RootURI() uri.URI
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	Stats  tally.Scope
	Config config.Provider
	FS     fs.ProxyFS
}

type controller struct {
	root   string
	file   string
	logger *zap.SugaredLogger
	stats  tally.Scope
	fs     fs.ProxyFS

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a new controller for document sync.
func New(p Params) (Controller, error) {
	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if cfg.Root == "" {
		cfg.Root = _defaultProjectRoot
	}
	if cfg.File == "" {
		cfg.File = _defaultProjectFile
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root %q: %w", cfg.Root, err)
	}

	return &controller{
		root:   root,
		file:   filepath.Join(root, cfg.File),
		logger: p.Logger.With("component", _nameKey),
		stats:  p.Stats.SubScope("doc_sync"),
		fs:     p.FS,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

func (c *controller) FileURI() uri.URI {
	return uri.File(c.file)
}

func (c *controller) RootURI() uri.URI {
	return uri.File(c.root)
}

func (c *controller) DidOpen(ctx context.Context, params json.RawMessage) error {
	var didOpen protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &didOpen); err != nil {
		return fmt.Errorf("unmarshalling %s params: %w", protocol.MethodTextDocumentDidOpen, err)
	}

	c.stats.Counter("did_open").Inc(1)
	return c.Apply(ctx, didOpen.TextDocument.URI, didOpen.TextDocument.Text)
}

// didChangeParams is decoded by hand so that a change's range can be
// inspected for presence. Full-document changes carry no range at all.
type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChange                          `json:"contentChanges"`
}

type contentChange struct {
	Range json.RawMessage `json:"range,omitempty"`
	Text  string          `json:"text"`
}

func (c *controller) DidChange(ctx context.Context, params json.RawMessage) error {
	var didChange didChangeParams
	if err := json.Unmarshal(params, &didChange); err != nil {
		return fmt.Errorf("unmarshalling %s params: %w", protocol.MethodTextDocumentDidChange, err)
	}

	c.stats.Counter("did_change").Inc(1)

	// Only the last full-document change matters; anything before it is
	// superseded by the time the file is written.
	for i := len(didChange.ContentChanges) - 1; i >= 0; i-- {
		change := didChange.ContentChanges[i]
		if len(change.Range) > 0 {
			continue
		}
		return c.Apply(ctx, didChange.TextDocument.URI, change.Text)
	}

	c.stats.Counter("incremental_skipped").Inc(1)
	c.logger.Debugw("no full-document change in didChange, skipping sync",
		"uri", didChange.TextDocument.URI,
		"changes", len(didChange.ContentChanges),
	)
	return nil
}

// Apply writes text to the file identified by docURI. Concurrent writes to
// the same path are serialized; the last writer wins.
func (c *controller) Apply(ctx context.Context, docURI uri.URI, text string) error {
	path, err := c.localPath(docURI)
	if err != nil {
		c.stats.Counter("rejected_paths").Inc(1)
		return err
	}

	lock := c.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := c.fs.MkdirAll(filepath.Dir(path)); err != nil {
		c.stats.Counter("write_failures").Inc(1)
		return &errors.SyncWriteError{Path: path, Err: err}
	}
	if err := c.fs.WriteFileAtomic(path, []byte(text)); err != nil {
		c.stats.Counter("write_failures").Inc(1)
		return &errors.SyncWriteError{Path: path, Err: err}
	}

	c.stats.Counter("writes").Inc(1)
	c.logger.Debugw("synced document to disk", "path", path, "bytes", len(text))
	return nil
}

// localPath maps a document URI to a path inside the project root. URIs
// pointing outside the root are rejected.
func (c *controller) localPath(docURI uri.URI) (string, error) {
	path := docURI.Filename()

	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("document %q is outside the project root %q", docURI, c.root)
	}
	return filepath.Join(c.root, rel), nil
}

func (c *controller) pathLock(path string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[path] = lock
	}
	return lock
}
