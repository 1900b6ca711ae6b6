// Package langserver owns the lifecycle of language-server subprocesses.
// One process is spawned per editing session and speaks Content-Length
// framed JSON-RPC over its standard streams.
package langserver

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	tally "github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/errors"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

const (
	_configKey = "langserver"

	_defaultShutdownTimeout = 5 * time.Second
)

var _defaultCommand = []string{"lake", "serve"}

// Config holds the subprocess settings from the config files.
type Config struct {
	Command           []string `yaml:"command"`
	ShutdownTimeoutMs int      `yaml:"shutdownTimeoutMs"`
}

// Supervisor spawns and supervises language-server subprocesses.
type Supervisor interface {
	// Spawn launches the configured language-server command with workdir as
	// its working directory. The tag labels the subprocess's log output.
	Spawn(ctx context.Context, workdir string, tag string) (*Process, error)
}

// Params define values to be used by the supervisor.
type Params struct {
	fx.In

	Config config.Provider
	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type supervisor struct {
	command []string
	timeout time.Duration
	logger  *zap.SugaredLogger
	stats   tally.Scope
}

// New creates a Supervisor from configuration.
func New(p Params) (Supervisor, error) {
	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}

	command := cfg.Command
	if len(command) == 0 {
		command = _defaultCommand
	}
	timeout := _defaultShutdownTimeout
	if cfg.ShutdownTimeoutMs > 0 {
		timeout = time.Duration(cfg.ShutdownTimeoutMs) * time.Millisecond
	}

	return &supervisor{
		command: command,
		timeout: timeout,
		logger:  p.Logger,
		stats:   p.Stats.SubScope("langserver"),
	}, nil
}

// Spawn starts a new language-server subprocess. Failures are reported as
// *errors.SpawnError and never affect other sessions.
func (s *supervisor) Spawn(ctx context.Context, workdir string, tag string) (*Process, error) {
	cmd := exec.Command(s.command[0], s.command[1:]...)
	cmd.Dir = workdir

	p, stderr, err := newProcess(cmd, s.timeout)
	if err != nil {
		s.stats.Counter("spawn_failures").Inc(1)
		return nil, &errors.SpawnError{Command: strings.Join(s.command, " "), Err: err}
	}

	s.stats.Counter("spawns").Inc(1)
	s.logger.Infow("spawned language server",
		"session", tag,
		"pid", p.Pid(),
		"dir", workdir,
	)

	go s.drainStderr(tag, stderr)
	return p, nil
}

// drainStderr forwards subprocess stderr lines into the server log until the
// stream closes on process exit.
func (s *supervisor) drainStderr(tag string, stderr *bufio.Scanner) {
	logger := s.logger.With("session", tag)
	for stderr.Scan() {
		logger.Infow("language server stderr", "line", stderr.Text())
	}
}
