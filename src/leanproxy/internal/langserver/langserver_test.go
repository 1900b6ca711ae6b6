package langserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/errors"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/framing"
)

func newTestSupervisor(t *testing.T, command []string) Supervisor {
	t.Helper()

	provider, err := config.NewStaticProvider(map[string]interface{}{
		"langserver": map[string]interface{}{
			"command":           command,
			"shutdownTimeoutMs": 1000,
		},
	})
	require.NoError(t, err)

	s, err := New(Params{
		Config: provider,
		Logger: zap.NewNop().Sugar(),
		Stats:  tally.NoopScope,
	})
	require.NoError(t, err)
	return s
}

func TestNewDefaults(t *testing.T) {
	provider, err := config.NewStaticProvider(map[string]interface{}{})
	require.NoError(t, err)

	s, err := New(Params{
		Config: provider,
		Logger: zap.NewNop().Sugar(),
		Stats:  tally.NoopScope,
	})
	require.NoError(t, err)

	impl := s.(*supervisor)
	assert.Equal(t, _defaultCommand, impl.command)
	assert.Equal(t, _defaultShutdownTimeout, impl.timeout)
}

func TestSpawnEchoRoundTrip(t *testing.T) {
	s := newTestSupervisor(t, []string{"cat"})

	ctx := context.Background()
	proc, err := s.Spawn(ctx, t.TempDir(), "test-session")
	require.NoError(t, err)
	assert.True(t, proc.Alive())
	assert.Positive(t, proc.Pid())

	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.NoError(t, framing.Write(proc.Stdin(), body))

	got, err := proc.Frames().ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, body, got)

	require.NoError(t, proc.Terminate(ctx))
	assert.False(t, proc.Alive())
}

func TestTerminateUnblocksFrameReader(t *testing.T) {
	s := newTestSupervisor(t, []string{"cat"})

	proc, err := s.Spawn(context.Background(), t.TempDir(), "test-session")
	require.NoError(t, err)

	readErr := make(chan error, 1)
	go func() {
		_, err := proc.Frames().ReadFrame()
		readErr <- err
	}()

	require.NoError(t, proc.Terminate(context.Background()))

	select {
	case err := <-readErr:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("frame reader was not unblocked by termination")
	}
}

func TestSpawnFailure(t *testing.T) {
	s := newTestSupervisor(t, []string{"definitely-not-a-real-binary-4471"})

	_, err := s.Spawn(context.Background(), t.TempDir(), "test-session")
	require.Error(t, err)
	assert.True(t, errors.IsSpawnFailure(err))

	var spawnErr *errors.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Contains(t, spawnErr.Command, "definitely-not-a-real-binary-4471")
}

func TestProcessExitObservable(t *testing.T) {
	s := newTestSupervisor(t, []string{"true"})

	proc, err := s.Spawn(context.Background(), t.TempDir(), "test-session")
	require.NoError(t, err)

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	assert.False(t, proc.Alive())
	assert.NoError(t, proc.ExitErr())
	require.NoError(t, proc.Terminate(context.Background()))
}

func TestTerminateKillsStubbornProcess(t *testing.T) {
	// sleep ignores stdin closing, so Terminate has to escalate to a kill.
	s := newTestSupervisor(t, []string{"sleep", "60"})

	proc, err := s.Spawn(context.Background(), t.TempDir(), "test-session")
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, proc.Terminate(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.False(t, proc.Alive())
}

func TestTerminateIdempotent(t *testing.T) {
	s := newTestSupervisor(t, []string{"cat"})

	proc, err := s.Spawn(context.Background(), t.TempDir(), "test-session")
	require.NoError(t, err)

	require.NoError(t, proc.Terminate(context.Background()))
	require.NoError(t, proc.Terminate(context.Background()))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
