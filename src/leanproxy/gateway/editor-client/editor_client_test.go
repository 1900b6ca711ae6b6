package editorclient

import (
	"context"
	"net"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func newTestGateway() Gateway {
	return New(Params{
		Logger: zap.NewNop().Sugar(),
		Stats:  tally.NewTestScope("testing", make(map[string]string, 0)),
	})
}

func TestReceive(t *testing.T) {
	serverEnd, editorEnd := net.Pipe()
	defer editorEnd.Close()

	g := newTestGateway()
	id := uuid.Must(uuid.NewV4())
	c, err := g.Register(context.Background(), id, serverEnd)
	require.NoError(t, err)

	go func() {
		wsutil.WriteClientText(editorEnd, []byte(`{"jsonrpc":"2.0"}`))
	}()

	data, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0"}`, string(data))
}

func TestReceiveSkipsBinaryFrames(t *testing.T) {
	serverEnd, editorEnd := net.Pipe()
	defer editorEnd.Close()

	g := newTestGateway()
	c, err := g.Register(context.Background(), uuid.Must(uuid.NewV4()), serverEnd)
	require.NoError(t, err)

	go func() {
		wsutil.WriteClientBinary(editorEnd, []byte{0x01, 0x02})
		wsutil.WriteClientText(editorEnd, []byte("after"))
	}()

	data, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, "after", string(data))
}

func TestSend(t *testing.T) {
	serverEnd, editorEnd := net.Pipe()
	defer editorEnd.Close()

	g := newTestGateway()
	c, err := g.Register(context.Background(), uuid.Must(uuid.NewV4()), serverEnd)
	require.NoError(t, err)

	go func() {
		c.Send([]byte("to the editor"))
	}()

	data, err := wsutil.ReadServerData(editorEnd)
	require.NoError(t, err)
	assert.Equal(t, "to the editor", string(data))
}

func TestCloseWithReason(t *testing.T) {
	serverEnd, editorEnd := net.Pipe()
	defer editorEnd.Close()

	g := newTestGateway()
	c, err := g.Register(context.Background(), uuid.Must(uuid.NewV4()), serverEnd)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- c.CloseWithReason(ws.StatusInternalServerError, "language server exited")
	}()

	frame, err := ws.ReadFrame(editorEnd)
	require.NoError(t, err)
	assert.Equal(t, ws.OpClose, frame.Header.OpCode)
	code, reason := ws.ParseCloseFrameData(frame.Payload)
	assert.Equal(t, ws.StatusInternalServerError, code)
	assert.Equal(t, "language server exited", reason)

	require.NoError(t, <-done)

	// Further closes are no-ops.
	assert.NoError(t, c.Close())
}

func TestDeregister(t *testing.T) {
	serverEnd, editorEnd := net.Pipe()
	defer editorEnd.Close()

	g := newTestGateway()
	id := uuid.Must(uuid.NewV4())
	_, err := g.Register(context.Background(), id, serverEnd)
	require.NoError(t, err)

	go wsutil.ReadServerData(editorEnd)
	require.NoError(t, g.Deregister(context.Background(), id))

	// Unknown ids are a no-op.
	assert.NoError(t, g.Deregister(context.Background(), uuid.Must(uuid.NewV4())))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
