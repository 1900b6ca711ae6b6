package mapper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/entity"
)

func TestNewSession(t *testing.T) {
	s := NewSession("doc-abc", nil, "/tmp/project")

	assert.False(t, s.UUID.IsNil())
	assert.Equal(t, "doc-abc", s.ID)
	assert.Equal(t, "/tmp/project", s.WorkspaceRoot)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, int64(0), s.DocVersion.Load())
	assert.False(t, s.Alive())
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSession("doc-abc", nil, "/tmp/project")
	s.DocVersion.Store(7)

	m := SessionToModel(s)
	got, err := ModelToSession(m)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, int64(7), got.DocVersion.Load())
}

func TestContextToSessionID(t *testing.T) {
	ctx := context.WithValue(context.Background(), entity.SessionContextKey, "doc-abc")
	id, err := ContextToSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "doc-abc", id)
}

func TestContextToSessionIDMissing(t *testing.T) {
	_, err := ContextToSessionID(context.Background())
	assert.Error(t, err)
}
