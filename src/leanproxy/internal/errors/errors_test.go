package errors

import (
	stderr "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.NotEqual(t, New("sample"), New("sample"))
	assert.EqualError(t, New("sample"), "sample")
}

func TestNotFoundSessionID(t *testing.T) {
	err := fmt.Errorf("getting session: %w", &SessionNotFoundError{ID: "doc-abc"})

	id, ok := NotFoundSessionID(err)
	require.True(t, ok)
	assert.Equal(t, "doc-abc", id)

	_, ok = NotFoundSessionID(New("unrelated"))
	assert.False(t, ok)
}

func TestNoSessionFoundError(t *testing.T) {
	var err error = &NoSessionFoundError{}
	assert.EqualError(t, err, "no session found in context")
}

func TestSpawnError(t *testing.T) {
	cause := os.ErrNotExist
	err := fmt.Errorf("creating session: %w", &SpawnError{Command: "lake serve", Err: cause})

	assert.True(t, IsSpawnFailure(err))
	assert.False(t, IsSpawnFailure(New("unrelated")))
	assert.ErrorIs(t, err, cause)

	var se *SpawnError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "lake serve")
}

func TestSyncWriteError(t *testing.T) {
	cause := os.ErrPermission
	err := fmt.Errorf("applying change: %w", &SyncWriteError{Path: "/p/Scratch.lean", Err: cause})

	assert.True(t, IsSyncWriteFailure(err))
	assert.False(t, IsSyncWriteFailure(stderr.New("unrelated")))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "/p/Scratch.lean")
}
