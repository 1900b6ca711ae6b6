package mapper

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/atomic"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/entity"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/errors"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/langserver"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/model"
)

// NewSession initializes a Session entity for a freshly spawned language server.
func NewSession(id string, proc *langserver.Process, workspaceRoot string) *entity.Session {
	return &entity.Session{
		UUID:          uuid.Must(uuid.NewV4()),
		ID:            id,
		Proc:          proc,
		WorkspaceRoot: workspaceRoot,
		CreatedAt:     time.Now(),
		DocVersion:    atomic.NewInt64(0),
	}
}

// SessionToModel maps a Session entity to its model equivalent.
func SessionToModel(s *entity.Session) *model.Session {
	return &model.Session{
		UUID:          s.UUID,
		ID:            s.ID,
		Proc:          s.Proc,
		WorkspaceRoot: s.WorkspaceRoot,
		CreatedAt:     s.CreatedAt,
		DocVersion:    s.DocVersion,
	}
}

// ModelToSession maps a model Session to its entity equivalent.
func ModelToSession(s *model.Session) (*entity.Session, error) {
	return &entity.Session{
		UUID:          s.UUID,
		ID:            s.ID,
		Proc:          s.Proc,
		WorkspaceRoot: s.WorkspaceRoot,
		CreatedAt:     s.CreatedAt,
		DocVersion:    s.DocVersion,
	}, nil
}

// ContextToSessionID extracts the session ID from a context
func ContextToSessionID(c context.Context) (string, error) {
	s, ok := c.Value(entity.SessionContextKey).(string)
	if !ok {
		return "", &errors.NoSessionFoundError{}
	}
	return s, nil
}
