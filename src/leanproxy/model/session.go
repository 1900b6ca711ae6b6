package model

import (
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/atomic"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/langserver"
)

// Session is the repository layer model for an individual editing session.
type Session struct {
	UUID          uuid.UUID
	ID            string
	Proc          *langserver.Process
	WorkspaceRoot string
	CreatedAt     time.Time
	DocVersion    *atomic.Int64
}
