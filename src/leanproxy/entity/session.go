// Package entity contains the domain logic for the lean-lsp-proxy service.
package entity

import (
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/atomic"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/langserver"
)

type keyType string

// SessionContextKey indicates the key to be used to identify the session ID in the context.
const SessionContextKey keyType = "SessionID"

// Session entity representing a single collaborative editing session and its
// language-server subprocess.
type Session struct {
	UUID          uuid.UUID           `json:"uuid" zap:"uuid"`
	ID            string              `json:"id" zap:"id"`
	Proc          *langserver.Process `json:"-" zap:"-"`
	WorkspaceRoot string              `json:"workspaceRoot" zap:"workspaceRoot"`
	CreatedAt     time.Time           `json:"createdAt" zap:"createdAt"`
	DocVersion    *atomic.Int64       `json:"-" zap:"-"`
}

// Alive reports whether the session's language server is still running.
func (s *Session) Alive() bool {
	return s.Proc != nil && s.Proc.Alive()
}
