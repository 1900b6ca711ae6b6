// Package session stores the live editing sessions keyed by session ID.
package session

import (
	"context"
	"sync"

	tally "github.com/uber-go/tally"

	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/entity"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/internal/errors"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/mapper"
	"github.com/leancollab/lean-lsp-proxy/src/leanproxy/model"
)

// Repository is an entity-scoped repository.
type Repository interface {
	Get(ctx context.Context, id string) (*entity.Session, error)
	GetFromContext(ctx context.Context) (*entity.Session, error)
	Set(ctx context.Context, s *entity.Session) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) ([]*entity.Session, error)
	SessionCount(ctx context.Context) (int, error)
}

type repository struct {
	mu       sync.Mutex
	memstore map[string]*model.Session
	stats    tally.Scope
}

// New returns a repository to a key-value Session data store.
func New(stats tally.Scope) Repository {
	return &repository{
		memstore: make(map[string]*model.Session),
		stats:    stats,
	}
}

// Get returns the Session associated with the given id.
func (r *repository) Get(ctx context.Context, id string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.memstore[id]
	if !ok {
		return nil, &errors.SessionNotFoundError{ID: id}
	}
	return mapper.ModelToSession(s)
}

// GetFromContext returns the Session associated with the given context.
func (r *repository) GetFromContext(ctx context.Context) (*entity.Session, error) {
	id, err := mapper.ContextToSessionID(ctx)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Set sets the Session to its associated id.
func (r *repository) Set(ctx context.Context, s *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s == nil {
		return errors.New("can't save nil session")
	}
	r.memstore[s.ID] = mapper.SessionToModel(s)
	r.stats.Gauge("active_sessions").Update(float64(len(r.memstore)))
	return nil
}

// Delete removes the Session associated with the given id.
func (r *repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, id)
	r.stats.Gauge("active_sessions").Update(float64(len(r.memstore)))
	return nil
}

// All returns every stored session.
func (r *repository) All(ctx context.Context) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := make([]*entity.Session, 0, len(r.memstore))
	for _, s := range r.memstore {
		sess, err := mapper.ModelToSession(s)
		if err != nil {
			return nil, err
		}
		found = append(found, sess)
	}
	return found, nil
}

// SessionCount returns the total count of active sessions.
func (r *repository) SessionCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore), nil
}
