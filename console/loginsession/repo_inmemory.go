package loginsession

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/go-admin-auth/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps login sessions for the life of the process.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

// Upsert creates or replaces a login session
func (r *InMemoryRepo) Upsert(sessionID string, session Session) error {
	if sessionID == "" {
		return fmt.Errorf("[InMemoryRepo.Upsert] sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = session
	return nil
}

func (r *InMemoryRepo) Get(sessionID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, errors.ErrLoginSessionNotFound
	}
	return session, nil
}

// Delete removes a login session. Deleting an unknown id is not an error.
func (r *InMemoryRepo) Delete(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *InMemoryRepo) DeleteAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.sessions)
	return nil
}
