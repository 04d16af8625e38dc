// Package drafts keeps in-flight intake sessions between HTTP steps.
package drafts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/nagrik-sahayak/internal/intake"
)

// DefaultTTL bounds how long an abandoned draft lingers.
const DefaultTTL = 30 * time.Minute

var (
	// ErrNotFound is returned for unknown or expired drafts.
	ErrNotFound = errors.New("drafts: session not found")

	// ErrBusy is returned when another request holds the draft lock.
	ErrBusy = errors.New("drafts: session busy")
)

// Store persists draft sessions. Lock serializes steps on one session; the
// returned func releases it.
type Store interface {
	Save(ctx context.Context, s *intake.Session) error
	Load(ctx context.Context, id string) (*intake.Session, error)
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) (func(), error)
}

type memoryEntry struct {
	session   intake.Session
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and single-instance runs.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	items  map[string]memoryEntry
	locked map[string]bool
}

// NewMemoryStore returns an empty MemoryStore. ttl <= 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		items:  make(map[string]memoryEntry),
		locked: make(map[string]bool),
	}
}

func (m *MemoryStore) Save(ctx context.Context, s *intake.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = memoryEntry{session: *s, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*intake.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok || m.now().After(e.expiresAt) {
		delete(m.items, id)
		return nil, ErrNotFound
	}
	s := e.session
	return &s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *MemoryStore) Lock(ctx context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked[id] {
		return nil, ErrBusy
	}
	m.locked[id] = true
	return func() {
		m.mu.Lock()
		delete(m.locked, id)
		m.mu.Unlock()
	}, nil
}

var _ Store = (*MemoryStore)(nil)
