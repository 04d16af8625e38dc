package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for user storage
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByMobile(ctx context.Context, mobile string) (*User, error)
	UpdateName(ctx context.Context, id, name string) error
	UpdatePreferences(ctx context.Context, id, language string, aiUpdates bool) error
}

// InMemoryRepository is a stub implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*User
	byMobile map[string]string
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:     make(map[string]*User),
		byMobile: make(map[string]string),
	}
}

// Create stores user, assigning an ID and creation time when missing.
func (r *InMemoryRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byMobile[user.Mobile]; exists {
		return ErrUserExists
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	copied := *user
	r.byID[user.ID] = &copied
	r.byMobile[user.Mobile] = user.ID
	return nil
}

// GetByID retrieves a user by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// GetByMobile retrieves a user by mobile number
func (r *InMemoryRepository) GetByMobile(ctx context.Context, mobile string) (*User, error) {
	r.mu.RLock()
	id, ok := r.byMobile[mobile]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *InMemoryRepository) UpdateName(ctx context.Context, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Name = name
	return nil
}

func (r *InMemoryRepository) UpdatePreferences(ctx context.Context, id, language string, aiUpdates bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Language = language
	u.AIUpdates = aiUpdates
	return nil
}
