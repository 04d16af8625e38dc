package complaints

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for complaint storage
type Repository interface {
	Create(ctx context.Context, req *CreateComplaintRequest) (*Complaint, error)
	GetByID(ctx context.Context, id string) (*Complaint, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Complaint, error)
	AttachSubmission(ctx context.Context, id, referenceID string) error
	Stats(ctx context.Context, userID string) (Stats, error)
	SetStatus(ctx context.Context, id, status string) error
}

// InMemoryRepository is a stub implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu         sync.RWMutex
	complaints map[string]*Complaint
	now        func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		complaints: make(map[string]*Complaint),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a complaint with status Pending.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateComplaintRequest) (*Complaint, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := &Complaint{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Area:        req.Area,
		Urgency:     req.Urgency,
		Status:      StatusPending,
		CreatedAt:   r.now(),
	}

	r.mu.Lock()
	r.complaints[c.ID] = c
	r.mu.Unlock()

	copied := *c
	return &copied, nil
}

// GetByID retrieves a complaint by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.complaints[id]
	if !ok {
		return nil, ErrComplaintNotFound
	}
	copied := *c
	return &copied, nil
}

// ListByUser returns the user's complaints, newest first. limit <= 0 returns all.
func (r *InMemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*Complaint, error) {
	r.mu.RLock()
	out := make([]*Complaint, 0)
	for _, c := range r.complaints {
		if c.UserID == userID {
			copied := *c
			out = append(out, &copied)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AttachSubmission records the external reference and marks the complaint Submitted.
func (r *InMemoryRepository) AttachSubmission(ctx context.Context, id, referenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.complaints[id]
	if !ok {
		return ErrComplaintNotFound
	}
	c.ReferenceID = referenceID
	c.Status = StatusSubmitted
	return nil
}

// Stats counts the user's complaints by status.
func (r *InMemoryRepository) Stats(ctx context.Context, userID string) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	for _, c := range r.complaints {
		if c.UserID != userID {
			continue
		}
		s.Total++
		switch c.Status {
		case StatusInProgress:
			s.InProgress++
		case StatusResolved:
			s.Resolved++
		case StatusEscalated:
			s.Escalated++
		}
	}
	return s, nil
}

// SetStatus changes a complaint's status. Municipal staff tooling uses it to
// move complaints through In Progress, Resolved, and Escalated.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.complaints[id]
	if !ok {
		return ErrComplaintNotFound
	}
	c.Status = status
	return nil
}
