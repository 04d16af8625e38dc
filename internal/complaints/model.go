package complaints

import (
	"fmt"
	"strings"
	"time"
)

// Complaint statuses.
const (
	StatusPending    = "Pending"
	StatusSubmitted  = "Submitted"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusEscalated  = "Escalated"
)

// Complaint is a finalized civic complaint owned by a citizen.
type Complaint struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Area        string    `json:"area,omitempty"`
	Urgency     string    `json:"urgency,omitempty"`
	Status      string    `json:"status"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateComplaintRequest is the input for storing a generated complaint.
type CreateComplaintRequest struct {
	UserID      string
	Title       string
	Description string
	Category    string
	Area        string
	Urgency     string
}

// Validate checks required fields.
func (r *CreateComplaintRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrMissingDescription
	}
	return nil
}

// Title formats the stored title for an issue reported in area.
func Title(issue, area string) string {
	return fmt.Sprintf("%s issue in %s", issue, area)
}

// Stats summarises a citizen's complaints by status.
type Stats struct {
	Total      int64 `json:"total"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Escalated  int64 `json:"escalated"`
}

// ValidStatus reports whether status is one staff may assign.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusSubmitted, StatusInProgress, StatusResolved, StatusEscalated:
		return true
	}
	return false
}
