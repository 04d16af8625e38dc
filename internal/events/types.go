package events

import "time"

const (
	TypeComplaintFinalized = "complaint.finalized.v1"
	TypeComplaintSubmitted = "complaint.submitted.v1"
)

// ComplaintFinalizedV1 is emitted once a complaint letter has been produced and stored.
type ComplaintFinalizedV1 struct {
	ComplaintID    string    `json:"complaint_id"`
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	IssueType      string    `json:"issue_type"`
	Area           string    `json:"area"`
	City           string    `json:"city,omitempty"`
	Urgency        string    `json:"urgency"`
	ImageStatus    string    `json:"image_status"`
	GenerationKind string    `json:"generation_kind"`
	EvidenceKey    string    `json:"evidence_key,omitempty"`
	FinalizedAt    time.Time `json:"finalized_at"`
}

func (ComplaintFinalizedV1) EventType() string { return TypeComplaintFinalized }

func (e ComplaintFinalizedV1) ComplaintRef() string { return e.ComplaintID }

// ComplaintSubmittedV1 is emitted after the letter was emailed to the municipality.
type ComplaintSubmittedV1 struct {
	ComplaintID string    `json:"complaint_id"`
	ReferenceID string    `json:"reference_id"`
	City        string    `json:"city"`
	Urgency     string    `json:"urgency"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (ComplaintSubmittedV1) EventType() string { return TypeComplaintSubmitted }

func (e ComplaintSubmittedV1) ComplaintRef() string { return e.ComplaintID }
