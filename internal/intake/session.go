package intake

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is the position of a session in the intake flow.
type State string

const (
	StateLocationPending    State = "location_pending"
	StateVoiceCaptured      State = "voice_captured"
	StateImageEvaluated     State = "image_evaluated"
	StateConsistencyChecked State = "consistency_checked"
	StateEvidenceValidated  State = "evidence_validated"
	StatePayloadAssembled   State = "payload_assembled"
	StateGenerationComplete State = "generation_complete"
)

// Location is where the issue was reported. Area is mandatory before voice capture.
type Location struct {
	Area string `json:"area"`
	City string `json:"city,omitempty"`
}

// Session carries one citizen's report through the pipeline. A Session is not
// safe for concurrent mutation; callers own it for the duration of a step.
type Session struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id,omitempty"`
	Language       string            `json:"language"`
	Location       Location          `json:"location"`
	RawTranscript  string            `json:"raw_transcript,omitempty"`
	NormalizedText string            `json:"normalized_text,omitempty"`
	VoiceIssue     IssueType         `json:"voice_issue,omitempty"`
	Verdict        *ImageVerdict     `json:"image_verdict,omitempty"`
	EvidenceKey    string            `json:"evidence_key,omitempty"`
	Urgency        Urgency           `json:"urgency"`
	Payload        *ComplaintPayload `json:"payload,omitempty"`
	Generation     *Generation       `json:"generation,omitempty"`
	State          State             `json:"state"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// DefaultLanguage is used when a session is opened without a language.
const DefaultLanguage = "hi-IN"

// NewSession opens a session for the given language and location.
func NewSession(language string, loc Location) *Session {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New().String(),
		Language:  language,
		Location:  loc,
		Urgency:   UrgencyNormal,
		State:     StateLocationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasLocation reports whether an area has been set.
func (s *Session) HasLocation() bool {
	return strings.TrimSpace(s.Location.Area) != ""
}

// HasVoice reports whether a transcript has been captured.
func (s *Session) HasVoice() bool {
	return s.VoiceIssue != ""
}

func (s *Session) advance(state State) {
	s.State = state
	s.UpdatedAt = time.Now().UTC()
}
