package archive

import "time"

// EvidenceRecord describes an archived complaint photo and the report it supports.
type EvidenceRecord struct {
	Version     string    `json:"version"`
	SessionID   string    `json:"session_id"`
	UserHash    string    `json:"user_hash,omitempty"`
	IssueType   string    `json:"issue_type"`
	Urgency     string    `json:"urgency"`
	Confidence  int       `json:"confidence"`
	Area        string    `json:"area"`
	City        string    `json:"city,omitempty"`
	Transcript  string    `json:"transcript,omitempty"`
	ImageKey    string    `json:"image_key"`
	ContentType string    `json:"content_type"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID  string `json:"session_id"`
	ImageKey   string `json:"image_key"`
	RecordKey  string `json:"record_key"`
	IssueType  string `json:"issue_type"`
	Urgency    string `json:"urgency"`
	ArchivedAt string `json:"archived_at"`
}
