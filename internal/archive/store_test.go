package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte
	getErr   error
}

type putCall struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket:      *input.Bucket,
		key:         *input.Key,
		contentType: *input.ContentType,
		body:        body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func acceptedSession() *intake.Session {
	s := intake.NewSession("hi-IN", intake.Location{Area: "Ward 7", City: "Pune"})
	s.ID = "sess-1"
	s.UserID = "user-1"
	s.NormalizedText = "large pothole road on is, call 98765 43210"
	s.Verdict = &intake.ImageVerdict{Status: intake.VerdictAccepted, IssueType: intake.IssuePothole, Urgency: intake.UrgencyHigh, Confidence: 88}
	return s
}

func TestStore_ArchiveEvidence(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)
	store.now = func() time.Time { return time.Date(2026, 2, 12, 15, 0, 0, 0, time.UTC) }

	key, err := store.ArchiveEvidence(context.Background(), acceptedSession(), intake.Image{Data: []byte{0xff, 0xd8}, MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "evidence/v1/by-date/2026/02/12/sess-1.png", key)

	// image, record, manifest
	require.Len(t, mock.putCalls, 3)
	assert.Equal(t, "image/png", mock.putCalls[0].contentType)
	assert.Equal(t, "evidence/v1/by-date/2026/02/12/sess-1.json", mock.putCalls[1].key)

	var record EvidenceRecord
	require.NoError(t, json.Unmarshal(mock.putCalls[1].body, &record))
	assert.Equal(t, "Pothole", record.IssueType)
	assert.Equal(t, 88, record.Confidence)
	assert.Equal(t, HashID("user-1"), record.UserHash)
	assert.Equal(t, "large pothole road on is, call [PHONE]", record.Transcript)

	assert.Equal(t, "evidence/v1/manifests/2026-02.jsonl", mock.putCalls[2].key)
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mock.putCalls[2].body), &entry))
	assert.Equal(t, "sess-1", entry.SessionID)
}

func TestStore_RejectsUnacceptedEvidence(t *testing.T) {
	store := NewStore(newMockS3(), "test-bucket", nil)
	s := acceptedSession()
	s.Verdict.Status = intake.VerdictRejected

	_, err := store.ArchiveEvidence(context.Background(), s, intake.Image{Data: []byte{1}})
	assert.Error(t, err)
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())

	key, err := store.ArchiveEvidence(context.Background(), acceptedSession(), intake.Image{})
	assert.NoError(t, err)
	assert.Empty(t, key)
}

func TestStore_ManifestAppend(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-1"}))
	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-2"}))

	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	assert.Len(t, lines, 2)

	mock.getErr = errors.New("access denied")
	assert.Error(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-3"}))
}

func TestEvidenceKeyExtensions(t *testing.T) {
	at := time.Date(2025, 12, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "evidence/v1/by-date/2025/12/01/a.jpg", EvidenceKey("a", "", at))
	assert.Equal(t, "evidence/v1/by-date/2025/12/01/a.webp", EvidenceKey("a", "image/webp", at))
}
