package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store archives accepted complaint photos to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// EvidenceKey is the object key for a session's photo.
func EvidenceKey(sessionID, contentType string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("evidence/v1/by-date/%d/%02d/%02d/%s.%s",
		at.Year(), at.Month(), at.Day(), sessionID, extension(contentType))
}

// ArchiveEvidence stores the photo and a JSON record describing it, then
// appends to the monthly manifest. It returns the image key, or "" when
// archival is disabled.
func (s *Store) ArchiveEvidence(ctx context.Context, session *intake.Session, img intake.Image) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if session == nil || !session.Verdict.Accepted() {
		return "", fmt.Errorf("archive: only accepted evidence is archived")
	}

	now := s.now().UTC()
	imageKey := EvidenceKey(session.ID, img.MIMEType, now)
	if err := s.put(ctx, imageKey, img.Data, contentType(img.MIMEType)); err != nil {
		return "", err
	}

	record := EvidenceRecord{
		Version:     "1.0",
		SessionID:   session.ID,
		IssueType:   session.Verdict.IssueType.String(),
		Urgency:     string(session.Verdict.Urgency),
		Confidence:  session.Verdict.Confidence,
		Area:        session.Location.Area,
		City:        session.Location.City,
		Transcript:  ScrubPII(session.NormalizedText),
		ImageKey:    imageKey,
		ContentType: contentType(img.MIMEType),
		ArchivedAt:  now,
	}
	if session.UserID != "" {
		record.UserHash = HashID(session.UserID)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("archive: marshal record: %w", err)
	}
	recordKey := strings.TrimSuffix(imageKey, "."+extension(img.MIMEType)) + ".json"
	if err := s.put(ctx, recordKey, data, "application/json"); err != nil {
		return "", err
	}

	s.logger.Info("archived evidence to S3",
		"session_id", session.ID,
		"s3_key", imageKey,
		"issue_type", record.IssueType,
	)

	entry := ManifestEntry{
		SessionID:  session.ID,
		ImageKey:   imageKey,
		RecordKey:  recordKey,
		IssueType:  record.IssueType,
		Urgency:    record.Urgency,
		ArchivedAt: now.Format(time.RFC3339),
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "session_id", session.ID)
	}
	return imageKey, nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// S3 has no append, so this is a read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := s.now().UTC()
	manifestKey := fmt.Sprintf("evidence/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if !errors.As(err, &nsk) {
			return fmt.Errorf("archive: s3 get manifest: %w", err)
		}
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	} else {
		existing, _ = io.ReadAll(getResp.Body)
		getResp.Body.Close()
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	return s.put(ctx, manifestKey, buf.Bytes(), "application/x-ndjson")
}

func (s *Store) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	return nil
}

func contentType(mime string) string {
	if strings.TrimSpace(mime) == "" {
		return "image/jpeg"
	}
	return mime
}

func extension(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "jpg"
	}
}
