package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/nagrik-sahayak/internal/complaints"
	"github.com/wolfman30/nagrik-sahayak/internal/drafts"
	"github.com/wolfman30/nagrik-sahayak/internal/events"
	"github.com/wolfman30/nagrik-sahayak/internal/http/middleware"
	"github.com/wolfman30/nagrik-sahayak/internal/http/respond"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// MaxImageBytes bounds uploaded photos.
const MaxImageBytes = 10 << 20

// MaxAudioBytes bounds one decoded utterance, matching the synchronous
// recognize request limit.
const MaxAudioBytes = 10 << 20

// voiceBodyLimit leaves room for the base64 expansion of MaxAudioBytes plus
// the other JSON fields.
var voiceBodyLimit = int64(base64.StdEncoding.EncodedLen(MaxAudioBytes) + 64<<10)

// EventPublisher records domain events for asynchronous delivery.
type EventPublisher interface {
	Publish(ctx context.Context, correlationID string, evt events.ComplaintEvent) error
}

// EvidenceArchiver stores accepted photos and returns their key.
type EvidenceArchiver interface {
	ArchiveEvidence(ctx context.Context, session *intake.Session, img intake.Image) (string, error)
}

// IntakeHandler exposes the step-by-step complaint intake flow.
type IntakeHandler struct {
	pipeline   *intake.Pipeline
	drafts     drafts.Store
	complaints complaints.Repository
	events     EventPublisher
	archive    EvidenceArchiver
	logger     *logging.Logger
}

// IntakeDeps wires an IntakeHandler. Events and Archive are optional.
type IntakeDeps struct {
	Pipeline   *intake.Pipeline
	Drafts     drafts.Store
	Complaints complaints.Repository
	Events     EventPublisher
	Archive    EvidenceArchiver
	Logger     *logging.Logger
}

// NewIntakeHandler creates an intake handler.
func NewIntakeHandler(deps IntakeDeps) *IntakeHandler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &IntakeHandler{
		pipeline:   deps.Pipeline,
		drafts:     deps.Drafts,
		complaints: deps.Complaints,
		events:     deps.Events,
		archive:    deps.Archive,
		logger:     logger.WithComponent("intake_http"),
	}
}

type locationBody struct {
	Area string `json:"area"`
	City string `json:"city"`
}

func (l *locationBody) toLocation() intake.Location {
	if l == nil {
		return intake.Location{}
	}
	return intake.Location{Area: strings.TrimSpace(l.Area), City: strings.TrimSpace(l.City)}
}

type createSessionRequest struct {
	Language string        `json:"language"`
	Location *locationBody `json:"location"`
	UserID   string        `json:"user_id"`
}

// CreateSession handles POST /complaint/sessions
func (h *IntakeHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := respond.Decode(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s := intake.NewSession(req.Language, req.Location.toLocation())
	s.UserID = req.UserID
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		s.UserID = id
	}
	if err := h.drafts.Save(r.Context(), s); err != nil {
		h.logger.Error("failed to save draft", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to open session")
		return
	}
	h.logger.Info("intake session opened", "session_id", s.ID, "language", s.Language)
	respond.JSON(w, http.StatusCreated, map[string]any{
		"session_id": s.ID,
		"language":   s.Language,
		"state":      s.State,
	})
}

// GetSession handles GET /complaint/sessions/{sessionID}
func (h *IntakeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, s)
}

type voiceRequest struct {
	Language     string        `json:"language"`
	Location     *locationBody `json:"location"`
	AudioBase64  string        `json:"audio_base64"`
	Encoding     string        `json:"encoding"`
	SampleRateHz int           `json:"sample_rate_hz"`
	Transcript   string        `json:"transcript"`
}

// CaptureVoice handles POST /complaint/sessions/{sessionID}/voice. The body
// carries either base64 audio or a transcript recognised on the device.
func (h *IntakeHandler) CaptureVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := respond.DecodeLimit(w, r, &req, voiceBodyLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "audio must be at most 10 MiB")
			return
		}
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "audio_base64 is not valid base64")
		return
	}
	if len(audio) > MaxAudioBytes {
		respond.Error(w, http.StatusRequestEntityTooLarge, "audio must be at most 10 MiB")
		return
	}

	h.withDraft(w, r, func(s *intake.Session) bool {
		if loc := req.Location.toLocation(); loc.Area != "" {
			s.Location = loc
		}
		if strings.TrimSpace(req.Language) != "" {
			s.Language = req.Language
		}

		var err error
		if strings.TrimSpace(req.Transcript) != "" {
			_, err = h.pipeline.CaptureTranscript(r.Context(), s, req.Transcript)
		} else {
			_, err = h.pipeline.CaptureVoice(r.Context(), s, intake.SpeechInput{
				Language:     s.Language,
				Audio:        audio,
				Encoding:     intake.AudioEncoding(strings.ToUpper(strings.TrimSpace(req.Encoding))),
				SampleRateHz: req.SampleRateHz,
			})
		}

		var terr *intake.TranscriptionError
		var mismatch *intake.MismatchError
		switch {
		case errors.Is(err, intake.ErrLocationRequired):
			respond.JSON(w, http.StatusBadRequest, failure(err.Error()))
			return false
		case errors.As(err, &terr):
			respond.JSON(w, http.StatusUnprocessableEntity, map[string]any{
				"success": false,
				"error":   terr.Error(),
				"reason":  terr.Reason,
			})
			return false
		case errors.As(err, &mismatch):
			respond.JSON(w, http.StatusConflict, mismatchBody(mismatch, nil))
			return true
		case err != nil:
			h.logger.Error("voice capture failed", "session_id", s.ID, "error", err)
			respond.Error(w, http.StatusInternalServerError, "voice capture failed")
			return false
		}

		respond.JSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"raw_text":        s.RawTranscript,
			"translated_text": s.NormalizedText,
			"issue_type":      s.VoiceIssue,
			"photo_required":  intake.RequiresEvidence(s.VoiceIssue),
		})
		return true
	})
}

// AttachImage handles POST /complaint/sessions/{sessionID}/image with a
// multipart "image" field.
func (h *IntakeHandler) AttachImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		respond.Error(w, http.StatusBadRequest, "image upload required")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "image upload required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil || len(data) == 0 || len(data) > MaxImageBytes {
		respond.Error(w, http.StatusBadRequest, "image must be between 1 byte and 10 MiB")
		return
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	img := intake.Image{Data: data, MIMEType: mime}

	h.withDraft(w, r, func(s *intake.Session) bool {
		verdict, err := h.pipeline.AttachImage(r.Context(), s, img)
		if verdict.Accepted() {
			s.EvidenceKey = h.archiveEvidence(r.Context(), s, img)
		} else {
			s.EvidenceKey = ""
		}

		var mismatch *intake.MismatchError
		if errors.As(err, &mismatch) {
			respond.JSON(w, http.StatusConflict, mismatchBody(mismatch, &verdict))
			return true
		}
		respond.JSON(w, http.StatusOK, verdictBody(verdict))
		return true
	})
}

func (h *IntakeHandler) archiveEvidence(ctx context.Context, s *intake.Session, img intake.Image) string {
	if h.archive == nil {
		return ""
	}
	key, err := h.archive.ArchiveEvidence(ctx, s, img)
	if err != nil {
		h.logger.Warn("failed to archive evidence", "session_id", s.ID, "error", err)
		return ""
	}
	return key
}

// Finalize handles POST /complaint/sessions/{sessionID}/finalize
func (h *IntakeHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(s *intake.Session) bool {
		if strings.TrimSpace(s.UserID) == "" {
			respond.JSON(w, http.StatusBadRequest, failure("User not logged in"))
			return false
		}

		gen, err := h.pipeline.Finalize(r.Context(), s)
		var mismatch *intake.MismatchError
		switch {
		case errors.As(err, &mismatch):
			respond.JSON(w, http.StatusConflict, mismatchBody(mismatch, s.Verdict))
			return false
		case errors.Is(err, intake.ErrPhotoRequired):
			respond.JSON(w, http.StatusUnprocessableEntity, failure(err.Error()))
			return false
		case errors.Is(err, intake.ErrAlreadyGenerated):
			respond.JSON(w, http.StatusConflict, failure(err.Error()))
			return false
		case errors.Is(err, intake.ErrLocationRequired), errors.Is(err, intake.ErrNoVoice):
			respond.JSON(w, http.StatusBadRequest, failure(err.Error()))
			return false
		case err != nil:
			h.logger.Error("finalize failed", "session_id", s.ID, "error", err)
			respond.Error(w, http.StatusInternalServerError, "finalize failed")
			return false
		}

		c, err := h.complaints.Create(r.Context(), &complaints.CreateComplaintRequest{
			UserID:      s.UserID,
			Title:       complaints.Title(s.Payload.IssueType.String(), s.Payload.Area),
			Description: gen.Text,
			Category:    s.Payload.IssueType.String(),
			Area:        s.Payload.Area,
			Urgency:     string(s.Payload.Urgency),
		})
		if err != nil {
			h.logger.Error("failed to store complaint", "session_id", s.ID, "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to store complaint")
			return false
		}

		h.publish(r.Context(), s.ID, events.ComplaintFinalizedV1{
			ComplaintID:    c.ID,
			SessionID:      s.ID,
			UserID:         s.UserID,
			IssueType:      s.Payload.IssueType.String(),
			Area:           s.Payload.Area,
			City:           s.Payload.City,
			Urgency:        string(s.Payload.Urgency),
			ImageStatus:    s.Payload.ImageStatus,
			GenerationKind: string(gen.Kind),
			EvidenceKey:    s.EvidenceKey,
			FinalizedAt:    time.Now().UTC(),
		})

		// The letter now lives on the complaint; the draft is no longer needed.
		if err := h.drafts.Delete(r.Context(), s.ID); err != nil {
			h.logger.Warn("failed to delete draft", "session_id", s.ID, "error", err)
		}

		respond.JSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"complaint":       gen.Text,
			"complaint_id":    c.ID,
			"generation_kind": gen.Kind,
			"issue_type":      s.Payload.IssueType,
			"urgency":         s.Payload.Urgency,
			"city":            s.Payload.City,
		})
		return false
	})
}

func (h *IntakeHandler) publish(ctx context.Context, correlationID string, evt events.ComplaintEvent) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(ctx, correlationID, evt); err != nil {
		h.logger.Error("failed to publish event", "type", evt.EventType(), "complaint_id", evt.ComplaintRef(), "error", err)
	}
}

// withDraft loads the session under its lock and runs fn. When fn returns
// true the session is saved back.
func (h *IntakeHandler) withDraft(w http.ResponseWriter, r *http.Request, fn func(s *intake.Session) bool) {
	id := chi.URLParam(r, "sessionID")
	unlock, err := h.drafts.Lock(r.Context(), id)
	if err != nil {
		if errors.Is(err, drafts.ErrBusy) {
			respond.Error(w, http.StatusConflict, "session busy")
			return
		}
		h.logger.Error("failed to lock draft", "session_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer unlock()

	s, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if fn(s) {
		if err := h.drafts.Save(r.Context(), s); err != nil {
			h.logger.Error("failed to save draft", "session_id", s.ID, "error", err)
		}
	}
}

func (h *IntakeHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*intake.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	s, err := h.drafts.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, drafts.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		h.logger.Error("failed to load draft", "session_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok && s.UserID != userID {
		respond.Error(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func failure(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}

func mismatchBody(m *intake.MismatchError, verdict *intake.ImageVerdict) map[string]any {
	body := map[string]any{
		"success":     false,
		"mismatch":    true,
		"voice_issue": m.VoiceIssue,
		"image_issue": m.ImageIssue,
		"error":       m.Error(),
	}
	if verdict != nil {
		body["verdict"] = verdict
	}
	return body
}

func verdictBody(v intake.ImageVerdict) map[string]any {
	switch v.Status {
	case intake.VerdictAccepted:
		return map[string]any{
			"success":    true,
			"status":     v.Status,
			"issue_type": v.IssueType,
			"urgency":    v.Urgency,
			"confidence": v.Confidence,
		}
	case intake.VerdictRejected:
		return map[string]any{
			"success":    false,
			"status":     v.Status,
			"confidence": v.Confidence,
		}
	default:
		return map[string]any{
			"success": false,
			"status":  v.Status,
			"message": v.Message,
		}
	}
}
