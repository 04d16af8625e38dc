package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/nagrik-sahayak/internal/complaints"
	"github.com/wolfman30/nagrik-sahayak/internal/drafts"
	"github.com/wolfman30/nagrik-sahayak/internal/events"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

type scriptedAssessor struct {
	mu      sync.Mutex
	replies []string
}

func (a *scriptedAssessor) AssessImage(ctx context.Context, img intake.Image) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	reply := a.replies[0]
	if len(a.replies) > 1 {
		a.replies = a.replies[1:]
	}
	return reply, nil
}

type letterWriter struct{}

func (letterWriter) WriteComplaint(ctx context.Context, p intake.ComplaintPayload) (string, error) {
	return "To the Municipal Commissioner, " + p.IssueType.String() + " at " + p.Area, nil
}

type recordingPublisher struct {
	mu           sync.Mutex
	events       []events.ComplaintEvent
	correlations []string
}

func (p *recordingPublisher) Publish(ctx context.Context, correlationID string, evt events.ComplaintEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	p.correlations = append(p.correlations, correlationID)
	return nil
}

type countingTranscriber struct {
	calls    int
	audioLen int
	text     string
}

func (c *countingTranscriber) Transcribe(ctx context.Context, in intake.SpeechInput) (string, error) {
	c.calls++
	c.audioLen = len(in.Audio)
	return c.text, nil
}

type fakeArchiver struct {
	calls int
}

func (a *fakeArchiver) ArchiveEvidence(ctx context.Context, s *intake.Session, img intake.Image) (string, error) {
	a.calls++
	return "evidence/v1/by-date/2025/01/01/" + s.ID + ".jpg", nil
}

type intakeFixture struct {
	router     chi.Router
	drafts     *drafts.MemoryStore
	complaints *complaints.InMemoryRepository
	publisher  *recordingPublisher
	archive    *fakeArchiver
}

func newIntakeFixture(t *testing.T, replies ...string) *intakeFixture {
	t.Helper()
	return buildIntakeFixture(t, nil, replies...)
}

func buildIntakeFixture(t *testing.T, transcriber intake.Transcriber, replies ...string) *intakeFixture {
	t.Helper()
	f := &intakeFixture{
		drafts:     drafts.NewMemoryStore(time.Hour),
		complaints: complaints.NewInMemoryRepository(),
		publisher:  &recordingPublisher{},
		archive:    &fakeArchiver{},
	}
	var assessor intake.ImageAssessor
	if len(replies) > 0 {
		assessor = &scriptedAssessor{replies: replies}
	}
	h := NewIntakeHandler(IntakeDeps{
		Pipeline:   intake.NewPipeline(intake.PipelineConfig{Transcriber: transcriber, Assessor: assessor, Writer: letterWriter{}}),
		Drafts:     f.drafts,
		Complaints: f.complaints,
		Events:     f.publisher,
		Archive:    f.archive,
	})
	r := chi.NewRouter()
	r.Post("/complaint/sessions", h.CreateSession)
	r.Get("/complaint/sessions/{sessionID}", h.GetSession)
	r.Post("/complaint/sessions/{sessionID}/voice", h.CaptureVoice)
	r.Post("/complaint/sessions/{sessionID}/image", h.AttachImage)
	r.Post("/complaint/sessions/{sessionID}/finalize", h.Finalize)
	f.router = r
	return f
}

func (f *intakeFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec, decodeBody(t, rec)
}

func (f *intakeFixture) upload(t *testing.T, sessionID string, data []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/complaint/sessions/"+sessionID+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec, decodeBody(t, rec)
}

func (f *intakeFixture) open(t *testing.T, area string) string {
	t.Helper()
	rec, body := f.do(t, http.MethodPost, "/complaint/sessions", map[string]any{
		"language": "en-IN",
		"location": map[string]string{"area": area, "city": "Pune"},
		"user_id":  "user-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return out
}

const (
	potholeReply = `{"is_issue": true, "issue_type": "Pothole", "urgency": "High", "confidence": 92}`
	garbageReply = "```json\n{\"is_issue\": true, \"issue_type\": \"Garbage\", \"urgency\": \"Medium\", \"confidence\": 88}\n```"
)

func TestIntakeFlowEndToEnd(t *testing.T) {
	f := newIntakeFixture(t, garbageReply, potholeReply)
	id := f.open(t, "Ward 7")
	base := "/complaint/sessions/" + id

	rec, body := f.do(t, http.MethodPost, base+"/voice", map[string]string{"transcript": "There is a big pothole on the main road"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pothole", body["issue_type"])
	assert.Equal(t, true, body["photo_required"])

	rec, body = f.do(t, http.MethodPost, base+"/finalize", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "photo required", body["error"])

	rec, body = f.upload(t, id, jpegBytes)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, true, body["mismatch"])
	assert.Equal(t, "Pothole", body["voice_issue"])
	assert.Equal(t, "Garbage", body["image_issue"])

	rec, body = f.upload(t, id, jpegBytes)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "High", body["urgency"])
	assert.Equal(t, 2, f.archive.calls)

	rec, body = f.do(t, http.MethodPost, base+"/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "generated", body["generation_kind"])
	assert.Equal(t, "To the Municipal Commissioner, Pothole at Ward 7", body["complaint"])

	stored, err := f.complaints.ListByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Pothole issue in Ward 7", stored[0].Title)
	assert.Equal(t, "High", stored[0].Urgency)
	assert.Equal(t, body["complaint_id"], stored[0].ID)

	require.Len(t, f.publisher.events, 1)
	evt, ok := f.publisher.events[0].(events.ComplaintFinalizedV1)
	require.True(t, ok)
	assert.Equal(t, stored[0].ID, evt.ComplaintID)
	assert.Equal(t, intake.ImageStatusApproved, evt.ImageStatus)
	assert.Contains(t, evt.EvidenceKey, id)
	assert.Equal(t, []string{id}, f.publisher.correlations)

	rec, _ = f.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntakeStreetLightNeedsNoPhoto(t *testing.T) {
	f := newIntakeFixture(t)
	id := f.open(t, "Sector 4")

	rec, _ := f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/voice", map[string]string{"transcript": "the street light is broken"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Normal", body["urgency"])
}

func TestIntakeVoiceErrors(t *testing.T) {
	f := newIntakeFixture(t)

	rec, body := f.do(t, http.MethodPost, "/complaint/sessions", map[string]any{"user_id": "user-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := body["session_id"].(string)

	rec, body = f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/voice", map[string]string{"transcript": "garbage everywhere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "location required", body["error"])

	rec, body = f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/voice", map[string]any{
		"location":     map[string]string{"area": "Ward 2"},
		"audio_base64": "AAEC",
		"encoding":     "webm_opus",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "service_unavailable", body["reason"])
	assert.Equal(t, "Speech service not available", body["error"])

	rec, _ = f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/voice", map[string]string{"audio_base64": "***"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/complaint/sessions/missing/voice", map[string]string{"transcript": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntakeImageWithoutAssessor(t *testing.T) {
	f := newIntakeFixture(t)
	id := f.open(t, "Ward 9")

	rec, body := f.upload(t, id, jpegBytes)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, intake.ImageAnalysisFailed, body["message"])
	assert.Zero(t, f.archive.calls)
}

func TestIntakeFinalizeRequiresUser(t *testing.T) {
	f := newIntakeFixture(t)
	rec, body := f.do(t, http.MethodPost, "/complaint/sessions", map[string]any{
		"location": map[string]string{"area": "Ward 1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := body["session_id"].(string)

	rec, _ = f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/voice", map[string]string{"transcript": "drain overflowing"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/finalize", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User not logged in", body["error"])
}

func TestIntakeBusySession(t *testing.T) {
	f := newIntakeFixture(t)
	id := f.open(t, "Ward 3")

	unlock, err := f.drafts.Lock(context.Background(), id)
	require.NoError(t, err)
	defer unlock()

	rec, body := f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/finalize", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "session busy", body["detail"])
}

func TestIntakeVoiceAcceptsLongRecording(t *testing.T) {
	tr := &countingTranscriber{text: "street light not working near the school"}
	f := buildIntakeFixture(t, tr)
	id := f.open(t, "Ward 5")

	// 30 seconds of 16 kHz LINEAR16 mono.
	audio := make([]byte, 30*16000*2)
	rec, body := f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/voice", map[string]any{
		"audio_base64":   base64.StdEncoding.EncodeToString(audio),
		"encoding":       "LINEAR16",
		"sample_rate_hz": 16000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Street Light", body["issue_type"])
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, len(audio), tr.audioLen)
}

func TestIntakeVoiceRejectsOversizedAudio(t *testing.T) {
	tr := &countingTranscriber{text: "pothole"}
	f := buildIntakeFixture(t, tr)
	id := f.open(t, "Ward 5")

	audio := make([]byte, MaxAudioBytes+1)
	rec, _ := f.do(t, http.MethodPost, "/complaint/sessions/"+id+"/voice", map[string]any{
		"audio_base64": base64.StdEncoding.EncodeToString(audio),
		"encoding":     "LINEAR16",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, tr.calls)
}
