package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/nagrik-sahayak/internal/complaints"
	"github.com/wolfman30/nagrik-sahayak/internal/events"
	"github.com/wolfman30/nagrik-sahayak/internal/notify"
	"github.com/wolfman30/nagrik-sahayak/internal/report"
)

type capturingSender struct {
	sent []notify.EmailMessage
	err  error
}

func (s *capturingSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type complaintsFixture struct {
	router    chi.Router
	repo      *complaints.InMemoryRepository
	sender    *capturingSender
	publisher *recordingPublisher
}

func newComplaintsFixture(t *testing.T, sender notify.EmailSender) *complaintsFixture {
	t.Helper()
	f := &complaintsFixture{
		repo:      complaints.NewInMemoryRepository(),
		publisher: &recordingPublisher{},
	}
	if cs, ok := sender.(*capturingSender); ok {
		f.sender = cs
	}
	lookup := func(ctx context.Context, userID string) (string, bool, error) {
		if userID == "user-1" {
			return "Asha", true, nil
		}
		return "", false, nil
	}
	submitter := notify.NewSubmitter(sender, notify.SubmitterConfig{To: "complaints@city.gov.in"}, nil)
	h := NewComplaintsHandler(f.repo, complaints.NewRepositoryDashboard(f.repo, lookup), submitter, f.publisher, nil)

	r := chi.NewRouter()
	r.Post("/complaint/submit-email", h.SubmitEmail)
	r.Post("/complaint/download-pdf", h.DownloadPDF)
	r.Get("/complaint/history/{userID}", h.History)
	r.Get("/dashboard/{userID}", h.Dashboard)
	r.Put("/admin/complaints/{complaintID}/status", h.SetStatus)
	f.router = r
	return f
}

func (f *complaintsFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func (f *complaintsFixture) seed(t *testing.T, issue string) *complaints.Complaint {
	t.Helper()
	c, err := f.repo.Create(context.Background(), &complaints.CreateComplaintRequest{
		UserID:      "user-1",
		Title:       complaints.Title(issue, "Ward 7"),
		Description: "Respected Sir, " + issue,
		Category:    issue,
	})
	require.NoError(t, err)
	return c
}

func TestSubmitEmailAttachesReference(t *testing.T) {
	sender := &capturingSender{}
	f := newComplaintsFixture(t, sender)
	c := f.seed(t, "Pothole")

	rec := f.do(t, http.MethodPost, "/complaint/submit-email", map[string]string{
		"description":  "Respected Sir, there is a pothole",
		"city":         "Pune",
		"urgency":      "High",
		"complaint_id": c.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	ref, _ := body["reference_id"].(string)
	assert.Regexp(t, `^NS-[0-9A-F]{8}$`, ref)
	assert.Equal(t, "success", body["status"])

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Civic Issue Report ("+ref+")", sender.sent[0].Subject)

	stored, err := f.repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, complaints.StatusSubmitted, stored.Status)
	assert.Equal(t, ref, stored.ReferenceID)

	require.Len(t, f.publisher.events, 1)
	evt, ok := f.publisher.events[0].(events.ComplaintSubmittedV1)
	require.True(t, ok)
	assert.Equal(t, ref, evt.ReferenceID)
	assert.Equal(t, []string{c.ID}, f.publisher.correlations)
}

func TestSubmitEmailErrors(t *testing.T) {
	t.Run("missing description", func(t *testing.T) {
		f := newComplaintsFixture(t, &capturingSender{})
		rec := f.do(t, http.MethodPost, "/complaint/submit-email", map[string]string{"city": "Pune"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Report text missing")
	})
	t.Run("not configured", func(t *testing.T) {
		f := newComplaintsFixture(t, nil)
		rec := f.do(t, http.MethodPost, "/complaint/submit-email", map[string]string{"description": "x"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
	t.Run("provider failure", func(t *testing.T) {
		f := newComplaintsFixture(t, &capturingSender{err: errors.New("smtp down")})
		c := f.seed(t, "Garbage")
		rec := f.do(t, http.MethodPost, "/complaint/submit-email", map[string]string{"description": "x", "complaint_id": c.ID})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		stored, err := f.repo.GetByID(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, complaints.StatusPending, stored.Status)
		assert.Empty(t, f.publisher.events)
	})
	t.Run("unknown complaint", func(t *testing.T) {
		f := newComplaintsFixture(t, &capturingSender{})
		rec := f.do(t, http.MethodPost, "/complaint/submit-email", map[string]string{"description": "x", "complaint_id": "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDownloadPDF(t *testing.T) {
	f := newComplaintsFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/complaint/download-pdf", map[string]string{"complaint": "Line one\nLine two"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+report.Filename+`"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = f.do(t, http.MethodPost, "/complaint/download-pdf", map[string]string{"complaint": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Complaint text missing")
}

func TestHistoryAndDashboard(t *testing.T) {
	f := newComplaintsFixture(t, nil)
	for _, issue := range []string{"Pothole", "Garbage", "Drainage", "Street Light"} {
		f.seed(t, issue)
	}

	rec := f.do(t, http.MethodGet, "/complaint/history/user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []complaints.Complaint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 4)

	rec = f.do(t, http.MethodGet, "/complaint/history/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/dashboard/user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var d complaints.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "Asha", d.UserName)
	assert.Equal(t, int64(4), d.Stats.Total)
	assert.Len(t, d.Complaints, complaints.DashboardLimit)

	rec = f.do(t, http.MethodGet, "/dashboard/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"User not found"}`, rec.Body.String())
}

func TestSetStatus(t *testing.T) {
	f := newComplaintsFixture(t, nil)
	c := f.seed(t, "Pothole")

	rec := f.do(t, http.MethodPut, "/admin/complaints/"+c.ID+"/status", map[string]string{"status": "Resolved"})
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := f.repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, complaints.StatusResolved, stored.Status)

	rec = f.do(t, http.MethodPut, "/admin/complaints/"+c.ID+"/status", map[string]string{"status": "Closed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/admin/complaints/missing/status", map[string]string{"status": "Resolved"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
