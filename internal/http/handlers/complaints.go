package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/nagrik-sahayak/internal/complaints"
	"github.com/wolfman30/nagrik-sahayak/internal/events"
	"github.com/wolfman30/nagrik-sahayak/internal/http/middleware"
	"github.com/wolfman30/nagrik-sahayak/internal/http/respond"
	"github.com/wolfman30/nagrik-sahayak/internal/notify"
	"github.com/wolfman30/nagrik-sahayak/internal/report"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// ComplaintsHandler serves finished complaints: submission, export, history,
// and the citizen dashboard.
type ComplaintsHandler struct {
	repo      complaints.Repository
	dashboard complaints.DashboardReader
	submitter *notify.Submitter
	events    EventPublisher
	logger    *logging.Logger
}

// NewComplaintsHandler creates a complaints handler. publisher may be nil.
func NewComplaintsHandler(repo complaints.Repository, dashboard complaints.DashboardReader, submitter *notify.Submitter, publisher EventPublisher, logger *logging.Logger) *ComplaintsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ComplaintsHandler{
		repo:      repo,
		dashboard: dashboard,
		submitter: submitter,
		events:    publisher,
		logger:    logger.WithComponent("complaints_http"),
	}
}

type submitEmailRequest struct {
	Description string `json:"description"`
	City        string `json:"city"`
	Urgency     string `json:"urgency"`
	ComplaintID string `json:"complaint_id"`
}

// SubmitEmail handles POST /complaint/submit-email
func (h *ComplaintsHandler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	var req submitEmailRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ComplaintID != "" {
		c, err := h.repo.GetByID(r.Context(), req.ComplaintID)
		if err != nil || !ownedBy(r, c) {
			respond.Error(w, http.StatusNotFound, "Complaint not found")
			return
		}
	}

	receipt, err := h.submitter.Submit(r.Context(), notify.Report{
		Description: req.Description,
		City:        req.City,
		Urgency:     req.Urgency,
	})
	switch {
	case errors.Is(err, notify.ErrMissingReport):
		respond.Error(w, http.StatusBadRequest, "Report text missing")
		return
	case errors.Is(err, notify.ErrEmailNotConfigured):
		respond.Error(w, http.StatusServiceUnavailable, "Email submission is not configured")
		return
	case err != nil:
		h.logger.Error("email submission failed", "error", err)
		respond.JSON(w, http.StatusBadGateway, failure("Failed to send email"))
		return
	}

	if req.ComplaintID != "" {
		if err := h.repo.AttachSubmission(r.Context(), req.ComplaintID, receipt.ReferenceID); err != nil {
			h.logger.Error("failed to attach submission", "complaint_id", req.ComplaintID,
				"reference_id", receipt.ReferenceID, "error", err)
		} else if h.events != nil {
			evt := events.ComplaintSubmittedV1{
				ComplaintID: req.ComplaintID,
				ReferenceID: receipt.ReferenceID,
				City:        req.City,
				Urgency:     req.Urgency,
				SubmittedAt: receipt.SentAt.UTC(),
			}
			if err := h.events.Publish(r.Context(), req.ComplaintID, evt); err != nil {
				h.logger.Error("failed to publish event", "type", evt.EventType(), "error", err)
			}
		}
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"status":       "success",
		"reference_id": receipt.ReferenceID,
	})
}

type downloadPDFRequest struct {
	Complaint string `json:"complaint"`
}

// DownloadPDF handles POST /complaint/download-pdf
func (h *ComplaintsHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	var req downloadPDFRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	data, err := report.RenderPDF(req.Complaint)
	if errors.Is(err, report.ErrEmptyComplaint) {
		respond.Error(w, http.StatusBadRequest, "Complaint text missing")
		return
	}
	if err != nil {
		h.logger.Error("pdf render failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Failed to create PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// History handles GET /complaint/history/{userID}
func (h *ComplaintsHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	list, err := h.repo.ListByUser(r.Context(), userID, 0)
	if err != nil {
		h.logger.Error("history lookup failed", "user_id", userID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// Dashboard handles GET /dashboard/{userID}
func (h *ComplaintsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	d, err := h.dashboard.Dashboard(r.Context(), userID)
	if errors.Is(err, complaints.ErrOwnerNotFound) {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("dashboard lookup failed", "user_id", userID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles PUT /admin/complaints/{complaintID}/status for municipal staff.
func (h *ComplaintsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "complaintID")
	var req statusRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	err := h.repo.SetStatus(r.Context(), id, strings.TrimSpace(req.Status))
	switch {
	case errors.Is(err, complaints.ErrInvalidStatus):
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, complaints.ErrComplaintNotFound):
		respond.Error(w, http.StatusNotFound, "Complaint not found")
		return
	case err != nil:
		h.logger.Error("status update failed", "complaint_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.logger.Info("complaint status changed", "complaint_id", id, "status", req.Status)
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
}

func ownedBy(r *http.Request, c *complaints.Complaint) bool {
	userID, ok := middleware.UserIDFromContext(r.Context())
	return !ok || c.UserID == userID
}
