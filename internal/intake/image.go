package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var imageTracer = otel.Tracer("nagrik/intake/image")

// ConfidenceThreshold is the minimum assessed confidence for an image to count
// as evidence.
const ConfidenceThreshold = 70

// ImageAnalysisFailed is the diagnostic carried by error verdicts.
const ImageAnalysisFailed = "Image analysis failed"

// ImageAssessmentPrompt asks for the four-field JSON verdict in a single reply.
const ImageAssessmentPrompt = `You are an AI system for Indian Smart City civic issue detection.

Analyze the image and return ALL of the following in ONE response:

1. Is this a real civic issue?
2. What is the issue type?
   - Pothole
   - Garbage
   - Street Light
   - Other
3. How urgent is it? (Low / Medium / High)
4. Confidence score (0-100)

IMPORTANT RULES:
- Even small potholes or cracks are valid civic issues.
- Do NOT reject clear road damage.
- If image is unclear, lower confidence instead of rejecting.

Respond ONLY in valid JSON:
{
  "is_issue": true or false,
  "issue_type": "Pothole | Garbage | Street Light | Other",
  "urgency": "Low | Medium | High",
  "confidence": number
}`

// VerdictStatus is the outcome of image analysis.
type VerdictStatus string

const (
	VerdictAccepted VerdictStatus = "accepted"
	VerdictRejected VerdictStatus = "rejected"
	VerdictError    VerdictStatus = "error"
)

// ImageVerdict is the result of analysing one image. IssueType and Urgency are
// only set when Status is accepted.
type ImageVerdict struct {
	Status     VerdictStatus `json:"status"`
	IssueType  IssueType     `json:"issue_type,omitempty"`
	Urgency    Urgency       `json:"urgency,omitempty"`
	Confidence int           `json:"confidence"`
	Message    string        `json:"message,omitempty"`
}

// Accepted reports whether the verdict counts as photographic evidence.
func (v *ImageVerdict) Accepted() bool {
	return v != nil && v.Status == VerdictAccepted
}

// Assessment is the decoded model reply.
type Assessment struct {
	IsIssue    bool     `json:"is_issue"`
	IssueType  string   `json:"issue_type"`
	Urgency    string   `json:"urgency"`
	Confidence *float64 `json:"confidence"`
}

// ParseAssessment strips Markdown code fences from a model reply and decodes the JSON.
func ParseAssessment(raw string) (Assessment, error) {
	var a Assessment
	text := StripCodeFences(raw)
	if text == "" {
		return a, errors.New("intake: empty assessment")
	}
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return a, fmt.Errorf("intake: decode assessment: %w", err)
	}
	return a, nil
}

// StripCodeFences removes ``` and ```json fences that models wrap replies in.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// Verdict applies the confidence gate to a decoded assessment.
func (a Assessment) Verdict() ImageVerdict {
	raw := 0.0
	if a.Confidence != nil {
		raw = *a.Confidence
	}
	confidence := clampConfidence(raw)
	if !a.IsIssue || raw < ConfidenceThreshold {
		return ImageVerdict{Status: VerdictRejected, Confidence: confidence}
	}
	issue := ParseIssueType(a.IssueType)
	if issue == "" {
		issue = IssueOther
	}
	return ImageVerdict{
		Status:     VerdictAccepted,
		IssueType:  issue,
		Urgency:    ParseUrgency(a.Urgency),
		Confidence: confidence,
	}
}

func clampConfidence(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Floor(v))
}

// ImageAnalyzer turns a photo into an ImageVerdict. It never returns an error;
// adapter and parse failures become error verdicts.
type ImageAnalyzer struct {
	assessor ImageAssessor
	logger   *logging.Logger
}

// NewImageAnalyzer wraps an assessor.
func NewImageAnalyzer(assessor ImageAssessor, logger *logging.Logger) *ImageAnalyzer {
	if logger == nil {
		logger = logging.Default()
	}
	return &ImageAnalyzer{assessor: assessor, logger: logger}
}

// Analyze performs one assessment call.
func (a *ImageAnalyzer) Analyze(ctx context.Context, img Image) ImageVerdict {
	ctx, span := imageTracer.Start(ctx, "intake.image.analyze")
	defer span.End()

	failed := ImageVerdict{Status: VerdictError, Message: ImageAnalysisFailed}
	if a == nil || a.assessor == nil {
		span.SetStatus(codes.Error, "no image assessor configured")
		return failed
	}
	if len(img.Data) == 0 {
		span.SetStatus(codes.Error, "empty image")
		return failed
	}

	raw, err := a.assessor.AssessImage(ctx, img)
	if err != nil {
		a.logger.Warn("image assessment failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment failed")
		return failed
	}
	assessment, err := ParseAssessment(raw)
	if err != nil {
		a.logger.Warn("image assessment unparseable", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable assessment")
		return failed
	}

	verdict := assessment.Verdict()
	span.SetAttributes(
		attribute.String("intake.image.status", string(verdict.Status)),
		attribute.String("intake.image.issue_type", string(verdict.IssueType)),
		attribute.Int("intake.image.confidence", verdict.Confidence),
	)
	return verdict
}
