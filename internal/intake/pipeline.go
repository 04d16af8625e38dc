package intake

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/nagrik-sahayak/internal/observability/metrics"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var pipelineTracer = otel.Tracer("nagrik/intake/pipeline")

// PipelineConfig wires the pipeline's collaborators. Any capability may be nil:
// a nil transcriber fails voice capture as service unavailable, a nil assessor
// yields error verdicts, and a nil writer always produces the fallback letter.
type PipelineConfig struct {
	Transcriber Transcriber
	Assessor    ImageAssessor
	Writer      ComplaintWriter
	Logger      *logging.Logger
	Metrics     *metrics.IntakeMetrics
}

// Pipeline coordinates the intake stages. It holds no per-session state and is
// safe for concurrent use.
type Pipeline struct {
	transcriber Transcriber
	analyzer    *ImageAnalyzer
	writer      ComplaintWriter
	logger      *logging.Logger
	metrics     *metrics.IntakeMetrics
}

// NewPipeline builds a pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("intake")
	return &Pipeline{
		transcriber: cfg.Transcriber,
		analyzer:    NewImageAnalyzer(cfg.Assessor, logger),
		writer:      cfg.Writer,
		logger:      logger,
		metrics:     cfg.Metrics,
	}
}

// CaptureVoice transcribes one utterance, normalizes it, and classifies the
// issue. When an image verdict is already attached the two are compared and a
// *MismatchError is returned on disagreement; the transcript is kept either way.
func (p *Pipeline) CaptureVoice(ctx context.Context, s *Session, in SpeechInput) (Consistency, error) {
	ctx, span := pipelineTracer.Start(ctx, "intake.voice")
	defer span.End()
	span.SetAttributes(attribute.String("intake.session_id", s.ID))

	if !s.HasLocation() {
		p.observe(StageTranscription, "location_required", time.Now())
		return Consistency{}, ErrLocationRequired
	}
	if strings.TrimSpace(in.Language) == "" {
		in.Language = s.Language
	}

	started := time.Now()
	text, err := p.transcribe(ctx, in)
	if err != nil {
		var terr *TranscriptionError
		errors.As(err, &terr)
		p.observe(StageTranscription, string(terr.Reason), started)
		p.logger.Warn("transcription failed", "session_id", s.ID, "reason", terr.Reason, "error", terr.Err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(terr.Reason))
		return Consistency{}, terr
	}
	p.observe(StageTranscription, "ok", started)

	return p.recordTranscript(ctx, s, text), s.consistencyErr()
}

// CaptureTranscript records text recognised on the client, skipping the
// transcription adapter. Otherwise it behaves like CaptureVoice.
func (p *Pipeline) CaptureTranscript(ctx context.Context, s *Session, text string) (Consistency, error) {
	if !s.HasLocation() {
		return Consistency{}, ErrLocationRequired
	}
	if strings.TrimSpace(text) == "" {
		return Consistency{}, NewTranscriptionError(TranscriptionUnrecognized, nil)
	}
	ctx, span := pipelineTracer.Start(ctx, "intake.transcript")
	defer span.End()
	return p.recordTranscript(ctx, s, text), s.consistencyErr()
}

func (p *Pipeline) transcribe(ctx context.Context, in SpeechInput) (string, error) {
	if p.transcriber == nil {
		return "", NewTranscriptionError(TranscriptionServiceUnavailable, ErrCapabilityUnavailable)
	}
	text, err := p.transcriber.Transcribe(ctx, in)
	if err != nil {
		var terr *TranscriptionError
		if errors.As(err, &terr) {
			return "", terr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", NewTranscriptionError(TranscriptionTimeout, err)
		}
		return "", NewTranscriptionError(TranscriptionServiceUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", NewTranscriptionError(TranscriptionUnrecognized, nil)
	}
	return text, nil
}

func (p *Pipeline) recordTranscript(ctx context.Context, s *Session, text string) Consistency {
	s.RawTranscript = text
	s.NormalizedText = Normalize(text, s.Language)
	s.VoiceIssue = ExtractIssueType(s.NormalizedText)
	s.advance(StateVoiceCaptured)

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("intake.voice_issue", string(s.VoiceIssue)))
	p.logger.Info("voice captured", "session_id", s.ID, "issue_type", s.VoiceIssue, "language", s.Language)

	return p.checkConsistency(s)
}

// AttachImage analyses a photo and makes its verdict the one in force for the
// session. It may be called before or after voice capture and any number of
// times. The returned error is a *MismatchError when the new verdict disagrees
// with the captured voice issue.
func (p *Pipeline) AttachImage(ctx context.Context, s *Session, img Image) (ImageVerdict, error) {
	ctx, span := pipelineTracer.Start(ctx, "intake.image")
	defer span.End()
	span.SetAttributes(attribute.String("intake.session_id", s.ID))

	started := time.Now()
	verdict := p.analyzer.Analyze(ctx, img)
	p.observe(StageImage, string(verdict.Status), started)
	p.metrics.ObserveVerdict(string(verdict.Status), string(verdict.IssueType))

	s.Verdict = &verdict
	s.Urgency = UrgencyNormal
	if verdict.Accepted() {
		s.Urgency = verdict.Urgency
	}
	s.advance(StateImageEvaluated)
	p.logger.Info("image evaluated", "session_id", s.ID, "status", verdict.Status,
		"issue_type", verdict.IssueType, "confidence", verdict.Confidence)

	if !s.HasVoice() {
		return verdict, nil
	}
	p.checkConsistency(s)
	return verdict, s.consistencyErr()
}

func (p *Pipeline) checkConsistency(s *Session) Consistency {
	started := time.Now()
	result := CheckConsistency(s.VoiceIssue, s.Verdict)
	switch {
	case !result.OK:
		p.observe(StageConsistency, "mismatch", started)
		p.logger.Info("voice and image disagree", "session_id", s.ID,
			"voice_issue", result.VoiceIssue, "image_issue", result.ImageIssue)
	case result.NotApplicable:
		p.observe(StageConsistency, "not_applicable", started)
		s.advance(StateConsistencyChecked)
	default:
		p.observe(StageConsistency, "ok", started)
		s.advance(StateConsistencyChecked)
	}
	return result
}

func (s *Session) consistencyErr() error {
	return CheckConsistency(s.VoiceIssue, s.Verdict).Err()
}

// Finalize runs the evidence gate, assembles the payload, and produces the
// complaint letter with exactly one writer call. Writer failures are masked by
// the fallback letter and never returned.
func (p *Pipeline) Finalize(ctx context.Context, s *Session) (Generation, error) {
	ctx, span := pipelineTracer.Start(ctx, "intake.finalize")
	defer span.End()
	span.SetAttributes(attribute.String("intake.session_id", s.ID))

	switch {
	case s.State == StateGenerationComplete:
		return Generation{}, ErrAlreadyGenerated
	case !s.HasLocation():
		return Generation{}, ErrLocationRequired
	case !s.HasVoice():
		return Generation{}, ErrNoVoice
	}

	if result := p.checkConsistency(s); !result.OK {
		return Generation{}, result.Err()
	}

	started := time.Now()
	if RequiresEvidence(s.VoiceIssue) && !s.Verdict.Accepted() {
		p.observe(StageEvidence, "photo_required", started)
		span.SetStatus(codes.Error, ErrPhotoRequired.Error())
		return Generation{}, ErrPhotoRequired
	}
	p.observe(StageEvidence, "ok", started)
	s.advance(StateEvidenceValidated)

	payload := assemblePayload(s)
	s.Payload = &payload
	s.advance(StatePayloadAssembled)

	gen := p.generate(ctx, payload)
	s.Generation = &gen
	s.advance(StateGenerationComplete)
	span.SetAttributes(attribute.String("intake.generation_kind", string(gen.Kind)))
	return gen, nil
}

func assemblePayload(s *Session) ComplaintPayload {
	payload := ComplaintPayload{
		Area:        strings.TrimSpace(s.Location.Area),
		City:        strings.TrimSpace(s.Location.City),
		IssueType:   s.VoiceIssue,
		Description: s.NormalizedText,
		ImageStatus: ImageStatusNotPresent,
		Urgency:     UrgencyNormal,
	}
	if s.Verdict.Accepted() {
		payload.ImageStatus = ImageStatusApproved
		if s.Verdict.Urgency != "" {
			payload.Urgency = s.Verdict.Urgency
		}
	}
	return payload
}

func (p *Pipeline) generate(ctx context.Context, payload ComplaintPayload) Generation {
	started := time.Now()
	gen := Generation{Kind: GenerationFallback}

	var cause error
	if p.writer == nil {
		cause = ErrCapabilityUnavailable
	} else {
		text, err := p.writer.WriteComplaint(ctx, payload)
		text = StripCodeFences(text)
		switch {
		case err != nil:
			cause = err
		case text == "":
			cause = errEmptyComplaint
		default:
			gen = Generation{Kind: GenerationGenerated, Text: text}
		}
	}

	if gen.Kind == GenerationFallback {
		gen.Cause = &StageError{Stage: StageGeneration, Err: cause}
		gen.Text = FallbackComplaint(payload)
		p.logger.Warn("complaint generation fell back", "error", gen.Cause)
	}
	p.observe(StageGeneration, string(gen.Kind), started)
	p.metrics.ObserveGeneration(string(gen.Kind))
	return gen
}

// RunInput is a complete one-shot report.
type RunInput struct {
	UserID   string
	Language string
	Location Location
	Speech   SpeechInput
	Image    *Image
}

// Run drives a fresh session through every stage. The session is returned even
// on error so callers can inspect how far it got.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*Session, Generation, error) {
	s := NewSession(in.Language, in.Location)
	s.UserID = in.UserID

	if _, err := p.CaptureVoice(ctx, s, in.Speech); err != nil {
		return s, Generation{}, err
	}
	if in.Image != nil {
		if _, err := p.AttachImage(ctx, s, *in.Image); err != nil {
			return s, Generation{}, err
		}
	}
	gen, err := p.Finalize(ctx, s)
	return s, gen, err
}

func (p *Pipeline) observe(stage Stage, outcome string, started time.Time) {
	p.metrics.ObserveStage(string(stage), outcome, time.Since(started).Seconds())
}
