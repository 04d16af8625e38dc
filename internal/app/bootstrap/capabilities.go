package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/nagrik-sahayak/internal/capability"
	"github.com/wolfman30/nagrik-sahayak/internal/capability/bedrock"
	"github.com/wolfman30/nagrik-sahayak/internal/capability/gemini"
	"github.com/wolfman30/nagrik-sahayak/internal/capability/openai"
	"github.com/wolfman30/nagrik-sahayak/internal/capability/speech"
	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
	"github.com/wolfman30/nagrik-sahayak/internal/observability/metrics"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// model is what every vision/text provider adapter implements.
type model interface {
	intake.ImageAssessor
	intake.ComplaintWriter
}

// Capabilities are the guarded adapters handed to intake.NewPipeline. Any
// field may be nil when the capability is disabled.
type Capabilities struct {
	Transcriber intake.Transcriber
	Assessor    intake.ImageAssessor
	Writer      intake.ComplaintWriter

	closers []func() error
}

// PipelineConfig returns an intake.PipelineConfig using c.
func (c *Capabilities) PipelineConfig(logger *logging.Logger, m *metrics.IntakeMetrics) intake.PipelineConfig {
	return intake.PipelineConfig{
		Transcriber: c.Transcriber,
		Assessor:    c.Assessor,
		Writer:      c.Writer,
		Logger:      logger,
		Metrics:     m,
	}
}

// Close releases provider connections.
func (c *Capabilities) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CapabilityDeps are optional collaborators for BuildCapabilities.
type CapabilityDeps struct {
	// AWS is required only when a provider is "bedrock".
	AWS     *aws.Config
	Metrics *metrics.IntakeMetrics
	Logger  *logging.Logger
}

// BuildCapabilities constructs the speech, vision, and text adapters named in
// cfg and wraps each in its own timeout and circuit breaker.
func BuildCapabilities(ctx context.Context, cfg *appconfig.Config, deps CapabilityDeps) (*Capabilities, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	caps := &Capabilities{}
	newGuard := func(name string) *capability.Guard {
		timeout := cfg.TextTimeout
		switch name {
		case "speech":
			timeout = cfg.SpeechTimeout
		case "vision":
			timeout = cfg.VisionTimeout
		}
		return capability.NewGuard(capability.GuardConfig{
			Name:        name,
			Timeout:     timeout,
			MaxFailures: uint32(max(cfg.BreakerMaxFailure, 0)),
			OpenFor:     cfg.BreakerOpenFor,
			Logger:      logger,
			Metrics:     deps.Metrics,
		})
	}

	if cfg.SpeechEnabled {
		tr, err := speech.New(ctx, cfg.SpeechCredentialsFile)
		if err != nil {
			logger.Warn("speech-to-text disabled", "error", err)
		} else {
			caps.Transcriber = capability.NewTranscriber(tr, newGuard("speech"))
			caps.closers = append(caps.closers, tr.Close)
		}
	}

	built := map[string]model{}
	resolve := func(provider string) (model, error) {
		if m, ok := built[provider]; ok {
			return m, nil
		}
		m, closer, err := buildModel(ctx, provider, cfg, deps.AWS)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			caps.closers = append(caps.closers, closer)
		}
		built[provider] = m
		return m, nil
	}

	if provider := strings.TrimSpace(cfg.VisionProvider); provider != "" {
		m, err := resolve(provider)
		if err != nil {
			_ = caps.Close()
			return nil, fmt.Errorf("bootstrap: vision provider: %w", err)
		}
		caps.Assessor = capability.NewAssessor(m, newGuard("vision"))
	} else {
		logger.Warn("no vision provider configured; every image will be an error verdict")
	}

	if provider := strings.TrimSpace(cfg.TextProvider); provider != "" {
		m, err := resolve(provider)
		if err != nil {
			_ = caps.Close()
			return nil, fmt.Errorf("bootstrap: text provider: %w", err)
		}
		caps.Writer = capability.NewWriter(m, newGuard("text"))
	} else {
		logger.Warn("no text provider configured; complaints use the fallback letter")
	}

	logger.Info("capabilities configured",
		"speech", caps.Transcriber != nil,
		"vision", cfg.VisionProvider,
		"text", cfg.TextProvider,
	)
	return caps, nil
}

func buildModel(ctx context.Context, provider string, cfg *appconfig.Config, awsCfg *aws.Config) (model, func() error, error) {
	switch provider {
	case "gemini":
		c, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiVisionModel, cfg.GeminiTextModel)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "bedrock":
		if awsCfg == nil {
			return nil, nil, errors.New("bedrock requires AWS configuration")
		}
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, nil, errors.New("BEDROCK_MODEL_ID is required")
		}
		return bedrock.New(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID), nil, nil
	case "openai":
		c, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", provider)
	}
}
