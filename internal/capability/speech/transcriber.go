// Package speech implements intake.Transcriber on Google Cloud Speech-to-Text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
}

type sdkRecognizer struct {
	client *gspeech.Client
}

func (r sdkRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return r.client.Recognize(ctx, req)
}

// Transcriber performs synchronous recognition of short utterances.
type Transcriber struct {
	rec    recognizer
	closer func() error
}

// New connects to Speech-to-Text. With no credentials file the client uses
// application default credentials.
func New(ctx context.Context, credentialsFile string) (*Transcriber, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gspeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech: failed to create client: %w", err)
	}
	return &Transcriber{rec: sdkRecognizer{client: client}, closer: client.Close}, nil
}

// Transcribe recognizes in.Audio. Failures are returned as
// *intake.TranscriptionError.
func (t *Transcriber) Transcribe(ctx context.Context, in intake.SpeechInput) (string, error) {
	if len(in.Audio) == 0 {
		return "", intake.NewTranscriptionError(intake.TranscriptionTimeout, errors.New("speech: no audio captured"))
	}
	lang := in.Language
	if strings.TrimSpace(lang) == "" {
		lang = intake.DefaultLanguage
	}

	cfg := &speechpb.RecognitionConfig{
		Encoding:                   encoding(in.Encoding),
		LanguageCode:               lang,
		EnableAutomaticPunctuation: true,
	}
	if in.SampleRateHz > 0 {
		cfg.SampleRateHertz = int32(in.SampleRateHz)
	}

	resp, err := t.rec.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: in.Audio}},
	})
	if err != nil {
		return "", classify(ctx, err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", intake.NewTranscriptionError(intake.TranscriptionUnrecognized, nil)
	}
	return strings.Join(parts, " "), nil
}

// Close releases the gRPC connection.
func (t *Transcriber) Close() error {
	if t.closer != nil {
		return t.closer()
	}
	return nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return intake.NewTranscriptionError(intake.TranscriptionTimeout, err)
	}
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return intake.NewTranscriptionError(intake.TranscriptionTimeout, err)
	case codes.InvalidArgument:
		return intake.NewTranscriptionError(intake.TranscriptionUnrecognized, err)
	default:
		return intake.NewTranscriptionError(intake.TranscriptionServiceUnavailable, err)
	}
}

func encoding(e intake.AudioEncoding) speechpb.RecognitionConfig_AudioEncoding {
	switch e {
	case intake.AudioLinear16:
		return speechpb.RecognitionConfig_LINEAR16
	case intake.AudioFLAC:
		return speechpb.RecognitionConfig_FLAC
	case intake.AudioOggOpus:
		return speechpb.RecognitionConfig_OGG_OPUS
	case intake.AudioWebMOpus:
		return speechpb.RecognitionConfig_WEBM_OPUS
	case intake.AudioMP3:
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
