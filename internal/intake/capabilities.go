package intake

import "context"

// AudioEncoding describes the container of captured speech.
type AudioEncoding string

const (
	AudioLinear16 AudioEncoding = "LINEAR16"
	AudioFLAC     AudioEncoding = "FLAC"
	AudioOggOpus  AudioEncoding = "OGG_OPUS"
	AudioWebMOpus AudioEncoding = "WEBM_OPUS"
	AudioMP3      AudioEncoding = "MP3"
)

// SpeechInput is one utterance to transcribe.
type SpeechInput struct {
	Language     string
	Audio        []byte
	Encoding     AudioEncoding
	SampleRateHz int
}

// Image is a citizen-supplied photo.
type Image struct {
	Data     []byte
	MIMEType string
}

// Transcriber turns speech into text. Implementations report failures as
// *TranscriptionError.
type Transcriber interface {
	Transcribe(ctx context.Context, in SpeechInput) (string, error)
}

// ImageAssessor asks a vision model for the combined issue/type/urgency/confidence
// judgement and returns its raw reply text.
type ImageAssessor interface {
	AssessImage(ctx context.Context, img Image) (string, error)
}

// ComplaintWriter drafts the formal complaint letter.
type ComplaintWriter interface {
	WriteComplaint(ctx context.Context, payload ComplaintPayload) (string, error)
}
