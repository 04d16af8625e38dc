// Package gemini implements image assessment and complaint writing on Google's
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
	"google.golang.org/api/option"
)

const (
	DefaultVisionModel = "gemini-flash-lite-latest"
	DefaultTextModel   = "gemini-flash-latest"
)

type generator interface {
	GenerateContent(ctx context.Context, modelID string, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type sdkGenerator struct {
	client *genai.Client
}

func (g sdkGenerator) GenerateContent(ctx context.Context, modelID string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return g.client.GenerativeModel(modelID).GenerateContent(ctx, parts...)
}

// Client implements intake.ImageAssessor and intake.ComplaintWriter.
type Client struct {
	gen         generator
	closer      func() error
	visionModel string
	textModel   string
}

// New creates a Gemini client. Empty model IDs fall back to the defaults.
func New(ctx context.Context, apiKey, visionModel, textModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	c := newClient(sdkGenerator{client: client}, visionModel, textModel)
	c.closer = client.Close
	return c, nil
}

func newClient(gen generator, visionModel, textModel string) *Client {
	if strings.TrimSpace(visionModel) == "" {
		visionModel = DefaultVisionModel
	}
	if strings.TrimSpace(textModel) == "" {
		textModel = DefaultTextModel
	}
	return &Client{gen: gen, visionModel: visionModel, textModel: textModel}
}

// AssessImage sends the assessment prompt together with the photo.
func (c *Client) AssessImage(ctx context.Context, img intake.Image) (string, error) {
	resp, err := c.gen.GenerateContent(ctx, c.visionModel,
		genai.Text(intake.ImageAssessmentPrompt),
		genai.ImageData(imageFormat(img.MIMEType), img.Data),
	)
	if err != nil {
		return "", fmt.Errorf("gemini: image assessment failed: %w", err)
	}
	return responseText(resp)
}

// WriteComplaint drafts the complaint letter.
func (c *Client) WriteComplaint(ctx context.Context, payload intake.ComplaintPayload) (string, error) {
	resp, err := c.gen.GenerateContent(ctx, c.textModel, genai.Text(intake.ComplaintPrompt(payload)))
	if err != nil {
		return "", fmt.Errorf("gemini: complaint generation failed: %w", err)
	}
	return responseText(resp)
}

// Close releases resources held by the Gemini client.
func (c *Client) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("gemini: returned empty content")
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// imageFormat maps a MIME type to the short format genai.ImageData expects.
func imageFormat(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	format := strings.TrimPrefix(mimeType, "image/")
	switch format {
	case "", "jpg", "pjpeg":
		return "jpeg"
	}
	return format
}
