// Package openai implements image assessment and complaint writing on the
// OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
)

const DefaultModel = goopenai.GPT4oMini

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Client implements intake.ImageAssessor and intake.ComplaintWriter.
type Client struct {
	api   chatCompleter
	model string
}

// New creates a client for apiKey. baseURL may point at an OpenAI-compatible
// gateway; empty uses the public endpoint.
func New(apiKey, baseURL, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	return newClient(goopenai.NewClientWithConfig(cfg), model), nil
}

func newClient(api chatCompleter, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{api: api, model: model}
}

// AssessImage sends the photo inline as a data URL and asks for a JSON object.
func (c *Client) AssessImage(ctx context.Context, img intake.Image) (string, error) {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)

	return c.complete(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: intake.ImageAssessmentPrompt},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: goopenai.ImageURLDetailLow,
				}},
			},
		}},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

// WriteComplaint drafts the complaint letter.
func (c *Client) WriteComplaint(ctx context.Context, payload intake.ComplaintPayload) (string, error) {
	return c.complete(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{{
			Role:    goopenai.ChatMessageRoleUser,
			Content: intake.ComplaintPrompt(payload),
		}},
		Temperature: 0.3,
	})
}

func (c *Client) complete(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
