// Package bedrock implements image assessment and complaint writing on Amazon
// Bedrock's Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
)

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client implements intake.ImageAssessor and intake.ComplaintWriter.
type Client struct {
	api       converseAPI
	modelID   string
	maxTokens int32
}

// New wraps a Bedrock runtime client. The model must accept image input for
// AssessImage to work.
func New(api converseAPI, modelID string) *Client {
	if api == nil {
		panic("bedrock: converse client cannot be nil")
	}
	return &Client{api: api, modelID: modelID, maxTokens: 1024}
}

// AssessImage sends the photo and the assessment prompt in one user turn.
func (c *Client) AssessImage(ctx context.Context, img intake.Image) (string, error) {
	return c.converse(ctx, []brtypes.ContentBlock{
		&brtypes.ContentBlockMemberImage{Value: brtypes.ImageBlock{
			Format: imageFormat(img.MIMEType),
			Source: &brtypes.ImageSourceMemberBytes{Value: img.Data},
		}},
		&brtypes.ContentBlockMemberText{Value: intake.ImageAssessmentPrompt},
	})
}

// WriteComplaint drafts the complaint letter.
func (c *Client) WriteComplaint(ctx context.Context, payload intake.ComplaintPayload) (string, error) {
	return c.converse(ctx, []brtypes.ContentBlock{
		&brtypes.ContentBlockMemberText{Value: intake.ComplaintPrompt(payload)},
	})
}

func (c *Client) converse(ctx context.Context, content []brtypes.ContentBlock) (string, error) {
	if strings.TrimSpace(c.modelID) == "" {
		return "", errors.New("bedrock: model id is required")
	}
	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []brtypes.Message{{
			Role:    brtypes.ConversationRoleUser,
			Content: content,
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.maxTokens),
			Temperature: aws.Float32(0.2),
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: converse failed: %w", err)
	}
	text, err := outputText(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func outputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("bedrock: response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock: response did not include a message output")
	}
	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	if strings.TrimSpace(builder.String()) == "" {
		return "", errors.New("bedrock: response contained no text content blocks")
	}
	return builder.String(), nil
}

func imageFormat(mimeType string) brtypes.ImageFormat {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return brtypes.ImageFormatPng
	case "image/gif":
		return brtypes.ImageFormatGif
	case "image/webp":
		return brtypes.ImageFormatWebp
	default:
		return brtypes.ImageFormatJpeg
	}
}
