package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
)

type fakeCompleter struct {
	req  goopenai.ChatCompletionRequest
	resp goopenai.ChatCompletionResponse
	err  error
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func reply(text string) goopenai.ChatCompletionResponse {
	return goopenai.ChatCompletionResponse{Choices: []goopenai.ChatCompletionChoice{{
		Message: goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: text},
	}}}
}

func TestAssessImageBuildsVisionRequest(t *testing.T) {
	api := &fakeCompleter{resp: reply(`{"is_issue": true, "confidence": 75}`)}
	c := newClient(api, "")

	out, err := c.AssessImage(context.Background(), intake.Image{Data: []byte("abc")})
	require.NoError(t, err)
	assert.Equal(t, `{"is_issue": true, "confidence": 75}`, out)
	assert.Equal(t, DefaultModel, api.req.Model)
	require.NotNil(t, api.req.ResponseFormat)

	parts := api.req.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, intake.ImageAssessmentPrompt, parts[0].Text)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,YWJj"))
}

func TestWriteComplaint(t *testing.T) {
	api := &fakeCompleter{resp: reply("\nSubject: Drainage\n")}
	out, err := newClient(api, "gpt-4o").WriteComplaint(context.Background(), intake.ComplaintPayload{Area: "Ward 8"})
	require.NoError(t, err)
	assert.Equal(t, "Subject: Drainage", out)
	assert.Contains(t, api.req.Messages[0].Content, "- Area: Ward 8")
}

func TestCompletionErrors(t *testing.T) {
	_, err := newClient(&fakeCompleter{err: errors.New("401")}, "").WriteComplaint(context.Background(), intake.ComplaintPayload{})
	assert.ErrorContains(t, err, "401")

	_, err = newClient(&fakeCompleter{}, "").WriteComplaint(context.Background(), intake.ComplaintPayload{})
	assert.ErrorContains(t, err, "no choices")

	_, err = New("", "", "")
	assert.Error(t, err)
}
