package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssessor struct {
	reply string
	err   error
	calls int
}

func (s *stubAssessor) AssessImage(ctx context.Context, img Image) (string, error) {
	s.calls++
	return s.reply, s.err
}

var testImage = Image{Data: []byte{0xff, 0xd8, 0xff}, MIMEType: "image/jpeg"}

func TestImageAnalyzerAccepted(t *testing.T) {
	assessor := &stubAssessor{reply: "```json\n{\"is_issue\": true, \"issue_type\": \"Pothole\", \"urgency\": \"High\", \"confidence\": 91}\n```"}
	v := NewImageAnalyzer(assessor, nil).Analyze(context.Background(), testImage)

	assert.Equal(t, VerdictAccepted, v.Status)
	assert.Equal(t, IssuePothole, v.IssueType)
	assert.Equal(t, UrgencyHigh, v.Urgency)
	assert.Equal(t, 91, v.Confidence)
	assert.Equal(t, 1, assessor.calls)
}

func TestImageAnalyzerBoundary(t *testing.T) {
	accepted := NewImageAnalyzer(&stubAssessor{reply: `{"is_issue": true, "issue_type": "Garbage", "confidence": 70}`}, nil).
		Analyze(context.Background(), testImage)
	assert.Equal(t, VerdictAccepted, accepted.Status)
	assert.Equal(t, UrgencyNormal, accepted.Urgency)

	rejected := NewImageAnalyzer(&stubAssessor{reply: `{"is_issue": true, "issue_type": "Garbage", "confidence": 69.9}`}, nil).
		Analyze(context.Background(), testImage)
	assert.Equal(t, VerdictRejected, rejected.Status)
	assert.Equal(t, 69, rejected.Confidence)
	assert.Empty(t, rejected.IssueType)
}

func TestImageAnalyzerNotAnIssue(t *testing.T) {
	v := NewImageAnalyzer(&stubAssessor{reply: `{"is_issue": false, "issue_type": "Other", "confidence": 95}`}, nil).
		Analyze(context.Background(), testImage)
	assert.Equal(t, VerdictRejected, v.Status)
	assert.Equal(t, 95, v.Confidence)
}

func TestImageAnalyzerDefaultsIssueType(t *testing.T) {
	v := NewImageAnalyzer(&stubAssessor{reply: `{"is_issue": true, "confidence": 80}`}, nil).
		Analyze(context.Background(), testImage)
	require.Equal(t, VerdictAccepted, v.Status)
	assert.Equal(t, IssueOther, v.IssueType)
	assert.Equal(t, UrgencyNormal, v.Urgency)
}

func TestImageAnalyzerErrors(t *testing.T) {
	tests := []struct {
		name     string
		assessor ImageAssessor
		img      Image
	}{
		{"adapter error", &stubAssessor{err: errors.New("quota")}, testImage},
		{"bad json", &stubAssessor{reply: "I think this is a pothole"}, testImage},
		{"empty reply", &stubAssessor{reply: "   "}, testImage},
		{"nil assessor", nil, testImage},
		{"empty image", &stubAssessor{reply: `{"is_issue": true, "confidence": 99}`}, Image{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewImageAnalyzer(tt.assessor, nil).Analyze(context.Background(), tt.img)
			assert.Equal(t, VerdictError, v.Status)
			assert.Equal(t, ImageAnalysisFailed, v.Message)
		})
	}
}

func TestParseAssessmentCanonicalizesLabels(t *testing.T) {
	a, err := ParseAssessment(`{"is_issue": true, "issue_type": " street light ", "urgency": "medium", "confidence": 88}`)
	require.NoError(t, err)
	v := a.Verdict()
	assert.Equal(t, IssueStreetLight, v.IssueType)
	assert.Equal(t, UrgencyMedium, v.Urgency)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `plain`, StripCodeFences("  plain  "))
}

func TestCheckConsistency(t *testing.T) {
	assert.True(t, CheckConsistency(IssuePothole, nil).OK)
	assert.True(t, CheckConsistency(IssuePothole, &ImageVerdict{Status: VerdictRejected, Confidence: 40}).OK)
	assert.True(t, CheckConsistency(IssuePothole, &ImageVerdict{Status: VerdictAccepted, IssueType: " pothole "}).OK)

	mismatch := CheckConsistency(IssuePothole, &ImageVerdict{Status: VerdictAccepted, IssueType: IssueGarbage})
	require.False(t, mismatch.OK)
	var merr *MismatchError
	require.ErrorAs(t, mismatch.Err(), &merr)
	assert.Equal(t,
		"Your voice describes 'Pothole', but the image shows 'Garbage'. Please upload a relevant image.",
		merr.Error())

	na := CheckConsistency(IssueWaterLeakage, &ImageVerdict{Status: VerdictAccepted, IssueType: IssueOther})
	assert.True(t, na.OK)
	assert.True(t, na.NotApplicable)
}
