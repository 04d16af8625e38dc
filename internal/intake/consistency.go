package intake

// Consistency is the outcome of comparing the voice and image issue types.
type Consistency struct {
	OK bool
	// NotApplicable is set when the voice issue lies outside what image
	// assessment can classify, so no comparison was made.
	NotApplicable bool
	VoiceIssue    IssueType
	ImageIssue    IssueType
}

// Err returns a *MismatchError for inconsistent results and nil otherwise.
func (c Consistency) Err() error {
	if c.OK {
		return nil
	}
	return &MismatchError{VoiceIssue: c.VoiceIssue, ImageIssue: c.ImageIssue}
}

// CheckConsistency compares the voice-derived issue with the image verdict.
// A missing verdict, or one without an issue type, is always consistent.
func CheckConsistency(voice IssueType, verdict *ImageVerdict) Consistency {
	result := Consistency{OK: true, VoiceIssue: voice}
	if verdict == nil || verdict.IssueType.Key() == "" {
		return result
	}
	result.ImageIssue = verdict.IssueType
	if voice.Equal(verdict.IssueType) {
		return result
	}
	if !voice.InImageVocabulary() {
		result.NotApplicable = true
		return result
	}
	result.OK = false
	return result
}
