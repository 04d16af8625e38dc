package intake

var evidenceRequired = map[IssueType]struct{}{
	IssuePothole:     {},
	IssueGarbage:     {},
	IssueBrokenRoad:  {},
	IssueOpenManhole: {},
}

// RequiresEvidence reports whether an issue type must be backed by an accepted photo.
func RequiresEvidence(issue IssueType) bool {
	_, ok := evidenceRequired[issue]
	return ok
}

const (
	ImageStatusApproved   = "Approved photographic evidence attached"
	ImageStatusNotPresent = "Photographic evidence could not be provided due to the nature of the issue"
)
