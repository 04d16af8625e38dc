package intake

import "strings"

// IssueType names a civic issue category.
type IssueType string

const (
	IssuePothole      IssueType = "Pothole"
	IssueGarbage      IssueType = "Garbage"
	IssueWaterLeakage IssueType = "Water Leakage"
	IssueStreetLight  IssueType = "Street Light"
	IssueDrainage     IssueType = "Drainage"
	IssueOther        IssueType = "Other"
	IssueBrokenRoad   IssueType = "Broken Road"
	IssueOpenManhole  IssueType = "Open Manhole"
)

// Urgency is the severity reported by image assessment.
type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
	UrgencyNormal Urgency = "Normal"
)

var knownIssues = []IssueType{
	IssuePothole,
	IssueGarbage,
	IssueWaterLeakage,
	IssueStreetLight,
	IssueDrainage,
	IssueOther,
	IssueBrokenRoad,
	IssueOpenManhole,
}

// imageVocabulary is what image assessment may return as an issue type.
var imageVocabulary = map[IssueType]struct{}{
	IssuePothole:     {},
	IssueGarbage:     {},
	IssueStreetLight: {},
	IssueOther:       {},
}

// String implements fmt.Stringer.
func (t IssueType) String() string { return string(t) }

// Key is the comparison form: trimmed and lower-cased.
func (t IssueType) Key() string {
	return strings.ToLower(strings.TrimSpace(string(t)))
}

// Equal reports whether two issue types match ignoring case and surrounding space.
func (t IssueType) Equal(other IssueType) bool {
	return t.Key() == other.Key()
}

// InImageVocabulary reports whether image assessment can ever produce t.
func (t IssueType) InImageVocabulary() bool {
	for known := range imageVocabulary {
		if known.Equal(t) {
			return true
		}
	}
	return false
}

// ParseIssueType maps a model label onto a known issue type. Unknown labels are
// kept verbatim (trimmed) so comparisons still see what the model said.
func ParseIssueType(label string) IssueType {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return ""
	}
	for _, known := range knownIssues {
		if known.Equal(IssueType(trimmed)) {
			return known
		}
	}
	return IssueType(trimmed)
}

// ParseUrgency normalizes an urgency label, defaulting to Normal.
func ParseUrgency(label string) Urgency {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low":
		return UrgencyLow
	case "medium":
		return UrgencyMedium
	case "high":
		return UrgencyHigh
	case "", "normal":
		return UrgencyNormal
	default:
		return Urgency(strings.TrimSpace(label))
	}
}
