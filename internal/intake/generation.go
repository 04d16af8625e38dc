package intake

import (
	"fmt"
	"strings"
)

// ComplaintPayload is everything the complaint writer needs. It only exists
// once the evidence gate has passed.
type ComplaintPayload struct {
	Area        string    `json:"area"`
	City        string    `json:"city,omitempty"`
	IssueType   IssueType `json:"issue_type"`
	Description string    `json:"description"`
	ImageStatus string    `json:"image_status"`
	Urgency     Urgency   `json:"urgency"`
}

// GenerationKind says where the complaint text came from.
type GenerationKind string

const (
	GenerationGenerated GenerationKind = "generated"
	GenerationFallback  GenerationKind = "fallback"
)

// Generation is the final complaint text.
type Generation struct {
	Kind GenerationKind `json:"kind"`
	Text string         `json:"text"`
	// Cause is the writer failure that forced the fallback, if any.
	Cause error `json:"-"`
}

// ComplaintPrompt renders the letter-writing instructions for payload.
func ComplaintPrompt(p ComplaintPayload) string {
	urgency := p.Urgency
	if urgency == "" {
		urgency = UrgencyNormal
	}
	var b strings.Builder
	b.WriteString("You are an AI civic assistant working for an Indian municipal system.\n\n")
	b.WriteString("Generate a professional, polite English civic complaint letter.\n\n")
	b.WriteString("DETAILS:\n")
	fmt.Fprintf(&b, "- Area: %s\n", p.Area)
	fmt.Fprintf(&b, "- Issue Type: %s\n", p.IssueType)
	fmt.Fprintf(&b, "- Citizen Description: %s\n", p.Description)
	fmt.Fprintf(&b, "- Image Evidence: %s\n", p.ImageStatus)
	fmt.Fprintf(&b, "- Urgency Level: %s\n\n", urgency)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Formal government letter format\n")
	b.WriteString("- Clear subject line\n")
	b.WriteString("- No markdown\n")
	b.WriteString("- No emojis\n")
	b.WriteString("- No explanations, only the complaint letter\n")
	return b.String()
}

// FallbackComplaint builds the fixed letter used when generation fails. It only
// reads payload fields.
func FallbackComplaint(p ComplaintPayload) string {
	return fmt.Sprintf(`To,
The Concerned Municipal Authority,

Subject: Civic issue reported in %[1]s

Respected Sir/Madam,

I would like to bring to your attention the following civic issue reported by a citizen.

Issue Type: %[2]s
Description: %[3]s
Location: %[1]s

I kindly request the concerned department to inspect the matter and take appropriate action at the earliest.

Thanking you.

Yours sincerely,
A Concerned Citizen`, p.Area, p.IssueType, p.Description)
}
