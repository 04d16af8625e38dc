package intake

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

type substitution struct {
	from string
	to   string
}

// Substitutions are applied in order; later entries see the output of earlier ones.
var substitutionTables = map[language.Base][]substitution{
	mustBase("hi"): {
		{"सड़क", "road"},
		{"गड्ढा", "pothole"},
		{"बहुत", "very"},
		{"बड़ा", "large"},
		{"कचरा", "garbage"},
		{"पानी", "water"},
		{"लीक", "leak"},
		{"नाली", "drainage"},
		{"लाइट", "street light"},
		{"खराब", "damaged"},
		{"समस्या", "problem"},
		{"यहाँ", "here"},
		{"पर", "on"},
		{"है", "is"},
	},
}

func mustBase(code string) language.Base {
	b, err := language.ParseBase(code)
	if err != nil {
		panic(err)
	}
	return b
}

// Normalize maps a transcript toward the English keywords ExtractIssueType
// understands. Languages without a substitution table pass through untouched.
func Normalize(text, lang string) string {
	table := tableFor(lang)
	if table == nil {
		return text
	}
	// Nukta letters like U+095C are composition exclusions, so NFC yields the
	// decomposed spelling the table uses.
	out := strings.ToLower(norm.NFC.String(text))
	for _, sub := range table {
		out = strings.ReplaceAll(out, sub.from, sub.to)
	}
	return out
}

func tableFor(lang string) []substitution {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		// Malformed tags such as "hi_IN" still carry a usable prefix.
		if strings.HasPrefix(strings.ToLower(lang), "hi") {
			return substitutionTables[mustBase("hi")]
		}
		return nil
	}
	base, conf := tag.Base()
	if conf == language.No {
		return nil
	}
	return substitutionTables[base]
}

type issueRule struct {
	keywords []string
	issue    IssueType
}

var issueRules = []issueRule{
	{[]string{"pothole"}, IssuePothole},
	{[]string{"garbage"}, IssueGarbage},
	{[]string{"water", "leak"}, IssueWaterLeakage},
	{[]string{"street light", "lamp"}, IssueStreetLight},
	{[]string{"drain", "sewer"}, IssueDrainage},
}

// ExtractIssueType classifies text by keyword; the first matching rule wins.
func ExtractIssueType(text string) IssueType {
	lower := strings.ToLower(text)
	for _, rule := range issueRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.issue
			}
		}
	}
	return IssueOther
}
