// Package guard holds the declarative content-detection rule table used by the
// guardrails engine. Policy changes are rule-table edits, not control-flow edits.
package guard

import (
	"regexp"
	"sort"

	"github.com/upb/retrieval-gateway/models"
)

// Category groups rules by the concern they protect
type Category string

const (
	CategoryInjection    Category = "injection"
	CategoryHarassment   Category = "harassment"
	CategoryPII          Category = "pii"
	CategoryConfidential Category = "confidential"
)

// Rule is one (category, severity, matcher) entry in the detection table.
// Validate, when set, filters raw regex matches (e.g. Luhn for card numbers).
type Rule struct {
	Name        string
	Category    Category
	Kind        models.ViolationKind
	Severity    models.Severity
	Pattern     *regexp.Regexp
	Validate    func(match string) bool
	Redaction   string // placeholder used when redacting response text; empty = never redacted
	Description string
}

// Match is a single rule hit within scanned text
type Match struct {
	Rule     *Rule
	Value    string
	StartPos int
	EndPos   int
}

// Rules returns the ordered detection table. Order matters: security
// manipulation is scanned first, then harassment, PII, confidential topics.
func Rules() []Rule {
	return ruleTable
}

var ruleTable = []Rule{
	// Injection / system manipulation
	{
		Name:        "instruction_override",
		Category:    CategoryInjection,
		Kind:        models.ViolationKindPromptInjection,
		Severity:    models.SeverityCritical,
		Pattern:     regexp.MustCompile(`(?i)(ignore|disregard|forget|override)\s+(all\s+|any\s+)?(previous|prior|above|earlier|system)\s+(instructions?|prompts?|rules|commands?)`),
		Description: "attempt to override system instructions",
	},
	{
		Name:        "system_prompt_leak",
		Category:    CategoryInjection,
		Kind:        models.ViolationKindPromptInjection,
		Severity:    models.SeverityCritical,
		Pattern:     regexp.MustCompile(`(?i)(show|reveal|print|repeat)\s+(me\s+)?(your|the)\s+(system|original|initial|hidden|secret)\s+(prompt|instructions?)`),
		Description: "attempt to reveal the system prompt",
	},
	{
		Name:        "role_manipulation",
		Category:    CategoryInjection,
		Kind:        models.ViolationKindPromptInjection,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(?i)(pretend\s+(to\s+)?be|act\s+as\s+(if\s+)?you|assume\s+the\s+(role|identity)\s+of|from\s+now\s+on\s+you\s+(are|will))`),
		Description: "attempt to manipulate the assistant role",
	},
	{
		Name:        "jailbreak",
		Category:    CategoryInjection,
		Kind:        models.ViolationKindPromptInjection,
		Severity:    models.SeverityCritical,
		Pattern:     regexp.MustCompile(`(?i)(jailbreak|DAN\s+mode|developer\s+mode|unrestricted\s+mode|without\s+(any\s+)?(ethical|moral)\s+(restrictions?|limitations?))`),
		Description: "known jailbreak pattern",
	},
	{
		Name:        "delimiter_attack",
		Category:    CategoryInjection,
		Kind:        models.ViolationKindPromptInjection,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(\[/?(SYSTEM|USER|ASSISTANT)\]|<\|(system|user|assistant|end)\|>|###\s*(SYSTEM|INSTRUCTION))`),
		Description: "attempt to forge prompt delimiters",
	},

	// Harassment / inappropriate language
	{
		Name:        "abusive_language",
		Category:    CategoryHarassment,
		Kind:        models.ViolationKindInappropriateLanguage,
		Severity:    models.SeverityMedium,
		Pattern:     regexp.MustCompile(`(?i)\b(idiot|moron|stupid\s+(bot|machine|ai)|shut\s+up|screw\s+you|worthless)\b`),
		Description: "abusive or inappropriate language",
	},
	{
		Name:        "threat",
		Category:    CategoryHarassment,
		Kind:        models.ViolationKindInappropriateLanguage,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`(?i)\b(i\s+will\s+(hurt|kill|destroy|find)\s+you|you\s+(will|gonna)\s+(pay|regret))\b`),
		Description: "threatening language",
	},

	// PII
	{
		Name:        "email",
		Category:    CategoryPII,
		Kind:        models.ViolationKindPII,
		Severity:    models.SeverityMedium,
		Pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
		Redaction:   "[EMAIL_REDACTED]",
		Description: "email address",
	},
	{
		Name:        "phone",
		Category:    CategoryPII,
		Kind:        models.ViolationKindPII,
		Severity:    models.SeverityMedium,
		Pattern:     regexp.MustCompile(`\b(\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s][0-9]{3}[-.\s][0-9]{4}\b`),
		Redaction:   "[PHONE_REDACTED]",
		Description: "phone number",
	},
	{
		Name:        "national_id",
		Category:    CategoryPII,
		Kind:        models.ViolationKindPII,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`),
		Validate:    LooksLikeSSN,
		Redaction:   "[ID_REDACTED]",
		Description: "identifier resembling a national ID number",
	},
	{
		Name:        "payment_card",
		Category:    CategoryPII,
		Kind:        models.ViolationKindPII,
		Severity:    models.SeverityHigh,
		Pattern:     regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`),
		Validate:    LuhnCheck,
		Redaction:   "[CARD_REDACTED]",
		Description: "payment card number",
	},
	{
		Name:        "street_address",
		Category:    CategoryPII,
		Kind:        models.ViolationKindPII,
		Severity:    models.SeverityMedium,
		Pattern:     regexp.MustCompile(`(?i)\b[0-9]{1,5}\s+[A-Za-z0-9.\s]{2,30}\s(street|st\.|avenue|ave\.?|road|rd\.?|boulevard|blvd\.?|lane|ln\.?|drive|dr\.?)\b`),
		Redaction:   "[ADDRESS_REDACTED]",
		Description: "physical address",
	},

	// Confidential topics
	{
		Name:        "credentials_mention",
		Category:    CategoryConfidential,
		Kind:        models.ViolationKindConfidentialTopic,
		Severity:    models.SeverityMedium,
		Pattern:     regexp.MustCompile(`(?i)\b(password|api[-_\s]?key|secret[-_\s]?key|access[-_\s]?token|private[-_\s]?key)\s*[:=]\s*\S+`),
		Description: "credential-like assignment",
	},
	{
		Name:        "internal_document",
		Category:    CategoryConfidential,
		Kind:        models.ViolationKindConfidentialTopic,
		Severity:    models.SeverityLow,
		Pattern:     regexp.MustCompile(`(?i)\b(internal\s+only|do\s+not\s+distribute|confidential|proprietary\s+information|trade\s+secret)\b`),
		Description: "confidential-topic marker",
	},
}

// Scan runs the full rule table against text and returns all matches in
// table order, each rule's matches in position order.
func Scan(text string) []Match {
	var matches []Match
	for i := range ruleTable {
		rule := &ruleTable[i]
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if rule.Validate != nil && !rule.Validate(value) {
				continue
			}
			matches = append(matches, Match{
				Rule:     rule,
				Value:    value,
				StartPos: loc[0],
				EndPos:   loc[1],
			})
		}
	}
	return matches
}

// ScanCategory runs only the rules of one category
func ScanCategory(text string, category Category) []Match {
	var matches []Match
	for _, m := range Scan(text) {
		if m.Rule.Category == category {
			matches = append(matches, m)
		}
	}
	return matches
}

// Redact replaces every redactable match in text with its rule's placeholder.
// Matches are applied right to left so earlier offsets stay valid.
func Redact(text string, matches []Match) string {
	redactable := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Rule.Redaction != "" {
			redactable = append(redactable, m)
		}
	}
	sort.Slice(redactable, func(i, j int) bool {
		return redactable[i].StartPos > redactable[j].StartPos
	})

	result := text
	lastStart := len(text) + 1
	for _, m := range redactable {
		if m.EndPos > lastStart {
			// overlaps a match already redacted
			continue
		}
		result = result[:m.StartPos] + m.Rule.Redaction + result[m.EndPos:]
		lastStart = m.StartPos
	}
	return result
}
