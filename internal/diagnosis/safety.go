package diagnosis

import (
	"regexp"
	"strings"
)

// Prescription-only drug classes the model must never suggest. The prompt
// forbids them; this filter enforces the rule locally on the way out.
var prescriptionTerms = []string{
	// antibiotics
	"antibiotic", "amoxicillin", "azithromycin", "ciprofloxacin",
	"doxycycline", "penicillin",
	// steroids
	"steroid", "prednisone", "prednisolone", "dexamethasone", "cortisone",
	// opioids
	"opioid", "codeine", "tramadol", "oxycodone", "hydrocodone", "morphine",
}

// dosagePattern matches explicit dosing text such as "500 mg", "2 tablets"
// or "every 6 hours".
var dosagePattern = regexp.MustCompile(
	`(?i)\b\d+(?:\.\d+)?\s*(?:mg|mcg|ml|g|tablets?|pills?|capsules?|drops?)\b` +
		`|(?i:\bevery\s+\d+\s+hours?\b)` +
		`|(?i:\b(?:once|twice|three times)\s+(?:a\s+|per\s+)?day\b)`,
)

// SanitizeResponse applies the local safety post-check to a parsed model
// response: OTC suggestions are dropped for non-Routine conditions,
// suggestions naming prescription drug classes or dosing are removed, and
// dosage text is scrubbed from free-form fields.
func SanitizeResponse(resp *DiagnosisResponse) {
	if resp == nil {
		return
	}

	resp.Summary = scrubDosage(resp.Summary)

	for i := range resp.Conditions {
		c := &resp.Conditions[i]

		if c.Urgency != UrgencyRoutine {
			c.OTCSuggestions = nil
		} else {
			c.OTCSuggestions = filterUnsafe(c.OTCSuggestions)
		}
		c.NextSteps = filterUnsafe(c.NextSteps)
	}
}

func filterUnsafe(items []string) []string {
	if len(items) == 0 {
		return items
	}
	out := items[:0]
	for _, item := range items {
		if mentionsPrescription(item) || dosagePattern.MatchString(item) {
			continue
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mentionsPrescription(s string) bool {
	lower := strings.ToLower(s)
	for _, term := range prescriptionTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func scrubDosage(s string) string {
	return strings.Join(strings.Fields(dosagePattern.ReplaceAllString(s, "")), " ")
}
