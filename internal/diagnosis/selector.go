package diagnosis

import "github.com/medassist/symptomcheck/internal/shared/config"

// Escalation thresholds for the model selector.
const (
	maxSimpleAddendumLen   = 200
	maxSimpleConditionsLen = 50
	maxSimpleSymptoms      = 5
)

// SelectModel chooses the model tier for a request. Complex inputs (long
// addendum, long pre-existing-conditions text or a large symptom set)
// escalate to the advanced tier; everything else takes the baseline tier.
// Purely a routing decision balancing cost and latency against complexity.
func SelectModel(cfg config.AIConfig, symptoms []string, addendum string, demographics *Demographics) string {
	if len(addendum) > maxSimpleAddendumLen {
		return cfg.AdvancedModel
	}
	if demographics != nil && len(demographics.PreexistingConditions) > maxSimpleConditionsLen {
		return cfg.AdvancedModel
	}
	if len(symptoms) > maxSimpleSymptoms {
		return cfg.AdvancedModel
	}
	return cfg.BaselineModel
}
