package diagnosis

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UrgencyTier classifies how quickly a possible condition needs attention.
type UrgencyTier string

const (
	UrgencyRoutine   UrgencyTier = "Routine"
	UrgencyUrgent    UrgencyTier = "Urgent"
	UrgencyEmergency UrgencyTier = "Emergency"
)

// Disclaimer is attached verbatim to every diagnosis response.
const Disclaimer = "This assessment is generated by an AI system and is not a " +
	"medical diagnosis. It does not replace a consultation with a qualified " +
	"healthcare professional. If your symptoms are severe or worsening, seek " +
	"medical care immediately."

// DiagnosisRequest is the client-submitted input to the pipeline. Symptoms
// carry set semantics: order is irrelevant and duplicates collapse.
type DiagnosisRequest struct {
	Symptoms     []string      `json:"symptoms"`
	Addendum     string        `json:"addendum,omitempty"`
	Vitals       *Vitals       `json:"vitals,omitempty"`
	Demographics *Demographics `json:"demographics,omitempty"`
}

// Vitals are user-submitted readings. Fields are independently optional and
// kept as strings so locale-variant or free-text input never hard-fails
// before validation can make a call.
type Vitals struct {
	Temperature   string `json:"temperature,omitempty"`
	BloodPressure string `json:"blood_pressure,omitempty"`
	HeartRate     string `json:"heart_rate,omitempty"`
	SpO2          string `json:"spo2,omitempty"`
}

// Demographics steer model selection and prompt content only; they are
// never independently validated.
type Demographics struct {
	Age                   int    `json:"age,omitempty"`
	Gender                string `json:"gender,omitempty"`
	PreexistingConditions string `json:"preexisting_conditions,omitempty"`
}

// WearableSummary is a 7-day rollup from the wearable data provider. A nil
// field means the source had no buckets for the period and the field is
// omitted from the prompt.
type WearableSummary struct {
	AvgDailySteps *float64 `json:"avg_daily_steps,omitempty"`
	AvgHeartRate  *float64 `json:"avg_heart_rate,omitempty"`
	AvgSleepHours *float64 `json:"avg_sleep_hours,omitempty"`
}

// PossibleCondition is one candidate assessment in the response.
type PossibleCondition struct {
	Name           string      `json:"name"`
	Probability    string      `json:"probability"`
	Urgency        UrgencyTier `json:"urgency"`
	Specialty      string      `json:"specialty"`
	CommonSymptoms []string    `json:"common_symptoms"`
	NextSteps      []string    `json:"next_steps"`
	OTCSuggestions []string    `json:"otc_suggestions,omitempty"`
	PharmacyLinks  []string    `json:"pharmacy_links,omitempty"`
}

// DiagnosisResponse is the caller-facing result of the pipeline.
type DiagnosisResponse struct {
	Summary      string              `json:"summary"`
	Inconclusive bool                `json:"inconclusive"`
	Conditions   []PossibleCondition `json:"conditions"`
	Disclaimer   string              `json:"disclaimer"`
}

// HistoryRecord persists a successful diagnosis for an authenticated user.
type HistoryRecord struct {
	ID           uuid.UUID           `json:"id"`
	UserID       string              `json:"-"`
	Symptoms     []string            `json:"symptoms"`
	Vitals       *Vitals             `json:"vitals,omitempty"`
	Demographics *Demographics       `json:"demographics,omitempty"`
	Summary      string              `json:"summary"`
	Conditions   []PossibleCondition `json:"conditions"`
	TopUrgency   UrgencyTier         `json:"top_urgency"`
	ConsentAt    time.Time           `json:"consent_at"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NormalizeSymptoms trims whitespace, drops empty entries and collapses
// duplicates case-insensitively, keeping the first spelling and the original
// submission order.
func NormalizeSymptoms(symptoms []string) []string {
	seen := make(map[string]bool, len(symptoms))
	out := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// TopUrgency returns the most severe urgency tier among the conditions,
// defaulting to Routine for an empty list.
func TopUrgency(conditions []PossibleCondition) UrgencyTier {
	top := UrgencyRoutine
	for _, c := range conditions {
		switch c.Urgency {
		case UrgencyEmergency:
			return UrgencyEmergency
		case UrgencyUrgent:
			top = UrgencyUrgent
		}
	}
	return top
}
