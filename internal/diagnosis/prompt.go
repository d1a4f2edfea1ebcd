package diagnosis

import (
	"fmt"
	"strings"
)

const notProvided = "not provided"

// Fixed, non-negotiable safety rules embedded in every prompt. These are
// instructions to the external model; SanitizeResponse enforces them again
// locally on the way out.
const safetyRules = `SAFETY RULES (non-negotiable):
1. Over-the-counter medication suggestions are permitted ONLY for conditions with "Routine" urgency.
2. NEVER suggest prescription-only medication classes, including antibiotics, steroids and opioids.
3. NEVER produce dosage instructions of any kind.
4. If the symptoms are too vague or contradictory to assess safely, set "inconclusive" to true and leave "conditions" empty.`

const responseSchema = `Respond with ONLY valid JSON matching this schema exactly:
{
  "summary": string,
  "inconclusive": boolean,
  "conditions": [
    {
      "name": string,
      "probability": string ("High" | "Medium" | "Low"),
      "urgency": string ("Routine" | "Urgent" | "Emergency"),
      "specialty": string,
      "common_symptoms": string[],
      "next_steps": string[],
      "otc_suggestions": string[] (optional, Routine urgency only),
      "pharmacy_links": string[] (optional)
    }
  ]
}`

// BuildPrompt assembles the structured prompt for the external model from
// the normalized request and the optional wearable rollup.
func BuildPrompt(req DiagnosisRequest, wearable *WearableSummary) string {
	var b strings.Builder

	b.WriteString("You are a cautious medical triage assistant producing a preliminary, non-diagnostic assessment.\n\n")

	b.WriteString("REPORTED SYMPTOMS:\n")
	for _, s := range req.Symptoms {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteByte('\n')
	}

	b.WriteString("\nPATIENT:\n")
	if d := req.Demographics; d != nil {
		if d.Age > 0 {
			fmt.Fprintf(&b, "Age: %d\n", d.Age)
		} else {
			b.WriteString("Age: " + notProvided + "\n")
		}
		b.WriteString("Gender: " + orNotProvided(d.Gender) + "\n")
		b.WriteString("Pre-existing conditions: " + orNotProvided(d.PreexistingConditions) + "\n")
	} else {
		b.WriteString("Age: " + notProvided + "\n")
		b.WriteString("Gender: " + notProvided + "\n")
		b.WriteString("Pre-existing conditions: " + notProvided + "\n")
	}

	b.WriteString("\nVITALS:\n")
	if v := req.Vitals; v != nil {
		b.WriteString("Temperature: " + orNotProvided(v.Temperature) + "\n")
		b.WriteString("Blood pressure: " + orNotProvided(v.BloodPressure) + "\n")
		b.WriteString("Heart rate: " + orNotProvided(v.HeartRate) + "\n")
		b.WriteString("SpO2: " + orNotProvided(v.SpO2) + "\n")
	} else {
		b.WriteString(notProvided + "\n")
	}

	b.WriteString("\nWEARABLE DATA (7-day averages):\n")
	if wearable == nil {
		b.WriteString(notProvided + "\n")
	} else {
		if wearable.AvgDailySteps != nil {
			fmt.Fprintf(&b, "Daily steps: %.0f\n", *wearable.AvgDailySteps)
		} else {
			b.WriteString("Daily steps: " + notProvided + "\n")
		}
		if wearable.AvgHeartRate != nil {
			fmt.Fprintf(&b, "Heart rate: %.0f bpm\n", *wearable.AvgHeartRate)
		} else {
			b.WriteString("Heart rate: " + notProvided + "\n")
		}
		if wearable.AvgSleepHours != nil {
			fmt.Fprintf(&b, "Nightly sleep: %.1f hours\n", *wearable.AvgSleepHours)
		} else {
			b.WriteString("Nightly sleep: " + notProvided + "\n")
		}
	}

	b.WriteString("\nADDITIONAL DESCRIPTION:\n")
	if req.Addendum != "" {
		b.WriteString(req.Addendum)
		b.WriteByte('\n')
	} else {
		b.WriteString("none provided\n")
	}

	b.WriteByte('\n')
	b.WriteString(safetyRules)
	b.WriteString("\n\n")
	b.WriteString(responseSchema)
	b.WriteByte('\n')

	return b.String()
}

func orNotProvided(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return notProvided
	}
	return s
}
