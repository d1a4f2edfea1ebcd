package diagnosis

import (
	"strconv"
	"strings"

	"github.com/medassist/symptomcheck/internal/shared/errors"
)

// Physiological plausibility bounds for submitted vitals.
const (
	minTemperature = 30.0
	maxTemperature = 45.0
	maxSystolic    = 300.0
	minDiastolic   = 20.0
)

// ValidateVitals checks physiological plausibility of submitted vitals and
// returns nil when they pass. Absent or unparseable fields are treated as
// not provided and never fail validation. The check is pure and must run
// before any cache lookup or external call.
func ValidateVitals(v *Vitals) *errors.AppError {
	if v == nil {
		return nil
	}

	if temp, ok := parseDecimal(v.Temperature); ok {
		if temp < minTemperature || temp > maxTemperature {
			return errors.ConflictingVitals(
				"The temperature reading is outside physiological limits.",
				"Re-check the reading; body temperature is measured in degrees Celsius, typically between 35 and 42.",
			)
		}
	}

	if sys, dia, ok := parseBloodPressure(v.BloodPressure); ok {
		if sys <= dia || sys > maxSystolic || dia < minDiastolic {
			return errors.ConflictingVitals(
				"The blood pressure reading appears to be invalid.",
				"Enter blood pressure as systolic/diastolic, with the higher (systolic) value first, e.g. 120/80.",
			)
		}
	}

	return nil
}

func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseBloodPressure accepts only readings splittable into exactly two
// numeric parts on "/".
func parseBloodPressure(s string) (sys, dia float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	sys, sysOK := parseDecimal(parts[0])
	dia, diaOK := parseDecimal(parts[1])
	if !sysOK || !diaOK {
		return 0, 0, false
	}
	return sys, dia, true
}
