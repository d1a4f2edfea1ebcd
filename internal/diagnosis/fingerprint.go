package diagnosis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// fingerprintInput is the canonical triple the cache key is derived from.
// Field order is fixed and the struct contains no maps, so encoding/json
// produces deterministic output. The free-text addendum is deliberately
// excluded: requests carrying one are never cacheable.
type fingerprintInput struct {
	Symptoms     []string      `json:"symptoms"`
	Vitals       *Vitals       `json:"vitals"`
	Demographics *Demographics `json:"demographics"`
}

// Fingerprint produces a stable hex digest over the normalized clinical
// inputs. Two requests with the same symptom set (in any order), the same
// vitals and the same demographics map to the same key.
func Fingerprint(symptoms []string, vitals *Vitals, demographics *Demographics) string {
	canonical := make([]string, len(symptoms))
	for i, s := range symptoms {
		canonical[i] = strings.ToLower(strings.TrimSpace(s))
	}
	sort.Strings(canonical)

	payload, _ := json.Marshal(fingerprintInput{
		Symptoms:     canonical,
		Vitals:       vitals,
		Demographics: demographics,
	})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
