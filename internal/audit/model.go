package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is an immutable audit log entry: one per processed provider
// response. Only one-way hashes of the input and output are stored, never
// raw clinical content. Records form a hash chain through PrevHash for
// tamper detection.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash,omitempty"`

	// UserID is a verified subject or the anonymous sentinel.
	UserID string `json:"user_id"`
	// Model is the tier that served the request.
	Model string `json:"model"`

	InputHash  string `json:"input_hash"`
	OutputHash string `json:"output_hash"`
}

// NewRecord creates an audit record from payload hashes. The chain hash is
// finalized by the repository once the previous hash is known.
func NewRecord(userID, model, inputHash, outputHash string) *Record {
	record := &Record{
		ID:         uuid.New(),
		Timestamp:  time.Now().UTC().Truncate(time.Microsecond), // microseconds for PostgreSQL compatibility
		UserID:     userID,
		Model:      model,
		InputHash:  inputHash,
		OutputHash: outputHash,
	}
	record.Hash = record.calculateHash()
	return record
}

// HashPayload returns the hex SHA-256 digest of a payload.
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// calculateHash hashes the record's fields in a fixed order. Timestamps are
// rendered in UTC so verification is timezone-independent.
func (r *Record) calculateHash() string {
	data := struct {
		ID         uuid.UUID `json:"id"`
		Timestamp  string    `json:"timestamp"`
		PrevHash   string    `json:"prev_hash"`
		UserID     string    `json:"user_id"`
		Model      string    `json:"model"`
		InputHash  string    `json:"input_hash"`
		OutputHash string    `json:"output_hash"`
	}{
		ID:         r.ID,
		Timestamp:  r.Timestamp.UTC().Format(time.RFC3339Nano),
		PrevHash:   r.PrevHash,
		UserID:     r.UserID,
		Model:      r.Model,
		InputHash:  r.InputHash,
		OutputHash: r.OutputHash,
	}

	payload, _ := json.Marshal(data)
	return HashPayload(payload)
}

// VerifyHash verifies the record's own hash.
func (r *Record) VerifyHash() bool {
	return r.Hash == r.calculateHash()
}

// VerifyChain checks hash and linkage integrity of a record sequence.
func VerifyChain(records []Record) bool {
	for i := range records {
		if !records[i].VerifyHash() {
			return false
		}
		if i > 0 && records[i].PrevHash != records[i-1].Hash {
			return false
		}
	}
	return true
}
