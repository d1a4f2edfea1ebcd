package audit

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/symptomcheck/internal/shared/errors"
	"github.com/medassist/symptomcheck/internal/shared/metrics"
)

// Repository provides append-only audit log operations. Records are never
// updated or deleted.
type Repository struct {
	pool     *pgxpool.Pool
	mu       sync.Mutex
	lastHash string
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Initialize loads the last chain hash from the database
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT hash FROM audit.entries
		ORDER BY sequence DESC
		LIMIT 1
	`).Scan(&hash)

	if err != nil && !strings.Contains(err.Error(), "no rows") {
		return errors.Wrap(err, "failed to get last audit hash")
	}

	r.lastHash = hash
	return nil
}

// Record hashes the payloads and appends an audit entry. This is the
// orchestrator-facing entry point.
func (r *Repository) Record(ctx context.Context, userID, model string, input, output []byte) error {
	return r.Append(ctx, NewRecord(userID, model, HashPayload(input), HashPayload(output)))
}

// Append appends a record, linking it into the hash chain (thread-safe)
func (r *Repository) Append(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.PrevHash = r.lastHash
	record.Hash = record.calculateHash()

	query := `
		INSERT INTO audit.entries (
			id, timestamp, hash, prev_hash,
			user_id, model, input_hash, output_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING sequence`

	err := r.pool.QueryRow(ctx, query,
		record.ID, record.Timestamp, record.Hash, record.PrevHash,
		record.UserID, record.Model, record.InputHash, record.OutputHash,
	).Scan(&record.Sequence)
	if err != nil {
		return errors.Wrap(err, "failed to append audit record")
	}

	r.lastHash = record.Hash
	metrics.RecordAuditEntry()

	return nil
}

// List returns records in chain order for compliance review
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	query := `
		SELECT id, sequence, timestamp, hash, prev_hash,
			user_id, model, input_hash, output_hash
		FROM audit.entries
		ORDER BY sequence
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit records")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		err := rows.Scan(
			&record.ID, &record.Sequence, &record.Timestamp, &record.Hash, &record.PrevHash,
			&record.UserID, &record.Model, &record.InputHash, &record.OutputHash,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan audit record")
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
