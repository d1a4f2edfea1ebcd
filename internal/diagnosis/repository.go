package diagnosis

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/symptomcheck/internal/shared/errors"
)

// Repository provides database operations for diagnosis history
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new history repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save persists a history record
func (r *Repository) Save(ctx context.Context, record *HistoryRecord) error {
	symptomsJSON, err := json.Marshal(record.Symptoms)
	if err != nil {
		return errors.Wrap(err, "failed to marshal symptoms")
	}
	conditionsJSON, err := json.Marshal(record.Conditions)
	if err != nil {
		return errors.Wrap(err, "failed to marshal conditions")
	}

	var vitalsJSON, demographicsJSON []byte
	if record.Vitals != nil {
		vitalsJSON, _ = json.Marshal(record.Vitals)
	}
	if record.Demographics != nil {
		demographicsJSON, _ = json.Marshal(record.Demographics)
	}

	query := `
		INSERT INTO diagnosis.history (
			id, user_id, symptoms, vitals, demographics,
			summary, conditions, top_urgency, consent_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.pool.Exec(ctx, query,
		record.ID, record.UserID, symptomsJSON, vitalsJSON, demographicsJSON,
		record.Summary, conditionsJSON, record.TopUrgency, record.ConsentAt, record.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save history record")
	}

	return nil
}

// ListByUser returns a user's history, newest first
func (r *Repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]HistoryRecord, error) {
	query := `
		SELECT id, user_id, symptoms, vitals, demographics,
			summary, conditions, top_urgency, consent_at, created_at
		FROM diagnosis.history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list history")
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		record, err := scanHistoryRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// Delete removes a record owned by the given user
func (r *Repository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM diagnosis.history WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "failed to delete history record")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("history record", id.String())
	}
	return nil
}

func scanHistoryRecord(row pgx.Row) (*HistoryRecord, error) {
	record := &HistoryRecord{}
	var symptomsJSON, conditionsJSON []byte
	var vitalsJSON, demographicsJSON []byte

	err := row.Scan(
		&record.ID, &record.UserID, &symptomsJSON, &vitalsJSON, &demographicsJSON,
		&record.Summary, &conditionsJSON, &record.TopUrgency, &record.ConsentAt, &record.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan history record")
	}

	if err := json.Unmarshal(symptomsJSON, &record.Symptoms); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal symptoms")
	}
	if err := json.Unmarshal(conditionsJSON, &record.Conditions); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal conditions")
	}
	if len(vitalsJSON) > 0 {
		record.Vitals = &Vitals{}
		if err := json.Unmarshal(vitalsJSON, record.Vitals); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal vitals")
		}
	}
	if len(demographicsJSON) > 0 {
		record.Demographics = &Demographics{}
		if err := json.Unmarshal(demographicsJSON, record.Demographics); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal demographics")
		}
	}

	return record, nil
}
