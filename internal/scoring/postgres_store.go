package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists assessments in PostgreSQL. Schema lives in
// migrations/ and is applied via cmd/migrate.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, a *Assessment) error {
	factorsJSON, err := json.Marshal(a.ContributingFactors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	reasonsJSON, err := json.Marshal(a.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			id, stream_id, window_start, window_end,
			risk_score, confidence, anomaly, state,
			factors, reasons, details,
			artifact_ratio, dropout_ratio, evaluated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		a.ID, a.StreamID, a.WindowStart, a.WindowEnd,
		a.RiskScore, a.Confidence, a.Anomaly, string(a.State),
		factorsJSON, reasonsJSON, a.Details,
		a.ArtifactRatio, a.DropoutRatio, a.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("record assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByStream(ctx context.Context, streamID string, limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stream_id, window_start, window_end,
		       risk_score, confidence, anomaly, state,
		       factors, reasons, details,
		       artifact_ratio, dropout_ratio, evaluated_at
		FROM assessments
		WHERE stream_id = $1
		ORDER BY evaluated_at DESC
		LIMIT $2
	`, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		var a Assessment
		var factorsJSON, reasonsJSON []byte
		var state string
		var evaluatedAt time.Time

		if err := rows.Scan(
			&a.ID, &a.StreamID, &a.WindowStart, &a.WindowEnd,
			&a.RiskScore, &a.Confidence, &a.Anomaly, &state,
			&factorsJSON, &reasonsJSON, &a.Details,
			&a.ArtifactRatio, &a.DropoutRatio, &evaluatedAt,
		); err != nil {
			continue
		}
		a.State = State(state)
		a.EvaluatedAt = evaluatedAt
		_ = json.Unmarshal(factorsJSON, &a.ContributingFactors)
		_ = json.Unmarshal(reasonsJSON, &a.Reasons)
		result = append(result, &a)
	}
	return result, rows.Err()
}
