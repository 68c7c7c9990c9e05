package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"formulary/internal/domain"
)

// ErrDatasetNotFound is returned when the requested dataset id is unknown.
var ErrDatasetNotFound = errors.New("dataset not found")

// PostgresStore supplies raw formulary records from PostgreSQL. Row field
// payloads are stored as JSONB exactly as the authoring system serializes
// them, nested wrappers included; normalization happens downstream.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// Records returns the dataset's rows in authoring order.
func (s *PostgresStore) Records(ctx context.Context, datasetID string) ([]domain.RawRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fields FROM formulary_rows WHERE dataset_id = $1 ORDER BY position`,
		datasetID)
	if err != nil {
		return nil, fmt.Errorf("query dataset %s: %w", datasetID, err)
	}
	defer rows.Close()

	var records []domain.RawRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var rec domain.RawRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode row payload: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", datasetID, err)
	}

	if len(records) == 0 {
		if err := s.datasetExists(ctx, datasetID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *PostgresStore) datasetExists(ctx context.Context, datasetID string) error {
	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM formulary_datasets WHERE id = $1`, datasetID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDatasetNotFound
	}
	return err
}
