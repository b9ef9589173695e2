package repository

import (
	"context"
	"fmt"
	"math"

	"cropmap_service/internal/domain/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type SnapshotRecorder interface {
	EnsureSchema(ctx context.Context) error
	SaveRecords(ctx context.Context, records []model.Record) error
}

type PostgresSnapshotRecorder struct {
	db *sqlx.DB
}

func NewPostgresSnapshotRecorder(db *sqlx.DB) *PostgresSnapshotRecorder {
	return &PostgresSnapshotRecorder{db: db}
}

func (r *PostgresSnapshotRecorder) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS ` + ProductionTable + ` (
			id          BIGSERIAL PRIMARY KEY,
			state       TEXT NOT NULL,
			district    TEXT NOT NULL,
			crop_year   INTEGER NOT NULL,
			season      TEXT NOT NULL,
			crop        TEXT NOT NULL,
			area        DOUBLE PRECISION,
			production  DOUBLE PRECISION,
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION
		)`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", ProductionTable, err)
	}
	return nil
}

// SaveRecords replaces the snapshot with records in one transaction, streaming
// the rows with COPY. Row order is preserved through the serial id.
func (r *PostgresSnapshotRecorder) SaveRecords(ctx context.Context, records []model.Record) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE `+ProductionTable+` RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", ProductionTable, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(ProductionTable,
		"state", "district", "crop_year", "season", "crop",
		"area", "production", "latitude", "longitude",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for i, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.State, rec.District, rec.CropYear, rec.Season, rec.Crop,
			nullable(rec.Area), nullable(rec.Production),
			nullable(rec.Latitude), nullable(rec.Longitude),
		)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy record %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// nullable stores NaN as SQL NULL.
func nullable(f float64) interface{} {
	if math.IsNaN(f) {
		return nil
	}
	return f
}
