package repository

import (
	"context"
	"fmt"
	"log"

	"cropmap_service/internal/dataset"
	"cropmap_service/internal/domain/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ProductionTable holds the imported dataset snapshot.
const ProductionTable = "crop_production"

type PostgresRepository struct {
	DB *sqlx.DB
}

func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresRepository{DB: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection pool.
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

// Load reads the whole snapshot in import order. Missing numbers come back
// as NaN, the same as an unparsable CSV cell.
func (r *PostgresRepository) Load(ctx context.Context) (*dataset.Dataset, error) {
	const query = `
		SELECT
			state,
			district,
			crop_year,
			season,
			crop,
			COALESCE(area, 'NaN') AS area,
			COALESCE(production, 'NaN') AS production,
			COALESCE(latitude, 'NaN') AS latitude,
			COALESCE(longitude, 'NaN') AS longitude
		FROM ` + ProductionTable + `
		ORDER BY id`

	var records []model.Record
	if err := r.DB.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to query production records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", ProductionTable, dataset.ErrEmptyDataset)
	}

	log.Printf("[postgres] loaded %d records from %s", len(records), ProductionTable)
	return dataset.FromRecords(records), nil
}

func (r *PostgresRepository) Close() error {
	return r.DB.Close()
}
