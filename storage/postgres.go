package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"playstore-analytics/models"
	"playstore-analytics/utils"
)

// PostgresStore persists the score-bearing dataset to PostgreSQL and loads
// it back for the dashboard.
type PostgresStore struct {
	db *sqlx.DB
}

// appRow is the database shape of a record.
type appRow struct {
	ID              int64           `db:"id"`
	Name            string          `db:"name"`
	Category        string          `db:"category"`
	Rating          float64         `db:"rating"`
	Reviews         int64           `db:"reviews"`
	Installs        int64           `db:"installs"`
	Type            string          `db:"type"`
	ContentRating   string          `db:"content_rating"`
	PopularityScore sql.NullFloat64 `db:"popularity_score"`
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to answer,
// runs schema migrations and returns a ready-to-use store. retry may be nil.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second}
	}
	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS apps (
			id               SERIAL PRIMARY KEY,
			name             TEXT             NOT NULL,
			category         VARCHAR(64)      NOT NULL,
			rating           DOUBLE PRECISION NOT NULL,
			reviews          BIGINT           NOT NULL DEFAULT 0,
			installs         BIGINT           NOT NULL DEFAULT 0,
			type             VARCHAR(16)      NOT NULL,
			content_rating   VARCHAR(32)      NOT NULL,
			popularity_score DOUBLE PRECISION,
			created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_apps_category       ON apps(category);
		CREATE INDEX IF NOT EXISTS idx_apps_type           ON apps(type);
		CREATE INDEX IF NOT EXISTS idx_apps_content_rating ON apps(content_rating);
		CREATE INDEX IF NOT EXISTS idx_apps_rating         ON apps(rating);
	`)
	return err
}

const insertApps = `
	INSERT INTO apps (name, category, rating, reviews, installs, type, content_rating, popularity_score)
	VALUES (:name, :category, :rating, :reviews, :installs, :type, :content_rating, :popularity_score)`

// Write replaces the stored dataset with apps in a single transaction, so
// readers see either the old table or the complete new one.
func (ps *PostgresStore) Write(ctx context.Context, apps []*models.App, hasScore bool) error {
	tx, err := ps.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM apps"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 500
	rows := toRows(apps, hasScore)
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx, insertApps, rows[i:end]); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// FetchAll loads every stored record in insertion order.
func (ps *PostgresStore) FetchAll(ctx context.Context) (*models.Table, error) {
	var rows []appRow
	err := ps.db.SelectContext(ctx, &rows, `
		SELECT id, name, category, rating, reviews, installs, type, content_rating, popularity_score
		FROM apps
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	apps, hasScore := fromRows(rows)
	return models.NewTable(apps, hasScore), nil
}

// Close releases the connection pool.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func toRows(apps []*models.App, hasScore bool) []appRow {
	rows := make([]appRow, len(apps))
	for i, a := range apps {
		rows[i] = appRow{
			Name:            a.Name,
			Category:        a.Category,
			Rating:          a.Rating,
			Reviews:         a.Reviews,
			Installs:        a.Installs,
			Type:            a.Type,
			ContentRating:   a.ContentRating,
			PopularityScore: sql.NullFloat64{Float64: a.PopularityScore, Valid: hasScore},
		}
	}
	return rows
}

// fromRows converts database rows; the table carries a score only when
// every row has one.
func fromRows(rows []appRow) ([]*models.App, bool) {
	apps := make([]*models.App, len(rows))
	hasScore := len(rows) > 0
	for i, r := range rows {
		apps[i] = &models.App{
			Name:            r.Name,
			Category:        r.Category,
			Rating:          r.Rating,
			Reviews:         r.Reviews,
			Installs:        r.Installs,
			Type:            r.Type,
			ContentRating:   r.ContentRating,
			PopularityScore: r.PopularityScore.Float64,
		}
		if !r.PopularityScore.Valid {
			hasScore = false
		}
	}
	return apps, hasScore
}
