package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// MonthlyTotal aggregates reservations by the month their rental starts.
type MonthlyTotal struct {
	Month         int   `db:"month"`
	Rentals       int   `db:"rentals"`
	EarningsCents int64 `db:"earnings_cents"`
}

type StatusCount struct {
	Status domain.ReservationStatus `db:"status"`
	Count  int                      `db:"count"`
}

type StatsRepository interface {
	MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotal, error)
	StatusCounts(ctx context.Context) ([]StatusCount, error)
}

// SQLXStatsRepository serves read-only reporting queries over a separate database/sql pool.
type SQLXStatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) StatsRepository {
	return &SQLXStatsRepository{db: db}
}

// OpenReportingDB connects the reporting pool with the lib/pq driver.
func OpenReportingDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect reporting db: %w", err)
	}
	db.SetMaxOpenConns(4)
	return db, nil
}

func (r *SQLXStatsRepository) MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotal, error) {
	var totals []MonthlyTotal
	err := r.db.SelectContext(ctx, &totals, `
		SELECT EXTRACT(MONTH FROM start_date)::int AS month,
		       COUNT(*) AS rentals,
		       COALESCE(SUM(total_price_cents), 0) AS earnings_cents
		FROM reservations
		WHERE EXTRACT(YEAR FROM start_date)::int = $1 AND status <> $2
		GROUP BY 1
		ORDER BY 1`, year, domain.ReservationStatusCanceled)
	return totals, err
}

func (r *SQLXStatsRepository) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.SelectContext(ctx, &counts, `SELECT status, COUNT(*) AS count FROM reservations GROUP BY status ORDER BY status`)
	return counts, err
}

var _ StatsRepository = (*SQLXStatsRepository)(nil)
