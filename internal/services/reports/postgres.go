package reports

import (
	"context"
	"fmt"
	"time"

	"tastymeals/internal/database"
)

// Repository runs report aggregations against PostgreSQL.
type Repository struct {
	db *database.DB
}

// NewRepository creates a reports repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// DailyReport aggregates the half-open window [from, to). Revenue
// counts confirmed payments by confirmation time; synthetic redemption
// orders carry a zero total and never inflate it.
func (r *Repository) DailyReport(ctx context.Context, from, to time.Time) (*DailyReport, error) {
	var report DailyReport
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders
			 WHERE created_at >= $1 AND created_at < $2
			   AND status <> 'redeemed'),
			(SELECT COALESCE(SUM(p.amount), 0) FROM payments p
			 WHERE p.status = 'confirmed'
			   AND p.updated_at >= $1 AND p.updated_at < $2),
			(SELECT COALESCE(SUM(points_earned), 0) FROM loyalty_transactions
			 WHERE created_at >= $1 AND created_at < $2),
			(SELECT COALESCE(SUM(points_redeemed), 0) FROM redemption_transactions
			 WHERE created_at >= $1 AND created_at < $2)`,
		from, to).
		Scan(&report.OrdersPlaced, &report.PaidRevenue, &report.PointsIssued, &report.PointsRedeemed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily report: %w", err)
	}
	return &report, nil
}
