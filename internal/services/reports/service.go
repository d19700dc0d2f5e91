package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tastymeals/internal/logger"
)

// DailyReport aggregates one calendar day of cafe activity.
type DailyReport struct {
	Date           string          `json:"date"`
	OrdersPlaced   int64           `json:"orders_placed"`
	PaidRevenue    decimal.Decimal `json:"paid_revenue"`
	PointsIssued   int64           `json:"points_issued"`
	PointsRedeemed int64           `json:"points_redeemed"`
}

// RepositoryInterface is the storage surface of the reports service.
type RepositoryInterface interface {
	DailyReport(ctx context.Context, from, to time.Time) (*DailyReport, error)
}

// Service computes admin reports.
type Service struct {
	repo   RepositoryInterface
	logger *logger.Logger
}

// NewService creates a reports service.
func NewService(repo RepositoryInterface, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Daily aggregates activity for the UTC calendar day containing day.
func (s *Service) Daily(ctx context.Context, day time.Time) (*DailyReport, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	report, err := s.repo.DailyReport(ctx, from, to)
	if err != nil {
		return nil, err
	}
	report.Date = from.Format("2006-01-02")
	return report, nil
}
