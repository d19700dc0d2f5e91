package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tastymeals/internal/logger"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) DailyReport(ctx context.Context, from, to time.Time) (*DailyReport, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DailyReport), args.Error(1)
}

func TestDaily_WindowCoversWholeUTCDay(t *testing.T) {
	repo := new(mockRepository)
	from := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	repo.On("DailyReport", mock.Anything, from, to).Return(&DailyReport{
		OrdersPlaced:   7,
		PaidRevenue:    decimal.RequireFromString("1250.50"),
		PointsIssued:   12,
		PointsRedeemed: 40,
	}, nil)

	// Any instant inside the day maps to the same window.
	report, err := NewService(repo, logger.New("reports-test")).
		Daily(context.Background(), time.Date(2025, 6, 15, 18, 42, 3, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "2025-06-15", report.Date)
	assert.Equal(t, int64(7), report.OrdersPlaced)
	assert.True(t, report.PaidRevenue.Equal(decimal.RequireFromString("1250.50")))
	repo.AssertExpectations(t)
}

func TestDaily_RepositoryError(t *testing.T) {
	repo := new(mockRepository)
	repo.On("DailyReport", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := NewService(repo, logger.New("reports-test")).Daily(context.Background(), time.Now())
	require.Error(t, err)
}
