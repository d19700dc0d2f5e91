package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockRepository) CreateReview(ctx context.Context, review *models.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockRepository) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockRepository) ListReviews(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockRepository) UpdateReview(ctx context.Context, review *models.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockRepository) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

var noon = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo RepositoryInterface, now time.Time) *Service {
	svc := NewService(repo, logger.New("review-test"))
	svc.now = func() time.Time { return now }
	return svc
}

func TestCreate_SameDayPaidOrder(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, UserID: userID, Status: models.OrderPaid,
		CreatedAt: noon.Add(-3 * time.Hour),
	}, nil)
	repo.On("CreateReview", mock.Anything, mock.MatchedBy(func(r *models.Review) bool {
		return r.OrderID == orderID && r.Rating == 5
	})).Return(nil)

	review, err := newTestService(repo, noon).Create(context.Background(), userID, orderID, 5, "great")
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
	repo.AssertExpectations(t)
}

func TestCreate_NextDayRejected(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, UserID: userID, Status: models.OrderPaid,
		CreatedAt: noon.Add(-24 * time.Hour),
	}, nil)

	_, err := newTestService(repo, noon).Create(context.Background(), userID, orderID, 4, "")
	assert.ErrorIs(t, err, models.ErrReviewWindowExpired)
}

func TestCreate_UnpaidOrderRejected(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, UserID: userID, Status: models.OrderUnpaid, CreatedAt: noon,
	}, nil)

	_, err := newTestService(repo, noon).Create(context.Background(), userID, orderID, 4, "")
	assert.ErrorIs(t, err, models.ErrOrderNotPaid)
}

func TestCreate_CompletedOrderAllowed(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, UserID: userID, Status: models.OrderCompleted, CreatedAt: noon,
	}, nil)
	repo.On("CreateReview", mock.Anything, mock.Anything).Return(nil)

	_, err := newTestService(repo, noon).Create(context.Background(), userID, orderID, 3, "")
	require.NoError(t, err)
}

func TestCreate_SomeoneElsesOrder(t *testing.T) {
	repo := new(mockRepository)
	orderID := uuid.New()
	repo.On("GetOrder", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, UserID: uuid.New(), Status: models.OrderPaid, CreatedAt: noon,
	}, nil)

	_, err := newTestService(repo, noon).Create(context.Background(), uuid.New(), orderID, 4, "")
	assert.ErrorIs(t, err, models.ErrPermission)
}

func TestCreate_RatingOutOfRange(t *testing.T) {
	repo := new(mockRepository)
	for _, rating := range []int{0, 6, -1} {
		_, err := newTestService(repo, noon).Create(context.Background(), uuid.New(), uuid.New(), rating, "")
		assert.ErrorIs(t, err, models.ErrValidation, "rating %d", rating)
	}
}

func TestCreate_DuplicateReview(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, UserID: userID, Status: models.OrderPaid, CreatedAt: noon,
	}, nil)
	repo.On("CreateReview", mock.Anything, mock.Anything).Return(models.ErrDuplicateReview)

	_, err := newTestService(repo, noon).Create(context.Background(), userID, orderID, 4, "")
	assert.ErrorIs(t, err, models.ErrDuplicateReview)
}

func TestUpdate_NextDayRejected(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	reviewID := uuid.New()
	orderID := uuid.New()

	repo.On("GetReview", mock.Anything, reviewID).
		Return(&models.Review{ID: reviewID, UserID: userID, OrderID: orderID, Rating: 4}, nil)
	repo.On("GetOrder", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, UserID: userID, Status: models.OrderPaid,
		CreatedAt: noon.Add(-48 * time.Hour),
	}, nil)

	rating := 2
	_, err := newTestService(repo, noon).Update(context.Background(), userID, reviewID, &rating, nil)
	assert.ErrorIs(t, err, models.ErrReviewWindowExpired)
}

func TestDelete_AnyDayAllowed(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	reviewID := uuid.New()

	// Deletion is not day-bound; no order lookup happens.
	repo.On("GetReview", mock.Anything, reviewID).
		Return(&models.Review{ID: reviewID, UserID: userID, OrderID: uuid.New()}, nil)
	repo.On("DeleteReview", mock.Anything, reviewID).Return(nil)

	err := newTestService(repo, noon).Delete(context.Background(), userID, reviewID)
	require.NoError(t, err)
	repo.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestDelete_SomeoneElsesReview(t *testing.T) {
	repo := new(mockRepository)
	reviewID := uuid.New()
	repo.On("GetReview", mock.Anything, reviewID).
		Return(&models.Review{ID: reviewID, UserID: uuid.New()}, nil)

	err := newTestService(repo, noon).Delete(context.Background(), uuid.New(), reviewID)
	assert.ErrorIs(t, err, models.ErrPermission)
}
