package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// RepositoryInterface is the storage surface of the review service.
type RepositoryInterface interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListReviews(ctx context.Context, userID uuid.UUID) ([]models.Review, error)
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, id uuid.UUID) error
}

// Service implements order reviews. Writing is restricted to the
// calendar day the order was placed; deleting is not.
type Service struct {
	repo   RepositoryInterface
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a review service.
func NewService(repo RepositoryInterface, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log, now: time.Now}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func validRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5: %w", models.ErrValidation)
	}
	return nil
}

// Create adds a review for the caller's own paid order, on the day the
// order was placed.
func (s *Service) Create(ctx context.Context, userID, orderID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if err := validRating(rating); err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.ErrPermission
	}
	if order.Status != models.OrderPaid && order.Status != models.OrderCompleted {
		return nil, models.ErrOrderNotPaid
	}
	if !sameDay(order.CreatedAt, s.now()) {
		return nil, models.ErrReviewWindowExpired
	}

	review := &models.Review{
		ID:      uuid.New(),
		UserID:  userID,
		OrderID: orderID,
		Rating:  rating,
		Comment: comment,
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// List returns the caller's reviews.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	return s.repo.ListReviews(ctx, userID)
}

// Update edits the caller's own review, still only on the order's day.
func (s *Service) Update(ctx context.Context, userID, reviewID uuid.UUID, rating *int, comment *string) (*models.Review, error) {
	review, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, models.ErrPermission
	}

	order, err := s.repo.GetOrder(ctx, review.OrderID)
	if err != nil {
		return nil, err
	}
	if !sameDay(order.CreatedAt, s.now()) {
		return nil, models.ErrReviewWindowExpired
	}

	if rating != nil {
		if err := validRating(*rating); err != nil {
			return nil, err
		}
		review.Rating = *rating
	}
	if comment != nil {
		review.Comment = *comment
	}
	if err := s.repo.UpdateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// Delete removes the caller's own review. Retraction is allowed any
// time; only writing is day-bound.
func (s *Service) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	review, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != userID {
		return models.ErrPermission
	}
	return s.repo.DeleteReview(ctx, reviewID)
}
