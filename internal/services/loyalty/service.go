package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// RepositoryInterface is the storage surface of the loyalty service.
// Redeem runs its debit and synthetic order inside one transaction.
type RepositoryInterface interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	ListAccruals(ctx context.Context, userID uuid.UUID) ([]models.LoyaltyTransaction, error)

	CreateOption(ctx context.Context, option *models.RedemptionOption) error
	GetOption(ctx context.Context, id uuid.UUID) (*models.RedemptionOption, error)
	ListOptions(ctx context.Context) ([]models.RedemptionOption, error)
	UpdateOption(ctx context.Context, option *models.RedemptionOption) error
	DeleteOption(ctx context.Context, id uuid.UUID) error

	Redeem(ctx context.Context, userID, optionID uuid.UUID) (*RedeemResult, error)
	GetRedemption(ctx context.Context, id uuid.UUID) (*models.RedemptionTransaction, error)
	ListRedemptions(ctx context.Context, userID uuid.UUID, status models.RedemptionStatus) ([]models.RedemptionTransaction, error)
	MarkRedemptionDelivered(ctx context.Context, id uuid.UUID) error
	DeleteRedemption(ctx context.Context, id uuid.UUID) error
}

// RedeemResult is what a successful redemption produced.
type RedeemResult struct {
	Transaction     *models.RedemptionTransaction `json:"transaction"`
	Order           *models.Order                 `json:"order"`
	RemainingPoints int64                         `json:"remaining_points"`
}

// NotificationPublisher pushes notification events onto the fanout
// exchange.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg interface{}) error
}

// Service implements the loyalty balance, redemption catalog and
// point redemption.
type Service struct {
	repo      RepositoryInterface
	publisher NotificationPublisher
	logger    *logger.Logger
}

// NewService creates a loyalty service.
func NewService(repo RepositoryInterface, publisher NotificationPublisher, log *logger.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: log}
}

// Balance returns the caller's point balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	return s.repo.GetAccount(ctx, userID)
}

// Accruals lists the caller's earning history.
func (s *Service) Accruals(ctx context.Context, userID uuid.UUID) ([]models.LoyaltyTransaction, error) {
	return s.repo.ListAccruals(ctx, userID)
}

// CreateOption adds a redemption option mapping points to a food item.
func (s *Service) CreateOption(ctx context.Context, foodItemID uuid.UUID, pointsRequired int64, description string) (*models.RedemptionOption, error) {
	if pointsRequired <= 0 {
		return nil, fmt.Errorf("points_required must be positive: %w", models.ErrValidation)
	}
	option := &models.RedemptionOption{
		ID:             uuid.New(),
		FoodItemID:     foodItemID,
		PointsRequired: pointsRequired,
		Description:    description,
	}
	if err := s.repo.CreateOption(ctx, option); err != nil {
		return nil, err
	}
	return s.repo.GetOption(ctx, option.ID)
}

// ListOptions returns the redemption catalog.
func (s *Service) ListOptions(ctx context.Context) ([]models.RedemptionOption, error) {
	return s.repo.ListOptions(ctx)
}

// UpdateOption changes an option's cost or description.
func (s *Service) UpdateOption(ctx context.Context, id uuid.UUID, pointsRequired *int64, description *string) (*models.RedemptionOption, error) {
	option, err := s.repo.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}
	if pointsRequired != nil {
		if *pointsRequired <= 0 {
			return nil, fmt.Errorf("points_required must be positive: %w", models.ErrValidation)
		}
		option.PointsRequired = *pointsRequired
	}
	if description != nil {
		option.Description = *description
	}
	if err := s.repo.UpdateOption(ctx, option); err != nil {
		return nil, err
	}
	return option, nil
}

// DeleteOption removes an option; past redemptions keep a null
// reference.
func (s *Service) DeleteOption(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteOption(ctx, id)
}

// Redeem exchanges points for a redemption option. The debit and the
// synthetic redeemed order happen atomically; the order bypasses cart
// and payment entirely.
func (s *Service) Redeem(ctx context.Context, userID, optionID uuid.UUID, requestID string) (*RedeemResult, error) {
	result, err := s.repo.Redeem(ctx, userID, optionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("points_redeemed", "Points redeemed for food item", requestID, map[string]interface{}{
		"user_id":          userID.String(),
		"option_id":        optionID.String(),
		"points_redeemed":  result.Transaction.PointsRedeemed,
		"remaining_points": result.RemainingPoints,
	})
	if s.publisher != nil {
		msg := models.NotificationMessage{
			Kind:         models.NotificationPointsRedeemed,
			CustomerID:   userID,
			NotifyAdmins: true,
			Message: fmt.Sprintf("Redeemed %d points, %d remaining",
				result.Transaction.PointsRedeemed, result.RemainingPoints),
			OccurredAt: time.Now().UTC(),
		}
		if err := s.publisher.PublishNotification(ctx, msg); err != nil {
			s.logger.Error("notification_publish_failed", "Failed to publish notification event", requestID, err, map[string]interface{}{
				"kind": msg.Kind,
			})
		}
	}
	return result, nil
}

// Redemptions lists redemption transactions: the caller's own for
// customers, all (optionally status-filtered) for admins.
func (s *Service) Redemptions(ctx context.Context, principal models.Principal, status models.RedemptionStatus) ([]models.RedemptionTransaction, error) {
	userID := principal.UserID
	if principal.IsAdmin() {
		userID = uuid.Nil
	}
	return s.repo.ListRedemptions(ctx, userID, status)
}

// MarkDelivered records that the redeemed item was handed over.
func (s *Service) MarkDelivered(ctx context.Context, id uuid.UUID, requestID string) (*models.RedemptionTransaction, error) {
	if err := s.repo.MarkRedemptionDelivered(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("redemption_delivered", "Redemption marked delivered", requestID, map[string]interface{}{
		"redemption_id": id.String(),
	})
	return s.repo.GetRedemption(ctx, id)
}

// DeleteRedemption removes a delivered redemption record. Pending
// redemptions are still owed to the customer and cannot be deleted.
func (s *Service) DeleteRedemption(ctx context.Context, id uuid.UUID) error {
	redemption, err := s.repo.GetRedemption(ctx, id)
	if err != nil {
		return err
	}
	if redemption.Status != models.RedemptionDelivered {
		return fmt.Errorf("only delivered redemptions can be deleted: %w", models.ErrInvalidTransition)
	}
	return s.repo.DeleteRedemption(ctx, id)
}
