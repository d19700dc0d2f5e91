package notification

import (
	"context"

	"github.com/google/uuid"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// RepositoryInterface is the storage surface of the notification
// service.
type RepositoryInterface interface {
	Insert(ctx context.Context, userID uuid.UUID, kind, message string) error
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, ordering string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Service implements notification fan-out and the inbox endpoints.
type Service struct {
	repo   RepositoryInterface
	logger *logger.Logger
}

// NewService creates a notification service.
func NewService(repo RepositoryInterface, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Record materialises one event into per-recipient inbox rows: the
// customer's, plus every admin's when the event asks for it. A failed
// insert is logged and skipped; notifications are best-effort and must
// never wedge the queue.
func (s *Service) Record(ctx context.Context, msg models.NotificationMessage, requestID string) {
	if msg.CustomerID != uuid.Nil {
		if err := s.repo.Insert(ctx, msg.CustomerID, msg.Kind, msg.Message); err != nil {
			s.logger.Error("notification_insert_failed", "Failed to store customer notification", requestID, err, map[string]interface{}{
				"kind":    msg.Kind,
				"user_id": msg.CustomerID.String(),
			})
		}
	}
	if !msg.NotifyAdmins {
		return
	}

	adminIDs, err := s.repo.ListAdminIDs(ctx)
	if err != nil {
		s.logger.Error("notification_insert_failed", "Failed to resolve admin recipients", requestID, err, nil)
		return
	}
	for _, adminID := range adminIDs {
		if adminID == msg.CustomerID {
			continue
		}
		if err := s.repo.Insert(ctx, adminID, msg.Kind, msg.Message); err != nil {
			s.logger.Error("notification_insert_failed", "Failed to store admin notification", requestID, err, map[string]interface{}{
				"kind":    msg.Kind,
				"user_id": adminID.String(),
			})
		}
	}
}

// List returns the caller's notifications, optionally unread only.
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, ordering string) ([]models.Notification, error) {
	return s.repo.List(ctx, userID, unreadOnly, ordering)
}

// MarkRead flags one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead flags the caller's whole inbox as read, returning the
// number of rows touched.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// DeleteAll clears the caller's inbox, returning the number of rows
// removed.
func (s *Service) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.DeleteAll(ctx, userID)
}
