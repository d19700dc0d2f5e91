package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// RepositoryInterface is the storage surface of the cart service.
type RepositoryInterface interface {
	GetCartID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	GetCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	AddItem(ctx context.Context, cartID, foodItemID uuid.UUID, quantity int) (*models.CartItem, error)
	GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	FoodItemAvailable(ctx context.Context, foodItemID uuid.UUID) (bool, error)
}

// Service implements the customer cart operations. Unit prices shown
// here track the live catalog; they freeze only when the cart becomes
// an order.
type Service struct {
	repo   RepositoryInterface
	logger *logger.Logger
}

// NewService creates a cart service.
func NewService(repo RepositoryInterface, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// View returns the caller's cart with per-line and total prices at
// current effective (offer-discounted) rates.
func (s *Service) View(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cartID, err := s.repo.GetCartID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetCartItems(ctx, cartID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return &models.Cart{
		ID:         cartID,
		UserID:     userID,
		Items:      items,
		TotalPrice: total,
	}, nil
}

// AddItem puts a food item in the caller's cart. Each item may appear
// once; callers adjust quantity through UpdateQuantity.
func (s *Service) AddItem(ctx context.Context, userID, foodItemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", models.ErrValidation)
	}

	available, err := s.repo.FoodItemAvailable(ctx, foodItemID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("food item is not available: %w", models.ErrValidation)
	}

	cartID, err := s.repo.GetCartID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.AddItem(ctx, cartID, foodItemID, quantity)
}

// UpdateQuantity changes the quantity of one cart line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", models.ErrValidation)
	}

	cartID, err := s.repo.GetCartID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemQuantity(ctx, cartID, itemID, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetItem(ctx, cartID, itemID)
}

// RemoveItem deletes one line from the caller's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	cartID, err := s.repo.GetCartID(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.RemoveItem(ctx, cartID, itemID)
}
