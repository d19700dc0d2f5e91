package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetCartID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRepository) GetCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CartItem), args.Error(1)
}

func (m *mockRepository) AddItem(ctx context.Context, cartID, foodItemID uuid.UUID, quantity int) (*models.CartItem, error) {
	args := m.Called(ctx, cartID, foodItemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *mockRepository) GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	args := m.Called(ctx, cartID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *mockRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	return m.Called(ctx, cartID, itemID, quantity).Error(0)
}

func (m *mockRepository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return m.Called(ctx, cartID, itemID).Error(0)
}

func (m *mockRepository) FoodItemAvailable(ctx context.Context, foodItemID uuid.UUID) (bool, error) {
	args := m.Called(ctx, foodItemID)
	return args.Bool(0), args.Error(1)
}

func newTestService(repo RepositoryInterface) *Service {
	return NewService(repo, logger.New("cart-test"))
}

func TestView_SumsDiscountedLines(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	cartID := uuid.New()

	items := []models.CartItem{
		{ID: uuid.New(), CartID: cartID, Name: "Pilau", Quantity: 2, UnitPrice: decimal.RequireFromString("360.00")},
		{ID: uuid.New(), CartID: cartID, Name: "Chai", Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")},
	}
	repo.On("GetCartID", mock.Anything, userID).Return(cartID, nil)
	repo.On("GetCartItems", mock.Anything, cartID).Return(items, nil)

	cart, err := newTestService(repo).View(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "770.00", cart.TotalPrice.StringFixed(2))
	assert.Len(t, cart.Items, 2)
}

func TestView_EmptyCart(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	cartID := uuid.New()
	repo.On("GetCartID", mock.Anything, userID).Return(cartID, nil)
	repo.On("GetCartItems", mock.Anything, cartID).Return([]models.CartItem{}, nil)

	cart, err := newTestService(repo).View(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, cart.TotalPrice.IsZero())
	assert.Empty(t, cart.Items)
}

func TestAddItem_Duplicate(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	cartID := uuid.New()
	foodItemID := uuid.New()

	repo.On("FoodItemAvailable", mock.Anything, foodItemID).Return(true, nil)
	repo.On("GetCartID", mock.Anything, userID).Return(cartID, nil)
	repo.On("AddItem", mock.Anything, cartID, foodItemID, 1).Return(nil, models.ErrDuplicateCartItem)

	_, err := newTestService(repo).AddItem(context.Background(), userID, foodItemID, 1)
	assert.ErrorIs(t, err, models.ErrDuplicateCartItem)
}

func TestAddItem_UnavailableItem(t *testing.T) {
	repo := new(mockRepository)
	foodItemID := uuid.New()
	repo.On("FoodItemAvailable", mock.Anything, foodItemID).Return(false, nil)

	_, err := newTestService(repo).AddItem(context.Background(), uuid.New(), foodItemID, 1)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAddItem_RejectsZeroQuantity(t *testing.T) {
	repo := new(mockRepository)
	_, err := newTestService(repo).AddItem(context.Background(), uuid.New(), uuid.New(), 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateQuantity(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	cartID := uuid.New()
	itemID := uuid.New()

	updated := &models.CartItem{ID: itemID, CartID: cartID, Quantity: 3}
	repo.On("GetCartID", mock.Anything, userID).Return(cartID, nil)
	repo.On("UpdateItemQuantity", mock.Anything, cartID, itemID, 3).Return(nil)
	repo.On("GetItem", mock.Anything, cartID, itemID).Return(updated, nil)

	item, err := newTestService(repo).UpdateQuantity(context.Background(), userID, itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	repo.AssertExpectations(t)
}

func TestRemoveItem_NotInCart(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	cartID := uuid.New()
	itemID := uuid.New()

	repo.On("GetCartID", mock.Anything, userID).Return(cartID, nil)
	repo.On("RemoveItem", mock.Anything, cartID, itemID).Return(models.ErrNotFound)

	err := newTestService(repo).RemoveItem(context.Background(), userID, itemID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
