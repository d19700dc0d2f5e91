package catalog

import (
	"context"
	"testing"
	"time"

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

func (m *mockRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockRepository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *mockRepository) ListCategories(ctx context.Context, q ListQuery) ([]models.Category, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *mockRepository) UpdateCategory(ctx context.Context, c *models.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) CreateFoodItem(ctx context.Context, item *models.FoodItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockRepository) GetFoodItem(ctx context.Context, id uuid.UUID) (*models.FoodItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FoodItem), args.Error(1)
}

func (m *mockRepository) ListFoodItems(ctx context.Context, categoryID *uuid.UUID, q ListQuery) ([]models.FoodItem, error) {
	args := m.Called(ctx, categoryID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FoodItem), args.Error(1)
}

func (m *mockRepository) UpdateFoodItem(ctx context.Context, item *models.FoodItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockRepository) DeleteFoodItem(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) ActiveOfferForItem(ctx context.Context, itemID uuid.UUID, now time.Time) (*models.SpecialOffer, error) {
	args := m.Called(ctx, itemID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpecialOffer), args.Error(1)
}

func (m *mockRepository) CreateOffer(ctx context.Context, offer *models.SpecialOffer) error {
	return m.Called(ctx, offer).Error(0)
}

func (m *mockRepository) GetOffer(ctx context.Context, id uuid.UUID) (*models.SpecialOffer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpecialOffer), args.Error(1)
}

func (m *mockRepository) ListOffers(ctx context.Context) ([]models.SpecialOffer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SpecialOffer), args.Error(1)
}

func (m *mockRepository) UpdateOffer(ctx context.Context, offer *models.SpecialOffer) error {
	return m.Called(ctx, offer).Error(0)
}

func (m *mockRepository) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) CreateTable(ctx context.Context, table *models.DiningTable, qrPNG []byte) error {
	return m.Called(ctx, table, qrPNG).Error(0)
}

func (m *mockRepository) GetTable(ctx context.Context, id uuid.UUID) (*models.DiningTable, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiningTable), args.Error(1)
}

func (m *mockRepository) GetTableQR(ctx context.Context, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockRepository) ListTables(ctx context.Context) ([]models.DiningTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DiningTable), args.Error(1)
}

func (m *mockRepository) UpdateTable(ctx context.Context, table *models.DiningTable, qrPNG []byte) error {
	return m.Called(ctx, table, qrPNG).Error(0)
}

func (m *mockRepository) DeleteTable(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func newTestService(repo RepositoryInterface) *Service {
	return NewService(repo, nil, logger.New("catalog-test"), "http://localhost:3000")
}

func TestDiscountedPrice(t *testing.T) {
	price := decimal.RequireFromString("200.00")
	pct := decimal.RequireFromString("25")
	assert.Equal(t, "150.00", DiscountedPrice(price, pct).StringFixed(2))

	// Discounts round to cents.
	assert.Equal(t, "66.67", DiscountedPrice(decimal.RequireFromString("100.00"),
		decimal.RequireFromString("33.33")).StringFixed(2))
}

func TestCreateCategory_DuplicateName(t *testing.T) {
	repo := new(mockRepository)
	repo.On("CreateCategory", mock.Anything, mock.Anything).Return(models.ErrDuplicateName)

	_, err := newTestService(repo).CreateCategory(context.Background(), "Drinks", "")
	assert.ErrorIs(t, err, models.ErrDuplicateName)
}

func TestCreateFoodItem_InvalidPrice(t *testing.T) {
	repo := new(mockRepository)
	categoryID := uuid.New()
	repo.On("GetCategory", mock.Anything, categoryID).
		Return(&models.Category{ID: categoryID, Name: "Mains"}, nil)

	svc := newTestService(repo)
	_, err := svc.CreateFoodItem(context.Background(), categoryID, CreateFoodItemInput{
		Name:  "Burger",
		Price: "not-a-number",
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.CreateFoodItem(context.Background(), categoryID, CreateFoodItemInput{
		Name:  "Burger",
		Price: "-5.00",
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateFoodItem_MissingCategory(t *testing.T) {
	repo := new(mockRepository)
	categoryID := uuid.New()
	repo.On("GetCategory", mock.Anything, categoryID).Return(nil, models.ErrNotFound)

	_, err := newTestService(repo).CreateFoodItem(context.Background(), categoryID, CreateFoodItemInput{
		Name:  "Burger",
		Price: "450.00",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMenu_AppliesActiveOffer(t *testing.T) {
	repo := new(mockRepository)
	itemID := uuid.New()
	hiddenID := uuid.New()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	items := []models.FoodItem{
		{ID: itemID, Name: "Pilau", Price: decimal.RequireFromString("400.00"), IsAvailable: true},
		{ID: hiddenID, Name: "Off menu", Price: decimal.RequireFromString("100.00"), IsAvailable: false},
	}
	offer := &models.SpecialOffer{
		ID:                 uuid.New(),
		FoodItemID:         itemID,
		Name:               "Lunch deal",
		DiscountPercentage: decimal.RequireFromString("10"),
		StartDate:          now.Add(-time.Hour),
		EndDate:            now.Add(time.Hour),
	}

	repo.On("ListFoodItems", mock.Anything, (*uuid.UUID)(nil), ListQuery{}).Return(items, nil)
	repo.On("ActiveOfferForItem", mock.Anything, itemID, now).Return(offer, nil)

	svc := newTestService(repo)
	svc.now = func() time.Time { return now }

	menu, err := svc.Menu(context.Background(), nil, ListQuery{})
	require.NoError(t, err)

	// Unavailable items stay off the customer menu.
	require.Len(t, menu, 1)
	assert.Equal(t, "Pilau", menu[0].Name)
	assert.Equal(t, "360.00", menu[0].EffectivePrice)
	require.NotNil(t, menu[0].Offer)
	assert.Equal(t, "Lunch deal", menu[0].Offer.Name)
	repo.AssertExpectations(t)
}

func TestMenu_NoOffer(t *testing.T) {
	repo := new(mockRepository)
	itemID := uuid.New()
	items := []models.FoodItem{
		{ID: itemID, Name: "Chai", Price: decimal.RequireFromString("50.00"), IsAvailable: true},
	}
	repo.On("ListFoodItems", mock.Anything, (*uuid.UUID)(nil), ListQuery{}).Return(items, nil)
	repo.On("ActiveOfferForItem", mock.Anything, itemID, mock.Anything).Return(nil, models.ErrNotFound)

	menu, err := newTestService(repo).Menu(context.Background(), nil, ListQuery{})
	require.NoError(t, err)
	require.Len(t, menu, 1)
	assert.Equal(t, "50.00", menu[0].EffectivePrice)
	assert.Nil(t, menu[0].Offer)
}

func TestCreateOffer_RejectsInvertedWindow(t *testing.T) {
	repo := new(mockRepository)
	itemID := uuid.New()
	repo.On("GetFoodItem", mock.Anything, itemID).
		Return(&models.FoodItem{ID: itemID, Name: "Pilau"}, nil)

	start := time.Now()
	_, err := newTestService(repo).CreateOffer(context.Background(), CreateOfferInput{
		FoodItemID:         itemID,
		Name:               "Backwards",
		DiscountPercentage: "10",
		StartDate:          start,
		EndDate:            start.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateOffer_RejectsBadPercentage(t *testing.T) {
	repo := new(mockRepository)
	itemID := uuid.New()
	repo.On("GetFoodItem", mock.Anything, itemID).
		Return(&models.FoodItem{ID: itemID}, nil)

	start := time.Now()
	_, err := newTestService(repo).CreateOffer(context.Background(), CreateOfferInput{
		FoodItemID:         itemID,
		Name:               "Too generous",
		DiscountPercentage: "150",
		StartDate:          start,
		EndDate:            start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateTable_RendersQR(t *testing.T) {
	repo := new(mockRepository)
	repo.On("CreateTable", mock.Anything, mock.Anything, mock.MatchedBy(func(png []byte) bool {
		return len(png) > 0
	})).Return(nil)

	table, err := newTestService(repo).CreateTable(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, table.TableNumber)
	repo.AssertExpectations(t)
}

func TestCreateTable_RejectsNonPositiveNumber(t *testing.T) {
	repo := new(mockRepository)
	_, err := newTestService(repo).CreateTable(context.Background(), 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}
