package order

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

func (m *mockRepository) PlaceOrder(ctx context.Context, userID uuid.UUID, diningTableID *uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, userID, diningTableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockRepository) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderItem), args.Error(1)
}

func (m *mockRepository) ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) error {
	return m.Called(ctx, orderID, from, to).Error(0)
}

func (m *mockRepository) DiningTableExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishNotification(ctx context.Context, msg interface{}) error {
	return m.Called(ctx, msg).Error(0)
}

func newTestService(repo RepositoryInterface, pub NotificationPublisher) *Service {
	return NewService(repo, pub, logger.New("order-test"))
}

func customer(id uuid.UUID) models.Principal {
	return models.Principal{UserID: id, Username: "jane", Role: models.RoleCustomer}
}

func admin() models.Principal {
	return models.Principal{UserID: uuid.New(), Username: "boss", Role: models.RoleCafeAdmin}
}

func TestPlace_EmptyCart(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	repo.On("PlaceOrder", mock.Anything, userID, (*uuid.UUID)(nil)).Return(nil, models.ErrEmptyCart)

	_, err := newTestService(repo, nil).Place(context.Background(), userID, nil, "req_test")
	assert.ErrorIs(t, err, models.ErrEmptyCart)
}

func TestPlace_PublishesNotification(t *testing.T) {
	repo := new(mockRepository)
	pub := new(mockPublisher)
	userID := uuid.New()

	placed := &models.Order{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     models.OrderUnpaid,
		TotalPrice: decimal.RequireFromString("770.00"),
	}
	repo.On("PlaceOrder", mock.Anything, userID, (*uuid.UUID)(nil)).Return(placed, nil)
	pub.On("PublishNotification", mock.Anything, mock.MatchedBy(func(msg interface{}) bool {
		n, ok := msg.(models.NotificationMessage)
		return ok && n.Kind == models.NotificationOrderPlaced && n.NotifyAdmins && n.CustomerID == userID
	})).Return(nil)

	order, err := newTestService(repo, pub).Place(context.Background(), userID, nil, "req_test")
	require.NoError(t, err)
	assert.Equal(t, models.OrderUnpaid, order.Status)
	pub.AssertExpectations(t)
}

func TestPlace_UnknownDiningTable(t *testing.T) {
	repo := new(mockRepository)
	tableID := uuid.New()
	repo.On("DiningTableExists", mock.Anything, tableID).Return(false, nil)

	_, err := newTestService(repo, nil).Place(context.Background(), uuid.New(), &tableID, "req_test")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCancel_OwnUnpaidOrder(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderUnpaid}, nil)
	repo.On("UpdateOrderStatus", mock.Anything, orderID, models.OrderUnpaid, models.OrderCancelled).Return(nil)

	order, err := newTestService(repo, nil).Cancel(context.Background(), customer(userID), orderID, "req_test")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, order.Status)
}

func TestCancel_PaidOrderRejected(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderPaid}, nil)

	_, err := newTestService(repo, nil).Cancel(context.Background(), customer(userID), orderID, "req_test")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCancel_SomeoneElsesOrder(t *testing.T) {
	repo := new(mockRepository)
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: uuid.New(), Status: models.OrderUnpaid}, nil)

	_, err := newTestService(repo, nil).Cancel(context.Background(), customer(uuid.New()), orderID, "req_test")
	assert.ErrorIs(t, err, models.ErrPermission)
}

func TestComplete_RequiresPaidStatus(t *testing.T) {
	repo := new(mockRepository)
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: uuid.New(), Status: models.OrderUnpaid}, nil)

	_, err := newTestService(repo, nil).Complete(context.Background(), orderID, "req_test")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestComplete_PaidOrder(t *testing.T) {
	repo := new(mockRepository)
	pub := new(mockPublisher)
	orderID := uuid.New()
	userID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderPaid}, nil)
	repo.On("UpdateOrderStatus", mock.Anything, orderID, models.OrderPaid, models.OrderCompleted).Return(nil)
	pub.On("PublishNotification", mock.Anything, mock.MatchedBy(func(msg interface{}) bool {
		n, ok := msg.(models.NotificationMessage)
		return ok && n.Kind == models.NotificationOrderCompleted && n.CustomerID == userID
	})).Return(nil)

	order, err := newTestService(repo, pub).Complete(context.Background(), orderID, "req_test")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, order.Status)
	pub.AssertExpectations(t)
}

func TestGet_HidesOtherCustomersOrders(t *testing.T) {
	repo := new(mockRepository)
	orderID := uuid.New()
	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: uuid.New(), Status: models.OrderPaid}, nil)

	_, err := newTestService(repo, nil).Get(context.Background(), customer(uuid.New()), orderID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestList_CustomerScopedToOwnOrders(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	repo.On("ListOrders", mock.Anything, ListFilter{UserID: userID, Status: models.OrderPaid}).
		Return([]models.Order{}, nil)

	_, err := newTestService(repo, nil).List(context.Background(), customer(userID), models.OrderPaid, "")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestList_AdminSeesAll(t *testing.T) {
	repo := new(mockRepository)
	repo.On("ListOrders", mock.Anything, ListFilter{Ordering: "-created_at"}).
		Return([]models.Order{}, nil)

	_, err := newTestService(repo, nil).List(context.Background(), admin(), "", "-created_at")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
