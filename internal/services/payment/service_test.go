package payment

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

func (m *mockRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockRepository) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockRepository) GetPaymentByCheckout(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	args := m.Called(ctx, checkoutRequestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepository) ReinitiatePayment(ctx context.Context, paymentID uuid.UUID, phoneNumber, checkoutRequestID string) error {
	return m.Called(ctx, paymentID, phoneNumber, checkoutRequestID).Error(0)
}

func (m *mockRepository) ConfirmPayment(ctx context.Context, checkoutRequestID, gatewayReceipt string) (*ConfirmationResult, error) {
	args := m.Called(ctx, checkoutRequestID, gatewayReceipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConfirmationResult), args.Error(1)
}

func (m *mockRepository) FailPayment(ctx context.Context, checkoutRequestID string) (*ConfirmationResult, error) {
	args := m.Called(ctx, checkoutRequestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConfirmationResult), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) InitiateSTKPush(ctx context.Context, phoneNumber string, amount decimal.Decimal, reference string) (string, error) {
	args := m.Called(ctx, phoneNumber, amount, reference)
	return args.String(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishNotification(ctx context.Context, msg interface{}) error {
	return m.Called(ctx, msg).Error(0)
}

func newTestService(repo RepositoryInterface, gw Gateway, pub NotificationPublisher) *Service {
	return NewService(repo, gw, pub, logger.New("payment-test"))
}

func principalFor(userID uuid.UUID) models.Principal {
	return models.Principal{UserID: userID, Username: "jane", Role: models.RoleCustomer}
}

func TestPointsForAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"250.00", 2},
		{"99.99", 0},
		{"100.00", 1},
		{"0.00", 0},
		{"1050.50", 10},
	}
	for _, tt := range tests {
		got := models.PointsForAmount(decimal.RequireFromString(tt.amount))
		assert.Equal(t, tt.want, got, "amount %s", tt.amount)
	}
}

func TestInitiate_HappyPath(t *testing.T) {
	repo := new(mockRepository)
	gw := new(mockGateway)
	userID := uuid.New()
	orderID := uuid.New()
	total := decimal.RequireFromString("450.00")

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderUnpaid, TotalPrice: total}, nil)
	repo.On("GetPaymentByOrder", mock.Anything, orderID).Return(nil, models.ErrNotFound)
	gw.On("InitiateSTKPush", mock.Anything, "254700000001", total, orderID.String()).
		Return("ws_CO_test_1", nil)
	repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
		return p.OrderID == orderID && p.Status == models.PaymentPending && p.CheckoutRequestID == "ws_CO_test_1"
	})).Return(nil)

	payment, err := newTestService(repo, gw, nil).Initiate(
		context.Background(), principalFor(userID), orderID, "254700000001", "req_test")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	repo.AssertExpectations(t)
}

func TestInitiate_ExistingPendingPayment(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderUnpaid}, nil)
	repo.On("GetPaymentByOrder", mock.Anything, orderID).
		Return(&models.Payment{ID: uuid.New(), OrderID: orderID, Status: models.PaymentPending}, nil)

	_, err := newTestService(repo, new(mockGateway), nil).Initiate(
		context.Background(), principalFor(userID), orderID, "254700000001", "req_test")
	assert.ErrorIs(t, err, models.ErrPaymentExists)
}

func TestInitiate_RetryAfterFailure(t *testing.T) {
	repo := new(mockRepository)
	gw := new(mockGateway)
	userID := uuid.New()
	orderID := uuid.New()
	paymentID := uuid.New()
	total := decimal.RequireFromString("200.00")

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderUnpaid, TotalPrice: total}, nil)
	repo.On("GetPaymentByOrder", mock.Anything, orderID).
		Return(&models.Payment{ID: paymentID, OrderID: orderID, UserID: userID, Status: models.PaymentFailed}, nil)
	gw.On("InitiateSTKPush", mock.Anything, "254700000001", total, orderID.String()).
		Return("ws_CO_retry_1", nil)
	repo.On("ReinitiatePayment", mock.Anything, paymentID, "254700000001", "ws_CO_retry_1").Return(nil)

	payment, err := newTestService(repo, gw, nil).Initiate(
		context.Background(), principalFor(userID), orderID, "254700000001", "req_test")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, "ws_CO_retry_1", payment.CheckoutRequestID)
}

func TestInitiate_OrderNotUnpaid(t *testing.T) {
	repo := new(mockRepository)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderPaid}, nil)

	_, err := newTestService(repo, new(mockGateway), nil).Initiate(
		context.Background(), principalFor(userID), orderID, "254700000001", "req_test")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestInitiate_GatewayDown(t *testing.T) {
	repo := new(mockRepository)
	gw := new(mockGateway)
	userID := uuid.New()
	orderID := uuid.New()

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderUnpaid}, nil)
	repo.On("GetPaymentByOrder", mock.Anything, orderID).Return(nil, models.ErrNotFound)
	gw.On("InitiateSTKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", models.ErrPaymentInitiation)

	_, err := newTestService(repo, gw, nil).Initiate(
		context.Background(), principalFor(userID), orderID, "254700000001", "req_test")
	assert.ErrorIs(t, err, models.ErrPaymentInitiation)
	// No payment row is created on gateway failure.
	repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestInitiate_SomeoneElsesOrder(t *testing.T) {
	repo := new(mockRepository)
	orderID := uuid.New()
	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: uuid.New(), Status: models.OrderUnpaid}, nil)

	_, err := newTestService(repo, new(mockGateway), nil).Initiate(
		context.Background(), principalFor(uuid.New()), orderID, "254700000001", "req_test")
	assert.ErrorIs(t, err, models.ErrPermission)
}

func TestApplyConfirmation_Success(t *testing.T) {
	repo := new(mockRepository)
	pub := new(mockPublisher)
	userID := uuid.New()
	orderID := uuid.New()

	result := &ConfirmationResult{
		Payment: &models.Payment{
			ID:      uuid.New(),
			OrderID: orderID,
			UserID:  userID,
			Amount:  decimal.RequireFromString("250.00"),
			Status:  models.PaymentConfirmed,
		},
		PointsEarned: 2,
	}
	repo.On("ConfirmPayment", mock.Anything, "ws_CO_1", "RCPT123").Return(result, nil)
	pub.On("PublishNotification", mock.Anything, mock.MatchedBy(func(msg interface{}) bool {
		n, ok := msg.(models.NotificationMessage)
		return ok && n.Kind == models.NotificationPaymentReceived && n.NotifyAdmins && n.CustomerID == userID
	})).Return(nil)

	err := newTestService(repo, nil, pub).ApplyConfirmation(context.Background(), models.PaymentConfirmationMessage{
		CheckoutRequestID: "ws_CO_1",
		Success:           true,
		GatewayReceipt:    "RCPT123",
	}, "req_test")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestApplyConfirmation_DuplicateIsSilent(t *testing.T) {
	repo := new(mockRepository)
	pub := new(mockPublisher)

	result := &ConfirmationResult{
		Payment:          &models.Payment{ID: uuid.New(), Status: models.PaymentConfirmed},
		AlreadyProcessed: true,
	}
	repo.On("ConfirmPayment", mock.Anything, "ws_CO_1", "RCPT123").Return(result, nil)

	err := newTestService(repo, nil, pub).ApplyConfirmation(context.Background(), models.PaymentConfirmationMessage{
		CheckoutRequestID: "ws_CO_1",
		Success:           true,
		GatewayReceipt:    "RCPT123",
	}, "req_test")
	require.NoError(t, err)
	// A redelivered confirmation must not re-notify.
	pub.AssertNotCalled(t, "PublishNotification", mock.Anything, mock.Anything)
}

func TestApplyConfirmation_Failure(t *testing.T) {
	repo := new(mockRepository)
	pub := new(mockPublisher)
	userID := uuid.New()
	orderID := uuid.New()

	result := &ConfirmationResult{
		Payment: &models.Payment{ID: uuid.New(), OrderID: orderID, UserID: userID, Status: models.PaymentFailed},
	}
	repo.On("FailPayment", mock.Anything, "ws_CO_2").Return(result, nil)
	pub.On("PublishNotification", mock.Anything, mock.MatchedBy(func(msg interface{}) bool {
		n, ok := msg.(models.NotificationMessage)
		return ok && n.Kind == models.NotificationPaymentFailed && !n.NotifyAdmins
	})).Return(nil)

	err := newTestService(repo, nil, pub).ApplyConfirmation(context.Background(), models.PaymentConfirmationMessage{
		CheckoutRequestID: "ws_CO_2",
		Success:           false,
		FailureReason:     "Request cancelled by user",
	}, "req_test")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestInitiate_LosesCreationRace(t *testing.T) {
	repo := new(mockRepository)
	gw := new(mockGateway)
	userID := uuid.New()
	orderID := uuid.New()
	total := decimal.RequireFromString("450.00")

	repo.On("GetOrder", mock.Anything, orderID).
		Return(&models.Order{ID: orderID, UserID: userID, Status: models.OrderUnpaid, TotalPrice: total}, nil)
	repo.On("GetPaymentByOrder", mock.Anything, orderID).Return(nil, models.ErrNotFound)
	gw.On("InitiateSTKPush", mock.Anything, "254700000001", total, orderID.String()).
		Return("ws_CO_race", nil)
	// A concurrent initiation inserted first; the order_id constraint
	// surfaces as the same conflict an up-front check would have caught.
	repo.On("CreatePayment", mock.Anything, mock.Anything).Return(models.ErrPaymentExists)

	_, err := newTestService(repo, gw, nil).Initiate(
		context.Background(), principalFor(userID), orderID, "254700000001", "req_test")
	assert.ErrorIs(t, err, models.ErrPaymentExists)
}
