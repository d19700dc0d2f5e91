package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

type mockConfirmationPublisher struct {
	mock.Mock
}

func (m *mockConfirmationPublisher) PublishPaymentConfirmation(ctx context.Context, msg interface{}) error {
	return m.Called(ctx, msg).Error(0)
}

const successCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 250.00},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					{"Name": "PhoneNumber", "Value": 254700000001}
				]
			}
		}
	}
}`

const failureCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-2",
			"CheckoutRequestID": "ws_CO_191220191020363926",
			"ResultCode": 1032,
			"ResultDesc": "Request cancelled by user"
		}
	}
}`

func newCallbackHandler(pub ConfirmationPublisher) *Handler {
	return NewHandler(nil, pub, "test-secret", logger.New("payment-test"))
}

func postCallback(h *Handler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Callback-Secret", secret)
	}
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	return rec
}

func TestCallback_SuccessEnqueued(t *testing.T) {
	pub := new(mockConfirmationPublisher)
	pub.On("PublishPaymentConfirmation", mock.Anything, mock.MatchedBy(func(msg interface{}) bool {
		m, ok := msg.(models.PaymentConfirmationMessage)
		return ok && m.Success &&
			m.CheckoutRequestID == "ws_CO_191220191020363925" &&
			m.GatewayReceipt == "NLJ7RT61SV"
	})).Return(nil)

	rec := postCallback(newCallbackHandler(pub), successCallback, "test-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	pub.AssertExpectations(t)
}

func TestCallback_FailureEnqueued(t *testing.T) {
	pub := new(mockConfirmationPublisher)
	pub.On("PublishPaymentConfirmation", mock.Anything, mock.MatchedBy(func(msg interface{}) bool {
		m, ok := msg.(models.PaymentConfirmationMessage)
		return ok && !m.Success &&
			m.CheckoutRequestID == "ws_CO_191220191020363926" &&
			m.FailureReason == "Request cancelled by user"
	})).Return(nil)

	rec := postCallback(newCallbackHandler(pub), failureCallback, "test-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	pub.AssertExpectations(t)
}

func TestCallback_WrongSecret(t *testing.T) {
	pub := new(mockConfirmationPublisher)

	rec := postCallback(newCallbackHandler(pub), successCallback, "wrong")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	pub.AssertNotCalled(t, "PublishPaymentConfirmation", mock.Anything, mock.Anything)
}

func TestCallback_MissingSecret(t *testing.T) {
	pub := new(mockConfirmationPublisher)

	rec := postCallback(newCallbackHandler(pub), successCallback, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCallback_BrokerDown(t *testing.T) {
	pub := new(mockConfirmationPublisher)
	pub.On("PublishPaymentConfirmation", mock.Anything, mock.Anything).
		Return(assert.AnError)

	rec := postCallback(newCallbackHandler(pub), successCallback, "test-secret")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
