package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tastymeals/internal/config"
	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// Gateway initiates STK push requests against the payment provider.
type Gateway interface {
	InitiateSTKPush(ctx context.Context, phoneNumber string, amount decimal.Decimal, reference string) (string, error)
}

// DarajaGateway is the HTTP client for the Daraja (M-Pesa) API.
type DarajaGateway struct {
	client      *http.Client
	baseURL     string
	shortcode   string
	passkey     string
	callbackURL string
	logger      *logger.Logger
}

// NewDarajaGateway builds the gateway client from config.
func NewDarajaGateway(cfg *config.Config, log *logger.Logger) *DarajaGateway {
	return &DarajaGateway{
		client:      &http.Client{Timeout: cfg.GatewayTimeout()},
		baseURL:     cfg.Gateway.BaseURL,
		shortcode:   cfg.Gateway.Shortcode,
		passkey:     cfg.Gateway.Passkey,
		callbackURL: cfg.Gateway.CallbackURL,
		logger:      log,
	}
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
}

// InitiateSTKPush asks the provider to prompt the customer's phone for
// the given amount. Returns the checkout request ID used to correlate
// the asynchronous callback. All failures surface as
// models.ErrPaymentInitiation so the customer can retry.
func (g *DarajaGateway) InitiateSTKPush(ctx context.Context, phoneNumber string, amount decimal.Decimal, reference string) (string, error) {
	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(g.shortcode + g.passkey + timestamp))

	payload := stkPushRequest{
		BusinessShortCode: g.shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		// Daraja takes whole shillings.
		Amount:           amount.Round(0).String(),
		PartyA:           phoneNumber,
		PartyB:           g.shortcode,
		PhoneNumber:      phoneNumber,
		CallBackURL:      g.callbackURL,
		AccountReference: reference,
		TransactionDesc:  "tastymeals order",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal stk push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build stk push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway unreachable: %w", models.ErrPaymentInitiation)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read gateway response: %w", models.ErrPaymentInitiation)
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.Error("stk_push_rejected", "Gateway rejected STK push", "", nil, map[string]interface{}{
			"status_code": resp.StatusCode,
			"body":        string(respBody),
		})
		return "", fmt.Errorf("gateway returned %d: %w", resp.StatusCode, models.ErrPaymentInitiation)
	}

	var parsed stkPushResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", models.ErrPaymentInitiation)
	}
	if parsed.ResponseCode != "0" || parsed.CheckoutRequestID == "" {
		return "", fmt.Errorf("gateway declined (%s): %w", parsed.ResponseDescription, models.ErrPaymentInitiation)
	}
	return parsed.CheckoutRequestID, nil
}
