package webpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	apiBasePath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

	// Field limits imposed by the Webpay Plus API.
	maxBuyOrderLen  = 26
	maxSessionIDLen = 61
	maxReturnURLLen = 255
)

var (
	// ErrValidation means the request failed the client's local checks and
	// was never sent to the gateway.
	ErrValidation = errors.New("invalid gateway request")

	// ErrProviderRejected means the gateway answered with a non-success status
	// or a payload that does not match its documented shape.
	ErrProviderRejected = errors.New("payment gateway rejected the request")

	// ErrProviderUnreachable means the gateway could not be reached at all
	// (network failure or timeout).
	ErrProviderUnreachable = errors.New("payment gateway unreachable")
)

// Client talks to the Transbank Webpay Plus REST API. It holds only
// credentials and a base URL; all transaction state lives at the gateway.
type Client struct {
	baseURL      string
	commerceCode string
	apiKey       string
	client       *http.Client
}

// NewClient creates a Webpay client for the given gateway host.
func NewClient(baseURL, commerceCode, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		commerceCode: commerceCode,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: timeout},
	}
}

type createRequest struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int    `json:"amount"`
	ReturnURL string `json:"return_url"`
}

// CreateResponse is the gateway's answer to a transaction creation: an opaque
// token plus the URL the payer's browser must be redirected to.
type CreateResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// CardDetail carries the masked card number reported by the gateway.
type CardDetail struct {
	CardNumber string `json:"card_number"`
}

// TransactionResult is the gateway's authoritative view of a transaction,
// returned by both commit and status calls.
type TransactionResult struct {
	VCI                string     `json:"vci"`
	Amount             int        `json:"amount"`
	Status             string     `json:"status"`
	BuyOrder           string     `json:"buy_order"`
	SessionID          string     `json:"session_id"`
	CardDetail         CardDetail `json:"card_detail"`
	AccountingDate     string     `json:"accounting_date"`
	TransactionDate    string     `json:"transaction_date"`
	AuthorizationCode  string     `json:"authorization_code"`
	PaymentTypeCode    string     `json:"payment_type_code"`
	ResponseCode       int        `json:"response_code"`
	InstallmentsNumber int        `json:"installments_number"`
}

// Authorized reports whether the gateway approved the payment.
func (r *TransactionResult) Authorized() bool {
	return r.ResponseCode == 0
}

type refundRequest struct {
	Amount int `json:"amount"`
}

// RefundResult is the gateway's answer to a refund request. Type is one of
// REVERSED, PARTIAL_REFUND or NULLIFIED depending on timing and amount.
type RefundResult struct {
	Type              string  `json:"type"`
	AuthorizationCode string  `json:"authorization_code"`
	AuthorizationDate string  `json:"authorization_date"`
	NullifiedAmount   float64 `json:"nullified_amount"`
	Balance           float64 `json:"balance"`
	ResponseCode      int     `json:"response_code"`
}

type gatewayError struct {
	ErrorMessage string `json:"error_message"`
}

// Create opens a new transaction at the gateway and returns the redirect
// token and URL. Local validation failures are reported before any network
// call is made.
func (c *Client) Create(ctx context.Context, amount int, buyOrder, sessionID, returnURL string) (*CreateResponse, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrValidation, amount)
	}
	if buyOrder == "" || len(buyOrder) > maxBuyOrderLen {
		return nil, fmt.Errorf("%w: buy order must be 1-%d characters", ErrValidation, maxBuyOrderLen)
	}
	if sessionID == "" || len(sessionID) > maxSessionIDLen {
		return nil, fmt.Errorf("%w: session id must be 1-%d characters", ErrValidation, maxSessionIDLen)
	}
	if returnURL == "" || len(returnURL) > maxReturnURLLen {
		return nil, fmt.Errorf("%w: return url must be 1-%d characters", ErrValidation, maxReturnURLLen)
	}

	body, err := c.do(ctx, http.MethodPost, apiBasePath, createRequest{
		BuyOrder:  buyOrder,
		SessionID: sessionID,
		Amount:    amount,
		ReturnURL: returnURL,
	})
	if err != nil {
		return nil, err
	}

	var resp CreateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed create response: %v", ErrProviderRejected, err)
	}
	if resp.Token == "" || resp.URL == "" {
		return nil, fmt.Errorf("%w: create response missing token or url", ErrProviderRejected)
	}
	return &resp, nil
}

// Commit confirms a transaction after the payer returns from the gateway.
func (c *Client) Commit(ctx context.Context, token string) (*TransactionResult, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}

	body, err := c.do(ctx, http.MethodPut, apiBasePath+"/"+token, nil)
	if err != nil {
		return nil, err
	}
	return parseTransactionResult(body)
}

// Status returns the gateway's current view of a transaction. Read-only and
// safe to retry.
func (c *Client) Status(ctx context.Context, token string) (*TransactionResult, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}

	body, err := c.do(ctx, http.MethodGet, apiBasePath+"/"+token, nil)
	if err != nil {
		return nil, err
	}
	return parseTransactionResult(body)
}

// Refund reverses or nullifies an authorized transaction for the given
// amount.
func (c *Client) Refund(ctx context.Context, token string, amount int) (*RefundResult, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive, got %d", ErrValidation, amount)
	}

	body, err := c.do(ctx, http.MethodPost, apiBasePath+"/"+token+"/refunds", refundRequest{Amount: amount})
	if err != nil {
		return nil, err
	}

	var resp RefundResult
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed refund response: %v", ErrProviderRejected, err)
	}
	if resp.Type == "" {
		return nil, fmt.Errorf("%w: refund response missing type", ErrProviderRejected)
	}
	return &resp, nil
}

func parseTransactionResult(body []byte) (*TransactionResult, error) {
	var resp TransactionResult
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed transaction response: %v", ErrProviderRejected, err)
	}
	if resp.Status == "" || resp.BuyOrder == "" {
		return nil, fmt.Errorf("%w: transaction response missing status or buy_order", ErrProviderRejected)
	}
	return &resp, nil
}

// do issues one request against the gateway and returns the raw body of a
// successful response. No retries: a repeated create or commit could double
// charge the payer, so failures always surface to the caller.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Tbk-Api-Key-Id", c.commerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrProviderUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr gatewayError
		if json.Unmarshal(respBody, &gwErr) == nil && gwErr.ErrorMessage != "" {
			return nil, fmt.Errorf("%w: gateway error (%d): %s", ErrProviderRejected, resp.StatusCode, gwErr.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: gateway error (%d)", ErrProviderRejected, resp.StatusCode)
	}

	return respBody, nil
}
