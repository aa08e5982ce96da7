package payments

import (
	"context"
	"sync"

	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

// MockGateway implements Gateway for testing
type MockGateway struct {
	mu sync.Mutex

	CreateFunc func(ctx context.Context, amount int, buyOrder, sessionID, returnURL string) (*webpay.CreateResponse, error)
	CommitFunc func(ctx context.Context, token string) (*webpay.TransactionResult, error)
	StatusFunc func(ctx context.Context, token string) (*webpay.TransactionResult, error)
	RefundFunc func(ctx context.Context, token string, amount int) (*webpay.RefundResult, error)

	CreateCalls int
	CommitCalls int
	StatusCalls int
	RefundCalls int
}

func (m *MockGateway) Create(ctx context.Context, amount int, buyOrder, sessionID, returnURL string) (*webpay.CreateResponse, error) {
	m.mu.Lock()
	m.CreateCalls++
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, amount, buyOrder, sessionID, returnURL)
	}
	return &webpay.CreateResponse{
		Token: "tok_" + buyOrder,
		URL:   "https://webpay3gint.transbank.cl/webpayserver/initTransaction",
	}, nil
}

func (m *MockGateway) Commit(ctx context.Context, token string) (*webpay.TransactionResult, error) {
	m.mu.Lock()
	m.CommitCalls++
	m.mu.Unlock()

	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, token)
	}
	return authorizedResult(token), nil
}

func (m *MockGateway) Status(ctx context.Context, token string) (*webpay.TransactionResult, error) {
	m.mu.Lock()
	m.StatusCalls++
	m.mu.Unlock()

	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, token)
	}
	return initializedResult(token), nil
}

func (m *MockGateway) Refund(ctx context.Context, token string, amount int) (*webpay.RefundResult, error) {
	m.mu.Lock()
	m.RefundCalls++
	m.mu.Unlock()

	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, token, amount)
	}
	return &webpay.RefundResult{
		Type:            "REVERSED",
		NullifiedAmount: float64(amount),
		Balance:         0,
	}, nil
}

func (m *MockGateway) calls() (create, commit, status, refund int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CreateCalls, m.CommitCalls, m.StatusCalls, m.RefundCalls
}

func authorizedResult(token string) *webpay.TransactionResult {
	return &webpay.TransactionResult{
		VCI:               "TSY",
		Amount:            50000,
		Status:            "AUTHORIZED",
		BuyOrder:          "order_for_" + token,
		SessionID:         "session_1",
		AuthorizationCode: "1213",
		PaymentTypeCode:   "VN",
		ResponseCode:      0,
	}
}

func failedResult(token string) *webpay.TransactionResult {
	r := authorizedResult(token)
	r.Status = "FAILED"
	r.ResponseCode = -1
	r.AuthorizationCode = ""
	return r
}

func initializedResult(token string) *webpay.TransactionResult {
	r := authorizedResult(token)
	r.Status = "INITIALIZED"
	r.AuthorizationCode = ""
	return r
}
