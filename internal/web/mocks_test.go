package web

import (
	"context"
	"sync"
	"time"

	"github.com/lucassmelendez/ct-fastapi/internal/bcentral"
	"github.com/lucassmelendez/ct-fastapi/internal/herd"
	"github.com/lucassmelendez/ct-fastapi/internal/ledger"
	"github.com/lucassmelendez/ct-fastapi/internal/payments"
	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

// MockPayments implements PaymentService with overridable behavior.
type MockPayments struct {
	CreateFunc  func(ctx context.Context, req payments.CreateRequest) (*payments.CreateResult, error)
	ConfirmFunc func(ctx context.Context, token string) (*ledger.Transaction, error)
	StatusFunc  func(ctx context.Context, token string) (*ledger.Transaction, error)
	RefundFunc  func(ctx context.Context, token string, amount int) (*webpay.RefundResult, error)
	ListFunc    func() []*ledger.Transaction

	CreateCalls []payments.CreateRequest
}

func (m *MockPayments) Create(ctx context.Context, req payments.CreateRequest) (*payments.CreateResult, error) {
	m.CreateCalls = append(m.CreateCalls, req)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return &payments.CreateResult{
		Token:     "tok_test",
		URL:       "https://webpay3gint.transbank.cl/webpayserver/initTransaction",
		BuyOrder:  "cow_order_test",
		SessionID: req.SessionID,
		Amount:    req.Amount,
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockPayments) Confirm(ctx context.Context, token string) (*ledger.Transaction, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, token)
	}
	return authorizedTransaction(token), nil
}

func (m *MockPayments) Status(ctx context.Context, token string) (*ledger.Transaction, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, token)
	}
	return authorizedTransaction(token), nil
}

func (m *MockPayments) Refund(ctx context.Context, token string, amount int) (*webpay.RefundResult, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, token, amount)
	}
	return &webpay.RefundResult{Type: "REVERSED", Balance: 0}, nil
}

func (m *MockPayments) List() []*ledger.Transaction {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return []*ledger.Transaction{}
}

func authorizedTransaction(token string) *ledger.Transaction {
	now := time.Now()
	return &ledger.Transaction{
		BuyOrder:    "cow_order_test",
		SessionID:   "session_test",
		Amount:      50000,
		Token:       token,
		Status:      ledger.StatusAuthorized,
		CreatedAt:   now,
		ConfirmedAt: &now,
		ProviderResponse: &webpay.TransactionResult{
			Status:            "AUTHORIZED",
			BuyOrder:          "cow_order_test",
			Amount:            50000,
			AuthorizationCode: "1213",
			TransactionDate:   "2024-05-22T16:41:21.063Z",
		},
	}
}

// MockSeries implements SeriesFetcher. The snapshot handler fetches series
// from several goroutines, so call recording is locked.
type MockSeries struct {
	FetchFunc func(ctx context.Context, seriesCode, startDate, endDate string) ([]bcentral.Observation, error)

	mu         sync.Mutex
	fetchCalls []string
}

func (m *MockSeries) FetchSeries(ctx context.Context, seriesCode, startDate, endDate string) ([]bcentral.Observation, error) {
	m.mu.Lock()
	m.fetchCalls = append(m.fetchCalls, seriesCode)
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, seriesCode, startDate, endDate)
	}
	return []bcentral.Observation{{Date: "2024-05-22", Value: 912.34}}, nil
}

func (m *MockSeries) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.fetchCalls...)
}

// MockHerd implements HerdStore over an in-memory map.
type MockHerd struct {
	ListFunc func() ([]herd.Cow, error)
	GetFunc  func(id int64) (*herd.Cow, error)

	cows map[int64]herd.Cow
}

func newMockHerd() *MockHerd {
	return &MockHerd{
		cows: map[int64]herd.Cow{
			1: {ID: 1, Name: "Bessie", Breed: "Holstein", Age: 3, Weight: 650.5, HealthStatus: "healthy", Price: 1250000},
			2: {ID: 2, Name: "Moo", Breed: "Angus", Age: 4, Weight: 800, HealthStatus: "sick", Price: 0},
		},
	}
}

func (m *MockHerd) List() ([]herd.Cow, error) {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	out := []herd.Cow{}
	for id := int64(1); id <= int64(len(m.cows))+1; id++ {
		if cow, ok := m.cows[id]; ok {
			out = append(out, cow)
		}
	}
	return out, nil
}

func (m *MockHerd) Get(id int64) (*herd.Cow, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	cow, ok := m.cows[id]
	if !ok {
		return nil, herd.ErrCowNotFound
	}
	return &cow, nil
}

func (m *MockHerd) Create(cow *herd.Cow) (*herd.Cow, error) {
	cow.ID = int64(len(m.cows) + 1)
	m.cows[cow.ID] = *cow
	return cow, nil
}

func (m *MockHerd) Update(id int64, update herd.CowUpdate) (*herd.Cow, error) {
	cow, ok := m.cows[id]
	if !ok {
		return nil, herd.ErrCowNotFound
	}
	if update.Name != nil {
		cow.Name = *update.Name
	}
	if update.Price != nil {
		cow.Price = *update.Price
	}
	if update.HealthStatus != nil {
		cow.HealthStatus = *update.HealthStatus
	}
	m.cows[id] = cow
	return &cow, nil
}

func (m *MockHerd) Delete(id int64) (*herd.Cow, error) {
	cow, ok := m.cows[id]
	if !ok {
		return nil, herd.ErrCowNotFound
	}
	delete(m.cows, id)
	return &cow, nil
}

func (m *MockHerd) ListByBreed(breed string) ([]herd.Cow, error) {
	out := []herd.Cow{}
	for _, cow := range m.cows {
		if cow.Breed == breed {
			out = append(out, cow)
		}
	}
	return out, nil
}

func (m *MockHerd) ListByHealthStatus(status string) ([]herd.Cow, error) {
	out := []herd.Cow{}
	for _, cow := range m.cows {
		if cow.HealthStatus == status {
			out = append(out, cow)
		}
	}
	return out, nil
}
