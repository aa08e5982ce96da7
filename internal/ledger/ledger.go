package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

// Status is the local lifecycle state of a transaction.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusAuthorized Status = "AUTHORIZED"
	StatusFailed     Status = "FAILED"
	StatusRefunded   Status = "REFUNDED"
)

var (
	// ErrDuplicateBuyOrder means a transaction with the same buy order
	// already exists; the existing record is never overwritten.
	ErrDuplicateBuyOrder = errors.New("duplicate buy order")

	// ErrDuplicateToken means the gateway issued a token the ledger has
	// already seen. Should never happen; rejected rather than overwritten.
	ErrDuplicateToken = errors.New("duplicate token")

	// ErrTransactionNotFound means no transaction matches the given buy
	// order or token.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// StatusChange is one entry of a transaction's append-only history.
type StatusChange struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// Transaction is one attempted purchase payment and its provider-reported
// results. ProviderResponse holds the last commit/status answer and
// RefundResponse the refund answer, when those calls have happened.
type Transaction struct {
	BuyOrder         string                    `json:"buy_order"`
	SessionID        string                    `json:"session_id"`
	Amount           int                       `json:"amount"`
	Token            string                    `json:"token"`
	Status           Status                    `json:"status"`
	CreatedAt        time.Time                 `json:"created_at"`
	ConfirmedAt      *time.Time                `json:"confirmed_at,omitempty"`
	ProviderResponse *webpay.TransactionResult `json:"provider_response,omitempty"`
	RefundResponse   *webpay.RefundResult      `json:"refund_response,omitempty"`
	History          []StatusChange            `json:"history"`
}

// Ledger is the in-process record of all known transactions, indexed by buy
// order and by token. Process lifetime only; nothing survives a restart.
// Reads return copies so callers never share mutable state with the ledger;
// all writes after Insert go through the payment engine.
type Ledger struct {
	mu         sync.RWMutex
	byBuyOrder map[string]*Transaction
	byToken    map[string]*Transaction
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		byBuyOrder: make(map[string]*Transaction),
		byToken:    make(map[string]*Transaction),
	}
}

// Insert records a freshly created transaction. Both the buy order and the
// token must be unused.
func (l *Ledger) Insert(tx *Transaction) error {
	if tx.BuyOrder == "" || tx.Token == "" {
		return fmt.Errorf("transaction requires buy order and token")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byBuyOrder[tx.BuyOrder]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBuyOrder, tx.BuyOrder)
	}
	if _, exists := l.byToken[tx.Token]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateToken, tx.Token)
	}

	stored := copyTransaction(tx)
	stored.History = append(stored.History, StatusChange{Status: stored.Status, At: stored.CreatedAt})

	l.byBuyOrder[stored.BuyOrder] = stored
	l.byToken[stored.Token] = stored
	return nil
}

// Get returns the transaction matching a buy order or a token.
func (l *Ledger) Get(buyOrderOrToken string) (*Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if tx, ok := l.byBuyOrder[buyOrderOrToken]; ok {
		return copyTransaction(tx), nil
	}
	if tx, ok := l.byToken[buyOrderOrToken]; ok {
		return copyTransaction(tx), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, buyOrderOrToken)
}

// UpdateStatus records a provider-driven status change for a token. Only the
// payment engine calls this; the HTTP layer never writes to the ledger
// directly.
func (l *Ledger) UpdateStatus(token string, status Status, result *webpay.TransactionResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.byToken[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, token)
	}

	now := time.Now()
	if tx.Status != status {
		tx.History = append(tx.History, StatusChange{Status: status, At: now})
	}
	tx.Status = status
	if result != nil {
		tx.ProviderResponse = result
	}
	if (status == StatusAuthorized || status == StatusFailed) && tx.ConfirmedAt == nil {
		tx.ConfirmedAt = &now
	}
	return nil
}

// RecordRefund marks a transaction refunded and stores the gateway's refund
// answer.
func (l *Ledger) RecordRefund(token string, result *webpay.RefundResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.byToken[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, token)
	}

	tx.History = append(tx.History, StatusChange{Status: StatusRefunded, At: time.Now()})
	tx.Status = StatusRefunded
	tx.RefundResponse = result
	return nil
}

// List returns every known transaction, oldest first.
func (l *Ledger) List() []*Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Transaction, 0, len(l.byBuyOrder))
	for _, tx := range l.byBuyOrder {
		out = append(out, copyTransaction(tx))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].BuyOrder < out[j].BuyOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func copyTransaction(tx *Transaction) *Transaction {
	cp := *tx
	cp.History = append([]StatusChange(nil), tx.History...)
	if tx.ConfirmedAt != nil {
		t := *tx.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	if tx.ProviderResponse != nil {
		r := *tx.ProviderResponse
		cp.ProviderResponse = &r
	}
	if tx.RefundResponse != nil {
		r := *tx.RefundResponse
		cp.RefundResponse = &r
	}
	return &cp
}
