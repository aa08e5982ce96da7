package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucassmelendez/ct-fastapi/internal/ledger"
	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

var (
	// ErrInvalidAmount means the requested amount is not a positive integer.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrRefundNotAllowed means the transaction is not in a refundable state.
	// The ledger is left untouched.
	ErrRefundNotAllowed = errors.New("refund not allowed")
)

// CreateRequest asks the engine to open a new transaction. BuyOrder and
// SessionID are generated when empty; ReturnURL falls back to the configured
// default.
type CreateRequest struct {
	Amount    int
	BuyOrder  string
	SessionID string
	ReturnURL string
}

// CreateResult is returned to the caller so it can redirect the payer.
type CreateResult struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	BuyOrder  string    `json:"buy_order"`
	SessionID string    `json:"session_id"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Engine runs the transaction lifecycle: it is the only writer of the ledger
// and every transition it records is driven by a gateway response. Mutating
// operations on one token are serialized by a per-token lock held across the
// gateway call and the ledger update, so concurrent confirms make exactly one
// gateway call.
type Engine struct {
	gateway          Gateway
	ledger           *ledger.Ledger
	defaultReturnURL string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a payment engine around a gateway and a ledger.
func NewEngine(gateway Gateway, l *ledger.Ledger, defaultReturnURL string) *Engine {
	return &Engine{
		gateway:          gateway,
		ledger:           l,
		defaultReturnURL: defaultReturnURL,
		locks:            make(map[string]*sync.Mutex),
	}
}

// lock serializes critical sections for one key. Entries are kept for the
// process lifetime, same as the ledger records they guard.
func (e *Engine) lock(key string) func() {
	e.mu.Lock()
	m, ok := e.locks[key]
	if !ok {
		m = &sync.Mutex{}
		e.locks[key] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// detach returns a context that survives the caller hanging up. A gateway
// call in flight must finish and land in the ledger even when the client
// connection is gone, otherwise the token stays ambiguous forever. The
// gateway's own HTTP timeout still bounds the call.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// Create validates the request, opens the transaction at the gateway and
// inserts it as CREATED. A duplicate buy order is rejected before the gateway
// is called.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAmount, req.Amount)
	}

	buyOrder := req.BuyOrder
	if buyOrder == "" {
		buyOrder = "cow_order_" + shortID()
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "session_" + shortID()
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = e.defaultReturnURL
	}

	// Serialize on the buy order so two concurrent creates with the same
	// order cannot both reach the gateway.
	unlock := e.lock("order:" + buyOrder)
	defer unlock()

	if _, err := e.ledger.Get(buyOrder); err == nil {
		return nil, fmt.Errorf("%w: %s", ledger.ErrDuplicateBuyOrder, buyOrder)
	}

	resp, err := e.gateway.Create(detach(ctx), req.Amount, buyOrder, sessionID, returnURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tx := &ledger.Transaction{
		BuyOrder:  buyOrder,
		SessionID: sessionID,
		Amount:    req.Amount,
		Token:     resp.Token,
		Status:    ledger.StatusCreated,
		CreatedAt: now,
	}
	if err := e.ledger.Insert(tx); err != nil {
		// The gateway already holds a transaction we cannot track. Surface
		// the insert failure; a later status query against the token will
		// still answer from the gateway.
		log.Printf("[payments] created token %s but ledger insert failed: %v", resp.Token, err)
		return nil, err
	}

	log.Printf("[payments] created transaction %s (amount %d)", buyOrder, req.Amount)
	return &CreateResult{
		Token:     resp.Token,
		URL:       resp.URL,
		BuyOrder:  buyOrder,
		SessionID: sessionID,
		Amount:    req.Amount,
		CreatedAt: now,
	}, nil
}

// Confirm drives CREATED to AUTHORIZED or FAILED based on the gateway's
// response code. Confirming a token that already left CREATED is idempotent:
// the stored result is returned and the gateway is not called again, so a
// webhook confirmation and a browser-return confirmation can race safely.
func (e *Engine) Confirm(ctx context.Context, token string) (*ledger.Transaction, error) {
	unlock := e.lock(token)
	defer unlock()

	tx, err := e.ledger.Get(token)
	if err != nil {
		return nil, err
	}
	if tx.Status != ledger.StatusCreated {
		return tx, nil
	}

	result, err := e.gateway.Commit(detach(ctx), tx.Token)
	if err != nil {
		if errors.Is(err, webpay.ErrProviderRejected) {
			// The gateway may refuse a second commit it already processed
			// (e.g. a webhook landed first at the provider side). Its status
			// endpoint is authoritative, so fall back to it.
			if result, statusErr := e.gateway.Status(detach(ctx), tx.Token); statusErr == nil {
				if status := statusFromResult(result); status != ledger.StatusCreated {
					if err := e.ledger.UpdateStatus(tx.Token, status, result); err != nil {
						return nil, err
					}
				}
				return e.ledger.Get(tx.Token)
			}
		}
		return nil, err
	}

	return e.applyResult(tx.Token, result)
}

// Status surfaces the gateway's current view of a token and reconciles the
// local record when the two disagree. Read-only for the caller; never
// answers with a default value for an unknown token.
func (e *Engine) Status(ctx context.Context, token string) (*ledger.Transaction, error) {
	tx, err := e.ledger.Get(token)
	if err != nil {
		return nil, err
	}

	// The lock is held across the gateway call, not just the write: a status
	// response fetched before a concurrent confirm finishes must not land
	// after it and overwrite the newer state.
	unlock := e.lock(tx.Token)
	defer unlock()

	result, err := e.gateway.Status(detach(ctx), tx.Token)
	if err != nil {
		return nil, err
	}

	want := statusFromResult(result)
	if current, err := e.ledger.Get(tx.Token); err == nil && want != current.Status {
		log.Printf("[payments] reconciling %s: local %s, provider %s", token, current.Status, want)
	}
	if err := e.ledger.UpdateStatus(tx.Token, want, result); err != nil {
		return nil, err
	}

	return e.ledger.Get(tx.Token)
}

// Refund reverses an AUTHORIZED transaction. Amount zero means the full
// original amount. A refused refund is not a transition: the ledger keeps
// its state and the error is surfaced.
func (e *Engine) Refund(ctx context.Context, token string, amount int) (*webpay.RefundResult, error) {
	unlock := e.lock(token)
	defer unlock()

	tx, err := e.ledger.Get(token)
	if err != nil {
		return nil, err
	}
	if tx.Status != ledger.StatusAuthorized {
		return nil, fmt.Errorf("%w: transaction %s is %s", ErrRefundNotAllowed, tx.BuyOrder, tx.Status)
	}

	if amount == 0 {
		amount = tx.Amount
	}
	if amount < 0 || amount > tx.Amount {
		return nil, fmt.Errorf("%w: got %d, transaction amount is %d", ErrInvalidAmount, amount, tx.Amount)
	}

	result, err := e.gateway.Refund(detach(ctx), tx.Token, amount)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.RecordRefund(tx.Token, result); err != nil {
		return nil, err
	}

	log.Printf("[payments] refunded %s (%s, balance %.0f)", tx.BuyOrder, result.Type, result.Balance)
	return result, nil
}

// List returns every ledger entry, oldest first.
func (e *Engine) List() []*ledger.Transaction {
	return e.ledger.List()
}

// Get returns a single ledger entry by buy order or token, without touching
// the gateway.
func (e *Engine) Get(buyOrderOrToken string) (*ledger.Transaction, error) {
	return e.ledger.Get(buyOrderOrToken)
}

// applyResult records a commit outcome. Caller holds the token lock.
func (e *Engine) applyResult(token string, result *webpay.TransactionResult) (*ledger.Transaction, error) {
	status := ledger.StatusFailed
	if result.Authorized() {
		status = ledger.StatusAuthorized
	}
	if err := e.ledger.UpdateStatus(token, status, result); err != nil {
		return nil, err
	}
	log.Printf("[payments] confirmed %s: response code %d -> %s", result.BuyOrder, result.ResponseCode, status)
	return e.ledger.Get(token)
}

// statusFromResult maps the gateway's status vocabulary onto the local
// lifecycle. The gateway's latest answer always wins during reconciliation.
func statusFromResult(result *webpay.TransactionResult) ledger.Status {
	switch result.Status {
	case "AUTHORIZED", "CAPTURED":
		if result.Authorized() {
			return ledger.StatusAuthorized
		}
		return ledger.StatusFailed
	case "REVERSED", "NULLIFIED", "PARTIALLY_NULLIFIED":
		return ledger.StatusRefunded
	case "FAILED":
		return ledger.StatusFailed
	default: // INITIALIZED and anything unknown
		return ledger.StatusCreated
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
