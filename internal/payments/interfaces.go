package payments

import (
	"context"

	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

// Gateway is the outbound payment provider surface the engine drives.
// Implementations: webpay.Client
type Gateway interface {
	// Create opens a transaction and returns the redirect token and URL.
	Create(ctx context.Context, amount int, buyOrder, sessionID, returnURL string) (*webpay.CreateResponse, error)

	// Commit confirms a transaction. The provider decides the outcome; the
	// engine never invents success.
	Commit(ctx context.Context, token string) (*webpay.TransactionResult, error)

	// Status returns the provider's current view of a transaction.
	Status(ctx context.Context, token string) (*webpay.TransactionResult, error)

	// Refund reverses or nullifies an authorized transaction.
	Refund(ctx context.Context, token string, amount int) (*webpay.RefundResult, error)
}
