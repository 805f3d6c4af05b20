package broker

import (
	"context"

	"copytrader/internal/models"
)

// Adapter is the brokerage boundary the engine trades through.
// Interfaces define behavior: any struct implementing these methods
// satisfies the Adapter, which lets tests swap in a stub and keeps the
// engine free of SDK types. All calls are synchronous; the engine wraps
// each one with its configured timeout via the context.
type Adapter interface {
	AccountBalance(ctx context.Context) (*models.AccountBalance, error)
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	SubmitOrder(ctx context.Context, symbol string, quantity int64, side models.OrderSide) (*models.Fill, error)
}
