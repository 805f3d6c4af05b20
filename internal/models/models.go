package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a source trade as seen in the disclosure feed.
type TransactionType string

const (
	Purchase TransactionType = "purchase"
	Sale     TransactionType = "sale"
)

// OrderSide is the direction of an order submitted to the broker.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// SourceTrade is one externally observed trade to be mirrored.
// Collectors must validate and de-duplicate before handing these over;
// the engine trusts the fields as-is.
type SourceTrade struct {
	Ticker          string          `json:"ticker"`
	TransactionType TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	OccurredAt      time.Time       `json:"occurred_at"`
	SourceReference string          `json:"source_reference"`
}

// Validate rejects malformed trades at the collector boundary.
func (t SourceTrade) Validate() error {
	if strings.TrimSpace(t.Ticker) == "" {
		return fmt.Errorf("source trade: empty ticker")
	}
	if t.TransactionType != Purchase && t.TransactionType != Sale {
		return fmt.Errorf("source trade %s: unknown transaction type %q", t.Ticker, t.TransactionType)
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("source trade %s: non-positive amount %s", t.Ticker, t.Amount)
	}
	return nil
}

// Side maps the disclosure transaction type onto an order direction.
func (t SourceTrade) Side() OrderSide {
	if t.TransactionType == Sale {
		return Sell
	}
	return Buy
}

// Order is a scaled order derived from a source trade.
type Order struct {
	Symbol          string          `json:"symbol"`
	Quantity        int64           `json:"quantity"`
	Side            OrderSide       `json:"side"`
	Notional        decimal.Decimal `json:"notional"`
	SourceReference string          `json:"source_reference,omitempty"`
}

// Fill is the broker's confirmation of an executed order.
type Fill struct {
	OrderID  string          `json:"order_id"`
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	Side     OrderSide       `json:"side"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	FilledAt time.Time       `json:"filled_at"`
}

// Quote is the latest known price for a symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// AccountBalance is the broker account state the engine sizes against.
type AccountBalance struct {
	CashAvailable decimal.Decimal `json:"cash_available"`
	TotalValue    decimal.Decimal `json:"total_value"`
}
