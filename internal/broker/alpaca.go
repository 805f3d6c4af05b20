package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"copytrader/internal/models"
)

// AlpacaAdapter implements Adapter against the Alpaca brokerage API.
type AlpacaAdapter struct {
	tradeClient *alpaca.Client     // trading data (account, orders)
	mdClient    *marketdata.Client // market data (prices)
}

// NewAlpacaAdapter builds the clients. They read API keys from the
// environment variables validated at config load.
func NewAlpacaAdapter() *AlpacaAdapter {
	return &AlpacaAdapter{
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{}),
		mdClient:    marketdata.NewClient(marketdata.ClientOpts{}),
	}
}

// AccountBalance fetches cash and total equity.
func (a *AlpacaAdapter) AccountBalance(ctx context.Context) (*models.AccountBalance, error) {
	acct, err := callCtx(ctx, func() (*alpaca.Account, error) {
		return a.tradeClient.GetAccount()
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca account: %w", err)
	}
	return &models.AccountBalance{
		CashAvailable: acct.Cash,
		TotalValue:    acct.Equity,
	}, nil
}

// Quote fetches the latest trade price for a symbol.
func (a *AlpacaAdapter) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	trade, err := callCtx(ctx, func() (*marketdata.Trade, error) {
		return a.mdClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca latest trade %s: %w", symbol, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("alpaca latest trade %s: no trade returned", symbol)
	}
	return &models.Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(trade.Price),
		Timestamp: trade.Timestamp,
	}, nil
}

// SubmitOrder places a day market order and polls briefly for the fill.
// A terminal non-fill status is an error; the caller treats it as a
// per-trade failure and the position state does not advance.
func (a *AlpacaAdapter) SubmitOrder(ctx context.Context, symbol string, quantity int64, side models.OrderSide) (*models.Fill, error) {
	qty := decimal.NewFromInt(quantity)
	order, err := callCtx(ctx, func() (*alpaca.Order, error) {
		return a.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
			Symbol:      symbol,
			Qty:         &qty,
			Side:        alpaca.Side(side),
			Type:        alpaca.Market,
			TimeInForce: alpaca.Day,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca place order %s: %w", symbol, err)
	}

	return a.awaitFill(ctx, order.ID)
}

// awaitFill polls order status once a second until filled, terminal, or the
// context expires.
func (a *AlpacaAdapter) awaitFill(ctx context.Context, orderID string) (*models.Fill, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("alpaca order %s: %w", orderID, ctx.Err())
		case <-ticker.C:
		}

		order, err := callCtx(ctx, func() (*alpaca.Order, error) {
			return a.tradeClient.GetOrder(orderID)
		})
		if err != nil {
			continue
		}

		switch strings.ToLower(string(order.Status)) {
		case "filled":
			filledAt := time.Now()
			if order.FilledAt != nil {
				filledAt = *order.FilledAt
			}
			avgPrice := decimal.Zero
			if order.FilledAvgPrice != nil {
				avgPrice = *order.FilledAvgPrice
			}
			return &models.Fill{
				OrderID:  order.ID,
				Symbol:   order.Symbol,
				Quantity: order.FilledQty.IntPart(),
				Side:     models.OrderSide(order.Side),
				AvgPrice: avgPrice,
				FilledAt: filledAt,
			}, nil
		case "canceled", "rejected", "expired":
			return nil, fmt.Errorf("alpaca order %s terminated with status %s", orderID, order.Status)
		}
	}
}

// callCtx runs a blocking SDK call in a goroutine so the caller's timeout
// holds even if the underlying HTTP call hangs.
func callCtx[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}
