package polymarket

// exec.go — direct CLOB execution backend.
//
// Implements ports.BasketExecutor against the place/cancel/poll-fills API.
// Prices and sizes are serialized as exact decimal strings; the CLOB
// rejects floats with binary noise in them.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

const (
	orderPath      = "/order"
	openOrdersPath = "/data/orders"

	// maxAskSlippage pads the limit price over the observed walk price so a
	// book move between pricing and submit still crosses.
	maxAskSlippage = 0.01
)

// CLOBExecutor is the direct-exchange execution backend.
type CLOBExecutor struct {
	client *Client
}

// NewCLOBExecutor wraps an authenticated client. Fails if the client has no
// credentials: the selector must never hand out an unauthenticated backend.
func NewCLOBExecutor(client *Client) (*CLOBExecutor, error) {
	if client.creds == nil {
		return nil, fmt.Errorf("polymarket.NewCLOBExecutor: client has no credentials")
	}
	return &CLOBExecutor{client: client}, nil
}

// Name implements ports.BasketExecutor.
func (e *CLOBExecutor) Name() string { return "clob" }

// SubmitBasket places one marketable limit order per leg. If a leg fails,
// the orders already placed are returned together with the error so the
// engine can reconcile/cancel them.
func (e *CLOBExecutor) SubmitBasket(ctx context.Context, basket domain.EventBasket, shares float64) ([]domain.SubmittedOrder, error) {
	placed := make([]domain.SubmittedOrder, 0, len(basket.Legs))

	for _, leg := range basket.Legs {
		limit := legLimitPrice(leg, shares)
		order, err := e.placeOrder(ctx, leg, shares, limit)
		if err != nil {
			return placed, fmt.Errorf("polymarket.SubmitBasket: leg %s: %w", leg.TokenID, err)
		}
		placed = append(placed, order)
	}
	return placed, nil
}

// legLimitPrice derives the limit from the priced ask cost plus slippage pad.
func legLimitPrice(leg domain.Leg, shares float64) float64 {
	if shares <= 0 || leg.AskCost <= 0 {
		return maxAskSlippage
	}
	limit := leg.AskCost/shares + maxAskSlippage
	if limit > 0.999 {
		limit = 0.999
	}
	return limit
}

func (e *CLOBExecutor) placeOrder(ctx context.Context, leg domain.Leg, shares, limit float64) (domain.SubmittedOrder, error) {
	localID := uuid.New().String()

	payload := placeOrderRequest{
		Order: orderPayload{
			TokenID:    leg.TokenID,
			Price:      decimal.NewFromFloat(limit).Round(3).String(),
			Size:       decimal.NewFromFloat(shares).Round(2).String(),
			Side:       "BUY",
			Expiration: "0",
			Nonce:      localID,
		},
		Owner:     e.client.creds.Key,
		OrderType: "FAK", // fill-and-kill: lo que no cruce no se queda resting
	}

	var resp placeOrderResponse
	if err := e.doSigned(ctx, http.MethodPost, orderPath, payload, &resp); err != nil {
		return domain.SubmittedOrder{}, err
	}
	if !resp.Success {
		return domain.SubmittedOrder{}, fmt.Errorf("order rejected: %s", resp.Error)
	}

	slog.Debug("clob order placed",
		"token", leg.TokenID, "order_id", resp.OrderID, "limit", limit, "shares", shares)

	return domain.SubmittedOrder{
		LocalID:  localID,
		OrderID:  resp.OrderID,
		TokenID:  leg.TokenID,
		MarketID: leg.MarketID,
		Shares:   shares,
		Price:    limit,
		PlacedAt: time.Now(),
	}, nil
}

// PollFills reads current order state for the given orders.
func (e *CLOBExecutor) PollFills(ctx context.Context, orders []domain.SubmittedOrder) ([]domain.OrderFill, error) {
	var open []openOrderResponse
	if err := e.doSigned(ctx, http.MethodGet, openOrdersPath, nil, &open); err != nil {
		return nil, fmt.Errorf("polymarket.PollFills: %w", err)
	}

	openByID := make(map[string]openOrderResponse, len(open))
	for _, o := range open {
		openByID[o.ID] = o
	}

	fills := make([]domain.OrderFill, 0, len(orders))
	for _, ord := range orders {
		if o, ok := openByID[ord.OrderID]; ok {
			fills = append(fills, domain.OrderFill{
				OrderID:      ord.OrderID,
				FilledShares: domain.ParsePrice(o.SizeMatched),
				AvgPrice:     domain.ParsePrice(o.Price),
				Open:         o.Status == "LIVE",
			})
			continue
		}
		// No longer in the open set: an FAK order either filled fully or
		// was killed. Without a trades lookup we assume full fill; the
		// reconciliation threshold catches the optimistic case.
		fills = append(fills, domain.OrderFill{
			OrderID:      ord.OrderID,
			FilledShares: ord.Shares,
			AvgPrice:     ord.Price,
			Open:         false,
		})
	}
	return fills, nil
}

// Cancel cancels one still-open order.
func (e *CLOBExecutor) Cancel(ctx context.Context, orderID string) error {
	body := map[string]string{"orderID": orderID}
	if err := e.doSigned(ctx, http.MethodDelete, orderPath, body, nil); err != nil {
		return fmt.Errorf("polymarket.Cancel %s: %w", orderID, err)
	}
	return nil
}

// Unwind market-sells a filled leg.
func (e *CLOBExecutor) Unwind(ctx context.Context, leg domain.Leg, shares float64) error {
	payload := placeOrderRequest{
		Order: orderPayload{
			TokenID:    leg.TokenID,
			Price:      "0.01", // floor marketable: cruza contra lo que haya
			Size:       decimal.NewFromFloat(shares).Round(2).String(),
			Side:       "SELL",
			Expiration: "0",
			Nonce:      uuid.New().String(),
		},
		Owner:     e.client.creds.Key,
		OrderType: "FAK",
	}

	var resp placeOrderResponse
	if err := e.doSigned(ctx, http.MethodPost, orderPath, payload, &resp); err != nil {
		return fmt.Errorf("polymarket.Unwind %s: %w", leg.TokenID, err)
	}
	if !resp.Success {
		return fmt.Errorf("polymarket.Unwind %s: rejected: %s", leg.TokenID, resp.Error)
	}
	return nil
}

// doSigned runs a signed request through the shared retry/rate-limit core.
func (e *CLOBExecutor) doSigned(ctx context.Context, method, path string, body, out any) error {
	var buf []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		buf = b
	}

	return e.client.doWithRetry(ctx, e.client.clobLimiter, func() (*http.Response, error) {
		var reader *bytes.Reader
		if buf != nil {
			reader = bytes.NewReader(buf)
		} else {
			reader = bytes.NewReader(nil)
		}
		req, err := http.NewRequestWithContext(ctx, method, e.client.clobBase+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if err := e.client.signRequest(req, method, path, buf); err != nil {
			return nil, err
		}
		return e.client.http.Do(req)
	}, out)
}
