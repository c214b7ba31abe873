// Package simmer es el backend de ejecución hosted: un broker que recibe
// baskets enteros y ejecuta las patas server-side. El bot solo habla REST
// con su API batch; el broker mantiene su propio mapping de mercados.
package simmer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

const (
	defaultBase    = "https://api.simmer.markets/v1"
	requestTimeout = 15 * time.Second
)

// Client habla con la API del broker. Implementa ports.BasketExecutor y
// la validación de cuenta del selector.
type Client struct {
	rest *resty.Client
}

// New crea un client autenticado por API key.
func New(base, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("simmer.New: missing API key")
	}
	if base == "" {
		base = defaultBase
	}

	rest := resty.New().
		SetBaseURL(base).
		SetTimeout(requestTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	return &Client{rest: rest}, nil
}

// Name implementa ports.BasketExecutor.
func (c *Client) Name() string { return "simmer" }

type accountResponse struct {
	Paused     bool    `json:"paused"`
	BalanceUSD float64 `json:"balance_usd"`
}

// ValidateAccount comprueba que la cuenta pueda operar: ni pausada ni a cero.
func (c *Client) ValidateAccount(ctx context.Context) error {
	var acct accountResponse
	resp, err := c.rest.R().SetContext(ctx).SetResult(&acct).Get("/account")
	if err != nil {
		return fmt.Errorf("simmer.ValidateAccount: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("simmer.ValidateAccount: status %d: %s", resp.StatusCode(), resp.String())
	}
	if acct.Paused {
		return fmt.Errorf("simmer.ValidateAccount: account is paused")
	}
	if acct.BalanceUSD <= 0 {
		return fmt.Errorf("simmer.ValidateAccount: balance is $%.2f", acct.BalanceUSD)
	}
	slog.Info("simmer account validated", "balance", fmt.Sprintf("$%.2f", acct.BalanceUSD))
	return nil
}

type mappingResponse struct {
	Mappings map[string]string `json:"mappings"` // condition_id → broker market id
}

// ResolveMappings rellena Leg.BrokerID en los baskets cuyos mercados conoce
// el broker, y devuelve solo los baskets con todas las patas mapeadas.
// Los filtrados se loguean, no son un error: el broker simplemente no cubre
// todo el universo.
func (c *Client) ResolveMappings(ctx context.Context, baskets []domain.EventBasket) ([]domain.EventBasket, error) {
	ids := make([]string, 0)
	seen := make(map[string]bool)
	for _, b := range baskets {
		for _, l := range b.Legs {
			if !seen[l.MarketID] {
				seen[l.MarketID] = true
				ids = append(ids, l.MarketID)
			}
		}
	}

	var resp mappingResponse
	r, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{"market_ids": ids}).
		SetResult(&resp).
		Post("/markets/resolve")
	if err != nil {
		return nil, fmt.Errorf("simmer.ResolveMappings: %w", err)
	}
	if r.IsError() {
		return nil, fmt.Errorf("simmer.ResolveMappings: status %d: %s", r.StatusCode(), r.String())
	}

	mapped := make([]domain.EventBasket, 0, len(baskets))
	filtered := 0
	for _, b := range baskets {
		for i := range b.Legs {
			b.Legs[i].BrokerID = resp.Mappings[b.Legs[i].MarketID]
		}
		if b.FullyMapped() {
			mapped = append(mapped, b)
		} else {
			filtered++
		}
	}

	slog.Info("simmer mappings resolved",
		"baskets", len(baskets), "mapped", len(mapped), "filtered_unmapped", filtered)
	return mapped, nil
}

type submitLegPayload struct {
	BrokerID string  `json:"market_id"`
	TokenID  string  `json:"token_id"`
	Side     string  `json:"side"`
	Shares   float64 `json:"shares"`
}

type submitBasketResponse struct {
	BasketID string `json:"basket_id"`
	Orders   []struct {
		OrderID string `json:"order_id"`
		TokenID string `json:"token_id"`
	} `json:"orders"`
}

// SubmitBasket manda el basket entero en una llamada batch.
func (c *Client) SubmitBasket(ctx context.Context, basket domain.EventBasket, shares float64) ([]domain.SubmittedOrder, error) {
	legs := make([]submitLegPayload, len(basket.Legs))
	for i, l := range basket.Legs {
		if l.BrokerID == "" {
			return nil, fmt.Errorf("simmer.SubmitBasket: leg %s has no broker mapping", l.TokenID)
		}
		legs[i] = submitLegPayload{
			BrokerID: l.BrokerID,
			TokenID:  l.TokenID,
			Side:     string(l.Side),
			Shares:   shares,
		}
	}

	var resp submitBasketResponse
	r, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"client_ref": uuid.New().String(),
			"legs":       legs,
		}).
		SetResult(&resp).
		Post("/baskets")
	if err != nil {
		return nil, fmt.Errorf("simmer.SubmitBasket: %w", err)
	}
	if r.IsError() {
		return nil, fmt.Errorf("simmer.SubmitBasket: status %d: %s", r.StatusCode(), r.String())
	}

	now := time.Now()
	orders := make([]domain.SubmittedOrder, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		leg, ok := legByToken(basket, o.TokenID)
		if !ok {
			continue
		}
		orders = append(orders, domain.SubmittedOrder{
			LocalID:  resp.BasketID,
			OrderID:  o.OrderID,
			TokenID:  o.TokenID,
			MarketID: leg.MarketID,
			Shares:   shares,
			Price:    leg.AskCost / shares,
			PlacedAt: now,
		})
	}
	return orders, nil
}

type fillsResponse struct {
	Fills []struct {
		OrderID string  `json:"order_id"`
		Filled  float64 `json:"filled_shares"`
		Avg     float64 `json:"avg_price"`
		Open    bool    `json:"open"`
	} `json:"fills"`
}

// PollFills consulta el progreso de fills de las órdenes dadas.
func (c *Client) PollFills(ctx context.Context, orders []domain.SubmittedOrder) ([]domain.OrderFill, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.OrderID
	}

	var resp fillsResponse
	r, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{"order_ids": ids}).
		SetResult(&resp).
		Post("/orders/fills")
	if err != nil {
		return nil, fmt.Errorf("simmer.PollFills: %w", err)
	}
	if r.IsError() {
		return nil, fmt.Errorf("simmer.PollFills: status %d: %s", r.StatusCode(), r.String())
	}

	fills := make([]domain.OrderFill, 0, len(resp.Fills))
	for _, f := range resp.Fills {
		fills = append(fills, domain.OrderFill{
			OrderID:      f.OrderID,
			FilledShares: f.Filled,
			AvgPrice:     f.Avg,
			Open:         f.Open,
		})
	}
	return fills, nil
}

// Cancel cancela una orden abierta.
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	r, err := c.rest.R().SetContext(ctx).Delete("/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("simmer.Cancel %s: %w", orderID, err)
	}
	if r.IsError() {
		return fmt.Errorf("simmer.Cancel %s: status %d", orderID, r.StatusCode())
	}
	return nil
}

// Unwind deshace una pata ya llenada vía el endpoint batch de unwind.
func (c *Client) Unwind(ctx context.Context, leg domain.Leg, shares float64) error {
	r, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"market_id": leg.BrokerID,
			"token_id":  leg.TokenID,
			"shares":    shares,
		}).
		Post("/positions/unwind")
	if err != nil {
		return fmt.Errorf("simmer.Unwind %s: %w", leg.TokenID, err)
	}
	if r.IsError() {
		return fmt.Errorf("simmer.Unwind %s: status %d: %s", leg.TokenID, r.StatusCode(), r.String())
	}
	return nil
}

func legByToken(b domain.EventBasket, tokenID string) (domain.Leg, bool) {
	for _, l := range b.Legs {
		if l.TokenID == tokenID {
			return l, true
		}
	}
	return domain.Leg{}, false
}
