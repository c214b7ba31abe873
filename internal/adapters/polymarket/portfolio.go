package polymarket

import (
	"context"
	"fmt"
)

const valuePath = "/value"

// PortfolioValue devuelve el valor total del portfolio del wallet
// autenticado según el data API. Implementa ports.PortfolioProvider.
func (c *Client) PortfolioValue(ctx context.Context) (float64, error) {
	if c.creds == nil || c.creds.Address == "" {
		return 0, fmt.Errorf("polymarket.PortfolioValue: no wallet address configured")
	}

	var resp portfolioValueResponse
	u := fmt.Sprintf("%s%s?user=%s", c.dataBase, valuePath, c.creds.Address)
	if err := c.get(ctx, c.clobLimiter, u, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.PortfolioValue: %w", err)
	}
	if len(resp) == 0 {
		return 0, fmt.Errorf("polymarket.PortfolioValue: empty response")
	}
	return resp[0].Value, nil
}
