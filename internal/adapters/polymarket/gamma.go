package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	// maxGammaPages acota la paginación por si el filtro server-side
	// devuelve un universo gigante.
	maxGammaPages = 50
)

// FetchMarkets implementa ports.MarketProvider contra Gamma.
// Aplica server-side los filtros que el endpoint soporta (active/closed,
// liquidez y volumen mínimos) y pagina por offset hasta agotar resultados
// o llenar q.MaxMarkets. Una página que falla se reintenta dentro del
// client; si aun así falla, se salta: ese trozo del universo simplemente
// no existe este refresh.
func (c *Client) FetchMarkets(ctx context.Context, q ports.UniverseQuery) ([]domain.RawMarket, error) {
	var all []domain.RawMarket
	dropped := 0

	for page := 0; page < maxGammaPages; page++ {
		u := c.gammaMarketsURL(q, page*gammaPageSize)

		var resp []gammaMarket
		if err := c.get(ctx, c.gammaLimiter, u, &resp); err != nil {
			slog.Debug("gamma page failed, skipping", "page", page, "err", err)
			if page == 0 {
				// Sin primera página no hay universo que construir.
				return nil, fmt.Errorf("gamma.FetchMarkets: first page: %w", err)
			}
			continue
		}
		if len(resp) == 0 {
			break
		}

		for _, gm := range resp {
			m, ok := mapGammaMarket(gm)
			if !ok {
				dropped++
				continue
			}
			all = append(all, m)
		}

		if q.MaxMarkets > 0 && len(all) >= q.MaxMarkets {
			all = all[:q.MaxMarkets]
			break
		}
		if len(resp) < gammaPageSize {
			break
		}
	}

	slog.Info("gamma markets fetched", "total", len(all), "dropped_unparseable", dropped, "mode", q.Mode)
	return all, nil
}

// gammaMarketsURL construye la URL de una página con los filtros server-side.
func (c *Client) gammaMarketsURL(q ports.UniverseQuery, offset int) string {
	v := url.Values{}
	v.Set("active", "true")
	v.Set("closed", "false")
	v.Set("limit", strconv.Itoa(gammaPageSize))
	v.Set("offset", strconv.Itoa(offset))
	v.Set("order", "volume24hr")
	v.Set("ascending", "false")
	if q.MinLiquidity > 0 {
		v.Set("liquidity_num_min", strconv.FormatFloat(q.MinLiquidity, 'f', -1, 64))
	}
	if q.MinVolume24h > 0 {
		v.Set("volume_num_min", strconv.FormatFloat(q.MinVolume24h, 'f', -1, 64))
	}
	return c.gammaBase + gammaMarketsPath + "?" + v.Encode()
}
