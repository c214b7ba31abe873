package ports

import (
	"context"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// UniverseQuery son los filtros que el provider puede aplicar server-side.
// Lo que el endpoint no soporte se filtra client-side en el builder.
type UniverseQuery struct {
	Mode         string // buckets | active | window
	MinLiquidity float64
	MinVolume24h float64
	MaxMarkets   int
}

// MarketProvider obtiene mercados crudos del endpoint paginado de metadata.
type MarketProvider interface {
	// FetchMarkets pagina automáticamente hasta agotar los resultados.
	// Los fallos por-página se saltan; solo un fallo total devuelve error.
	FetchMarkets(ctx context.Context, q UniverseQuery) ([]domain.RawMarket, error)
}
