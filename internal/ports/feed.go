package ports

import (
	"context"
	"errors"
	"time"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// ErrFeedTimeout indica que no llegó ningún frame dentro del timeout de
// lectura. No es un error de la conexión.
var ErrFeedTimeout = errors.New("feed: receive timeout")

// LevelChange es un delta de un nivel de precio empujado por el feed.
type LevelChange struct {
	Side  domain.BookSide
	Price float64
	Size  float64
}

// BookUpdate es lo que el feed produce por token tocado en un frame:
// o un snapshot completo del book, o una lista de deltas de nivel.
type BookUpdate struct {
	TokenID  string
	Snapshot *domain.OrderBook // nil si el frame era un delta
	Deltas   []LevelChange
}

// MarketFeed es la conexión push de larga duración que alimenta el monitor.
// Una conexión = una suscripción: resuscribir es abrir una conexión nueva.
type MarketFeed interface {
	// Subscribe conecta y manda exactamente un frame de suscripción con
	// todos los token ids a vigilar.
	Subscribe(ctx context.Context, tokenIDs []string) error

	// Next bloquea hasta el siguiente frame entrante o hasta timeout.
	// Timeout devuelve (nil, ErrFeedTimeout) para que el loop haga su
	// bookkeeping de idle; cualquier otro error es irrecuperable para
	// esta conexión.
	Next(timeout time.Duration) ([]BookUpdate, error)

	Close() error
}
