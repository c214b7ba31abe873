package polymarket

// clob.go — fetch batch de orderbooks del CLOB.
//
// El fan-out usa errgroup con límite de concurrencia: los batches se piden
// en paralelo pero el rate limiter de /books marca el ritmo real. Un batch
// que falla deja sus tokens fuera del mapa resultado en vez de tumbar la
// pasada entera: la pata sin book se descarta este tick y ya está.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

const (
	booksPath      = "/books"
	booksBatchSize = 20 // máx token_ids por request a /books
	booksWorkers   = 8
)

// FetchOrderBooks obtiene los orderbooks para los token_ids dados.
// Implementa ports.BookProvider.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.OrderBook{}, nil
	}

	batches := splitBatches(tokenIDs, booksBatchSize)

	var mu sync.Mutex
	result := make(map[string]domain.OrderBook, len(tokenIDs))
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(booksWorkers)

	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			books, err := c.fetchBooksBatch(gctx, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				slog.Debug("books batch failed, dropping tokens this tick",
					"tokens", len(batch), "err", err)
				return nil
			}
			for k, v := range books {
				result[k] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("order books fetched",
		"tokens", len(tokenIDs),
		"books", len(result),
		"failed_batches", failed,
	)
	return result, nil
}

// splitBatches divide tokenIDs en slices de tamaño máximo size.
func splitBatches(tokenIDs []string, size int) [][]string {
	if size <= 0 {
		size = booksBatchSize
	}
	batches := make([][]string, 0, (len(tokenIDs)+size-1)/size)
	for i := 0; i < len(tokenIDs); i += size {
		end := i + size
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}
		batches = append(batches, tokenIDs[i:end])
	}
	return batches
}

// fetchBooksBatch hace un POST /books para un batch de token_ids.
func (c *Client) fetchBooksBatch(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	body := make([]orderBookRequest, len(tokenIDs))
	for i, id := range tokenIDs {
		body[i] = orderBookRequest{TokenID: id}
	}

	var resp []orderBookResponse
	if err := c.post(ctx, c.booksLimiter, c.clobBase+booksPath, body, &resp); err != nil {
		return nil, err
	}
	return mapOrderBooks(resp, time.Now()), nil
}
