package polymarket

// ws.go — feed streaming del canal market del CLOB.
//
// Una conexión manda exactamente un frame de suscripción con todos los
// asset ids; no hay subscribe incremental. Para cambiar el set de tokens
// se cierra esta conexión y se abre una nueva (eso lo decide el caller).

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

const (
	marketChannelPath = "/market"
	wsDialTimeout     = 10 * time.Second
	wsPingInterval    = 10 * time.Second
)

// Feed implementa ports.MarketFeed sobre gorilla/websocket.
type Feed struct {
	base string
	conn *websocket.Conn
}

// NewFeed crea un feed sin conectar. base es el ws base URL ("wss://...").
func NewFeed(base string) *Feed {
	return &Feed{base: base}
}

// subscribeFrame es el único frame que mandamos tras conectar.
type subscribeFrame struct {
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

// wsEvent es un evento del canal market. event_type distingue snapshot
// completo ("book") de delta ("price_change").
type wsEvent struct {
	EventType string         `json:"event_type"`
	AssetID   string         `json:"asset_id"`
	Bids      []bookEntryRaw `json:"bids"`
	Asks      []bookEntryRaw `json:"asks"`
	Changes   []wsChange     `json:"changes"`
}

type wsChange struct {
	Price string `json:"price"`
	Side  string `json:"side"` // BUY | SELL
	Size  string `json:"size"`
}

// Subscribe conecta y manda el frame de suscripción.
func (f *Feed) Subscribe(ctx context.Context, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return fmt.Errorf("polymarket.Feed: empty token set")
	}

	dialer := websocket.Dialer{HandshakeTimeout: wsDialTimeout}
	conn, _, err := dialer.DialContext(ctx, f.base+marketChannelPath, nil)
	if err != nil {
		return fmt.Errorf("polymarket.Feed: dial: %w", err)
	}

	sub := subscribeFrame{AssetIDs: tokenIDs, Type: "market"}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("polymarket.Feed: subscribe: %w", err)
	}

	conn.SetPongHandler(func(string) error { return nil })
	f.conn = conn
	return nil
}

// Next bloquea hasta el siguiente frame o hasta timeout.
// Timeout de lectura devuelve ports.ErrFeedTimeout; el resto de errores
// son irrecuperables para esta conexión.
func (f *Feed) Next(timeout time.Duration) ([]ports.BookUpdate, error) {
	if f.conn == nil {
		return nil, fmt.Errorf("polymarket.Feed: not subscribed")
	}

	_ = f.conn.SetReadDeadline(time.Now().Add(timeout))
	_, raw, err := f.conn.ReadMessage()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			// Mantener la conexión viva durante ventanas sin actividad.
			_ = f.conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
			if perr := f.conn.WriteMessage(websocket.PingMessage, nil); perr != nil {
				return nil, fmt.Errorf("polymarket.Feed: ping: %w", perr)
			}
			return nil, ports.ErrFeedTimeout
		}
		return nil, fmt.Errorf("polymarket.Feed: read: %w", err)
	}

	return parseFrame(raw)
}

// parseFrame decodifica un frame: el canal manda o un array de eventos o
// un evento suelto. Eventos con forma desconocida se ignoran.
func parseFrame(raw []byte) ([]ports.BookUpdate, error) {
	var events []wsEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		var single wsEvent
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			// Frame no-JSON (p.ej. "PONG" en texto): no es un error.
			return nil, nil
		}
		events = []wsEvent{single}
	}

	updates := make([]ports.BookUpdate, 0, len(events))
	for _, ev := range events {
		if ev.AssetID == "" {
			continue
		}
		switch ev.EventType {
		case "book":
			book := domain.OrderBook{
				TokenID:    ev.AssetID,
				Bids:       mapEntries(ev.Bids, true),
				Asks:       mapEntries(ev.Asks, false),
				CapturedAt: time.Now(),
			}
			updates = append(updates, ports.BookUpdate{TokenID: ev.AssetID, Snapshot: &book})
		case "price_change":
			deltas := make([]ports.LevelChange, 0, len(ev.Changes))
			for _, ch := range ev.Changes {
				deltas = append(deltas, ports.LevelChange{
					Side:  domain.BookSide(ch.Side),
					Price: domain.ParsePrice(ch.Price),
					Size:  domain.ParsePrice(ch.Size),
				})
			}
			if len(deltas) > 0 {
				updates = append(updates, ports.BookUpdate{TokenID: ev.AssetID, Deltas: deltas})
			}
		}
	}
	return updates, nil
}

// Close cierra la conexión. Idempotente.
func (f *Feed) Close() error {
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}
