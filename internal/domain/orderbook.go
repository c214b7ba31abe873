package domain

import (
	"sort"
	"strconv"
	"time"
)

// sizeEpsilon absorbe restos de tamaño por redondeo flotante al comparar
// contra cero o contra el total visible del book.
const sizeEpsilon = 1e-9

// OrderBook representa el libro de órdenes de un token en un instante.
// Se usa una vez por pasada de pricing y se descarta: no guardamos histórico.
type OrderBook struct {
	TokenID    string
	Bids       []BookEntry // ordenados mayor a menor precio
	Asks       []BookEntry // ordenados menor a mayor precio
	CapturedAt time.Time
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid devuelve el mejor precio de compra (mayor bid).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk devuelve el mejor precio de venta (menor ask).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Midpoint devuelve el punto medio entre best bid y best ask.
func (ob OrderBook) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// TotalAskSize devuelve el tamaño total visible del lado ask, en shares.
func (ob OrderBook) TotalAskSize() float64 {
	var total float64
	for _, a := range ob.Asks {
		total += a.Size
	}
	return total
}

// OrderCostForShares recorre los asks del más barato al más caro acumulando
// coste hasta llenar shares. Si el tamaño visible total no alcanza, devuelve
// (0, false): la pata queda sin precio este tick y su basket se descarta.
//
// Propiedades: no-decreciente en shares; ok == false exactamente cuando
// TotalAskSize() < shares (módulo sizeEpsilon).
func OrderCostForShares(asks []BookEntry, shares float64) (cost float64, ok bool) {
	if shares <= 0 {
		return 0, true
	}
	remaining := shares
	for _, a := range asks {
		if a.Size <= sizeEpsilon || a.Price <= 0 {
			continue
		}
		take := a.Size
		if take > remaining {
			take = remaining
		}
		cost += take * a.Price
		remaining -= take
		if remaining <= sizeEpsilon {
			return cost, true
		}
	}
	return 0, false
}

// BookSide distingue los dos lados del ladder en deltas del feed.
type BookSide string

const (
	BookBid BookSide = "BUY"
	BookAsk BookSide = "SELL"
)

// ApplyLevel aplica un cambio de nivel del feed streaming: fija el tamaño
// del nivel de precio dado (size == 0 elimina el nivel) manteniendo el
// orden del ladder.
func (ob *OrderBook) ApplyLevel(side BookSide, price, size float64) {
	levels := &ob.Asks
	if side == BookBid {
		levels = &ob.Bids
	}
	out := (*levels)[:0]
	replaced := false
	for _, l := range *levels {
		if l.Price == price {
			replaced = true
			if size > sizeEpsilon {
				out = append(out, BookEntry{Price: price, Size: size})
			}
			continue
		}
		out = append(out, l)
	}
	if !replaced && size > sizeEpsilon {
		out = append(out, BookEntry{Price: price, Size: size})
	}
	*levels = out
	if side == BookBid {
		sort.Slice(ob.Bids, func(i, j int) bool { return ob.Bids[i].Price > ob.Bids[j].Price })
	} else {
		sort.Slice(ob.Asks, func(i, j int) bool { return ob.Asks[i].Price < ob.Asks[j].Price })
	}
}

// ParsePrice convierte un string de precio a float64.
// Usado en el mapping de la API.
func ParsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
