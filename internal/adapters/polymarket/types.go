package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarket es un mercado de GET /markets de Gamma. Gamma devuelve varios
// campos numéricos y arrays como strings JSON, de ahí los json.Number y los
// campos string que se re-parsean en mapping.go.
type gammaMarket struct {
	ConditionID     string       `json:"conditionId"`
	Question        string       `json:"question"`
	Slug            string       `json:"slug"`
	EndDateISO      string       `json:"endDateIso"`
	Liquidity       json.Number  `json:"liquidityNum"`
	Volume24h       json.Number  `json:"volume24hr"`
	Outcomes        string       `json:"outcomes"`     // array JSON codificado como string
	ClobTokenIDs    string       `json:"clobTokenIds"` // array JSON codificado como string
	NegRiskMarketID string       `json:"negRiskMarketID"`
	Active          bool         `json:"active"`
	Closed          bool         `json:"closed"`
	Events          []gammaEvent `json:"events"`
}

// gammaEvent es el evento padre que agrupa mercados relacionados.
type gammaEvent struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// --- CLOB API ---

// orderBookRequest es el body del POST /books batch.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es la respuesta de un item en POST /books.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --- CLOB execution ---

// placeOrderRequest es el body de POST /order.
type placeOrderRequest struct {
	Order     orderPayload `json:"order"`
	Owner     string       `json:"owner"`
	OrderType string       `json:"orderType"`
}

// orderPayload es la orden serializada. Precios y tamaños van como strings
// decimales exactos.
type orderPayload struct {
	TokenID    string `json:"tokenID"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	Side       string `json:"side"`
	Expiration string `json:"expiration"`
	Nonce      string `json:"nonce"`
}

// placeOrderResponse es la respuesta de POST /order.
type placeOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	Error   string `json:"errorMsg"`
}

// openOrderResponse es una orden en GET /data/orders.
type openOrderResponse struct {
	ID           string `json:"id"`
	AssetID      string `json:"asset_id"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Price        string `json:"price"`
	Status       string `json:"status"` // LIVE | MATCHED | CANCELED
}

// --- Data API ---

// portfolioValueResponse es la respuesta de GET /value del data API.
type portfolioValueResponse []struct {
	User  string  `json:"user"`
	Value float64 `json:"value"`
}
