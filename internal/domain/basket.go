package domain

// Side es el lado del outcome que compramos en una pata.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// BasketStrategy identifica cómo se construyó el basket.
type BasketStrategy string

const (
	// StrategyBuckets: rangos numéricos mutuamente excluyentes que cubren toda la recta.
	StrategyBuckets BasketStrategy = "buckets"
	// StrategyYesNo: par YES/NO complementario de un mercado binario.
	StrategyYesNo BasketStrategy = "yes-no"
	// StrategyEventPair: dos eventos binarios emparejados (una pata YES de cada uno).
	StrategyEventPair BasketStrategy = "event-pair"
)

// Leg es un outcome token comprable dentro de un basket.
// Una vez priceado para un tick, el Leg es inmutable: el siguiente tick
// trabaja sobre una copia nueva del basket.
type Leg struct {
	MarketID string
	Label    string
	TokenID  string
	Side     Side
	// AskCost es el coste de comprar sharesPerLeg shares recorriendo los asks.
	// Solo tiene valor dentro de un basket priceado (ver pricing.PriceBaskets).
	AskCost float64
	// BrokerID es el mapping id de esta pata en el backend de ejecución
	// hosted. Vacío si el broker no conoce el mercado.
	BrokerID string
}

// EventBasket es un conjunto ordenado de Legs cuyos outcomes garantizan
// conjuntamente contener al ganador. Se reconstruye entero en cada refresh
// del universo: un basket viejo se descarta, nunca se muta entre refreshes.
type EventBasket struct {
	Key      string // id de grupo explícito o stem del título
	Title    string
	Strategy BasketStrategy
	Legs     []Leg
}

// TokenIDs devuelve los token ids de todas las patas, en orden.
func (b EventBasket) TokenIDs() []string {
	ids := make([]string, 0, len(b.Legs))
	for _, l := range b.Legs {
		ids = append(ids, l.TokenID)
	}
	return ids
}

// FullyMapped devuelve true si todas las patas tienen mapping en el broker.
func (b EventBasket) FullyMapped() bool {
	for _, l := range b.Legs {
		if l.BrokerID == "" {
			return false
		}
	}
	return true
}
