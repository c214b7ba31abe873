// Package grouper agrupa mercados crudos en EventBaskets: conjuntos de
// patas cuyos outcomes garantizan contener al ganador.
//
// Tres estrategias, probadas en este orden por grupo:
//   - buckets: rangos numéricos mutuamente excluyentes (un mercado binario
//     por bucket, o un solo mercado multi-outcome). Solo se acepta si los
//     intervalos parseados son exhaustivos.
//   - yes-no: el par YES/NO de un mercado binario suelto.
//   - event-pair: dos mercados binarios emparejados en el mismo evento.
package grouper

import (
	"log/slog"
	"strings"

	"github.com/alejandrodnm/basketbot/internal/buckets"
	"github.com/alejandrodnm/basketbot/internal/domain"
)

// Group construye los baskets a partir del universo filtrado.
// Un grupo que no encaje en ninguna estrategia simplemente no produce
// basket; nunca es un error.
func Group(markets []domain.RawMarket) []domain.EventBasket {
	groups := make(map[string][]domain.RawMarket)
	order := make([]string, 0)
	for _, m := range markets {
		key := m.GroupID
		if key == "" {
			key = titleStem(m.Question)
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	baskets := make([]domain.EventBasket, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if b, ok := buildBasket(key, group); ok {
			baskets = append(baskets, b)
		}
	}

	slog.Info("baskets grouped", "markets", len(markets), "groups", len(order), "baskets", len(baskets))
	return baskets
}

func buildBasket(key string, group []domain.RawMarket) (domain.EventBasket, bool) {
	if len(group) == 1 {
		m := group[0]
		if len(m.Outcomes) > 2 {
			return bucketsFromOutcomes(key, m)
		}
		if len(m.Outcomes) == 2 {
			return yesNoBasket(key, m)
		}
		return domain.EventBasket{}, false
	}

	if b, ok := bucketsFromGroup(key, group); ok {
		return b, true
	}
	if len(group) == 2 {
		return eventPairBasket(key, group)
	}
	return domain.EventBasket{}, false
}

// bucketsFromOutcomes construye un basket bucket desde un único mercado
// multi-outcome: cada outcome es una pata YES con su label numérico.
func bucketsFromOutcomes(key string, m domain.RawMarket) (domain.EventBasket, bool) {
	ivs := make([]buckets.Interval, 0, len(m.Outcomes))
	legs := make([]domain.Leg, 0, len(m.Outcomes))
	for _, o := range m.Outcomes {
		iv, ok := buckets.Parse(o.Label)
		if !ok {
			return domain.EventBasket{}, false
		}
		ivs = append(ivs, iv)
		legs = append(legs, domain.Leg{
			MarketID: m.ConditionID,
			Label:    o.Label,
			TokenID:  o.TokenID,
			Side:     domain.SideYes,
		})
	}
	if !buckets.Exhaustive(ivs) {
		slog.Debug("bucket basket rejected, not exhaustive", "key", key, "legs", len(legs))
		return domain.EventBasket{}, false
	}
	return domain.EventBasket{
		Key:      key,
		Title:    basketTitle(m),
		Strategy: domain.StrategyBuckets,
		Legs:     legs,
	}, true
}

// bucketsFromGroup construye un basket bucket desde un grupo de mercados
// binarios, uno por bucket: se compra el YES de cada uno. El label numérico
// se extrae de la pregunta quitando el prefijo y sufijo comunes del grupo.
func bucketsFromGroup(key string, group []domain.RawMarket) (domain.EventBasket, bool) {
	questions := make([]string, len(group))
	for i, m := range group {
		questions[i] = m.Question
	}
	labels := stripCommonAffixes(questions)

	ivs := make([]buckets.Interval, 0, len(group))
	legs := make([]domain.Leg, 0, len(group))
	for i, m := range group {
		yes, _, ok := yesNoTokens(m)
		if !ok {
			return domain.EventBasket{}, false
		}
		iv, parsed := buckets.Parse(labels[i])
		if !parsed {
			return domain.EventBasket{}, false
		}
		ivs = append(ivs, iv)
		legs = append(legs, domain.Leg{
			MarketID: m.ConditionID,
			Label:    labels[i],
			TokenID:  yes,
			Side:     domain.SideYes,
		})
	}
	if !buckets.Exhaustive(ivs) {
		slog.Debug("bucket basket rejected, not exhaustive", "key", key, "legs", len(legs))
		return domain.EventBasket{}, false
	}
	return domain.EventBasket{
		Key:      key,
		Title:    basketTitle(group[0]),
		Strategy: domain.StrategyBuckets,
		Legs:     legs,
	}, true
}

// yesNoBasket construye el par complementario de un mercado binario.
func yesNoBasket(key string, m domain.RawMarket) (domain.EventBasket, bool) {
	yes, no, ok := yesNoTokens(m)
	if !ok {
		return domain.EventBasket{}, false
	}
	return domain.EventBasket{
		Key:      key,
		Title:    basketTitle(m),
		Strategy: domain.StrategyYesNo,
		Legs: []domain.Leg{
			{MarketID: m.ConditionID, Label: "Yes", TokenID: yes, Side: domain.SideYes},
			{MarketID: m.ConditionID, Label: "No", TokenID: no, Side: domain.SideNo},
		},
	}, true
}

// eventPairBasket empareja dos eventos binarios complementarios: se compra
// el YES de cada uno.
func eventPairBasket(key string, group []domain.RawMarket) (domain.EventBasket, bool) {
	legs := make([]domain.Leg, 0, 2)
	for _, m := range group {
		yes, _, ok := yesNoTokens(m)
		if !ok {
			return domain.EventBasket{}, false
		}
		legs = append(legs, domain.Leg{
			MarketID: m.ConditionID,
			Label:    m.Question,
			TokenID:  yes,
			Side:     domain.SideYes,
		})
	}
	return domain.EventBasket{
		Key:      key,
		Title:    basketTitle(group[0]),
		Strategy: domain.StrategyEventPair,
		Legs:     legs,
	}, true
}

// yesNoTokens mapea los outcomes de un mercado binario a (yes, no) por
// label case-insensitive. Si los labels no se reconocen cae al orden
// posicional [YES, NO]. El fallback es una imprecisión conocida para
// mercados con orden no estándar; se mantiene por compatibilidad y se
// deja rastro en el log.
func yesNoTokens(m domain.RawMarket) (yes, no string, ok bool) {
	if len(m.Outcomes) != 2 {
		return "", "", false
	}
	for _, o := range m.Outcomes {
		switch strings.ToLower(strings.TrimSpace(o.Label)) {
		case "yes":
			yes = o.TokenID
		case "no":
			no = o.TokenID
		}
	}
	if yes != "" && no != "" && yes != no {
		return yes, no, true
	}

	slog.Debug("ambiguous outcome labels, using positional [YES, NO] order",
		"market", m.ConditionID, "labels", []string{m.Outcomes[0].Label, m.Outcomes[1].Label})
	return m.Outcomes[0].TokenID, m.Outcomes[1].TokenID, true
}

func basketTitle(m domain.RawMarket) string {
	if m.GroupTitle != "" {
		return m.GroupTitle
	}
	return m.Question
}

// stemStopWords son las palabras comparadoras que varían entre buckets del
// mismo evento ("below 80" / "above 90") y no deben romper el stem.
var stemStopWords = map[string]bool{
	"below": true, "under": true, "less": true,
	"above": true, "over": true, "more": true,
	"between": true, "and": true, "to": true, "than": true, "or": true,
}

// titleStem normaliza un título para usarlo como clave de grupo cuando el
// mercado no trae group id explícito: minúsculas, sin dígitos, sin signos
// y sin palabras comparadoras.
func titleStem(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		if r >= 'a' && r <= 'z' || r == ' ' {
			sb.WriteRune(r)
		}
	}
	words := make([]string, 0)
	for _, w := range strings.Fields(sb.String()) {
		if !stemStopWords[w] {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

// stripCommonAffixes quita el prefijo y el sufijo comunes a todas las
// preguntas del grupo, dejando la parte que varía (el rango numérico).
func stripCommonAffixes(qs []string) []string {
	if len(qs) < 2 {
		return qs
	}

	prefix := qs[0]
	suffix := qs[0]
	for _, q := range qs[1:] {
		prefix = commonPrefix(prefix, q)
		suffix = commonSuffix(suffix, q)
	}

	// Recortar a frontera de palabra: un sufijo "0 on Friday?" compartido
	// por "...80" y "...90" se comería el último dígito del rango.
	if i := strings.LastIndex(prefix, " "); i >= 0 {
		prefix = prefix[:i+1]
	} else {
		prefix = ""
	}
	if i := strings.Index(suffix, " "); i >= 0 {
		suffix = suffix[i:]
	} else {
		suffix = ""
	}

	out := make([]string, len(qs))
	for i, q := range qs {
		s := q[len(prefix):]
		if len(s) >= len(suffix) {
			s = s[:len(s)-len(suffix)]
		}
		out[i] = strings.Trim(s, " ?:,.")
	}
	return out
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

func commonSuffix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return a[len(a)-i:]
}
