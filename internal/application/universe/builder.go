// Package universe construye el universo de mercados a vigilar: fetch del
// provider paginado más los filtros que el endpoint no soporta server-side.
package universe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/alejandrodnm/basketbot/config"
	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

// ErrEmptyUniverse indica que tras aplicar todos los filtros no quedó ningún
// mercado. Es terminal para el caller: no tiene sentido arrancar el monitor.
var ErrEmptyUniverse = errors.New("universe: no markets after filtering")

// Modos de universo. Cada uno selecciona una familia distinta de mercados:
//   - buckets: mercados que pueden formar baskets bucket (grupo explícito o
//     multi-outcome).
//   - active: mercados binarios genéricos, sin más restricción.
//   - window: mercados binarios de ventana rodante, con fecha de fin dentro
//     del horizonte configurado.
const (
	ModeBuckets = "buckets"
	ModeActive  = "active"
	ModeWindow  = "window"
)

// defaultWindowHours acota el modo window cuando max_hours_to_end no está
// configurado: una semana de horizonte.
const defaultWindowHours = 168.0

// Builder aplica los filtros client-side sobre lo que devuelve el provider.
type Builder struct {
	provider ports.MarketProvider
	cfg      config.UniverseConfig
	title    *regexp.Regexp
}

// NewBuilder crea el builder. Un TitlePattern inválido o un modo desconocido
// son errores de configuración, no algo que se pueda ignorar en silencio.
func NewBuilder(provider ports.MarketProvider, cfg config.UniverseConfig) (*Builder, error) {
	switch cfg.Mode {
	case "", ModeBuckets, ModeActive, ModeWindow:
	default:
		return nil, fmt.Errorf("universe.NewBuilder: unknown mode %q", cfg.Mode)
	}

	b := &Builder{provider: provider, cfg: cfg}
	if cfg.TitlePattern != "" {
		re, err := regexp.Compile(cfg.TitlePattern)
		if err != nil {
			return nil, fmt.Errorf("universe.NewBuilder: title_pattern: %w", err)
		}
		b.title = re
	}
	return b, nil
}

// Build obtiene y filtra el universo. Devuelve ErrEmptyUniverse si no queda
// ningún mercado tradeable.
func (b *Builder) Build(ctx context.Context) ([]domain.RawMarket, error) {
	raw, err := b.provider.FetchMarkets(ctx, ports.UniverseQuery{
		Mode:         b.cfg.Mode,
		MinLiquidity: b.cfg.MinLiquidity,
		MinVolume24h: b.cfg.MinVolume24h,
		MaxMarkets:   b.cfg.MaxMarkets,
	})
	if err != nil {
		return nil, fmt.Errorf("universe.Build: %w", err)
	}

	kept := make([]domain.RawMarket, 0, len(raw))
	for _, m := range raw {
		if !b.keep(m) {
			continue
		}
		kept = append(kept, m)
	}

	slog.Info("universe built",
		"mode", b.cfg.Mode, "fetched", len(raw), "kept", len(kept))

	if len(kept) == 0 {
		return nil, ErrEmptyUniverse
	}
	return kept, nil
}

// keep aplica los filtros que el endpoint no garantiza: selección por modo,
// ventana temporal, regex de título y un re-chequeo de liquidez/volumen por
// si el server los ignoró.
func (b *Builder) keep(m domain.RawMarket) bool {
	if !m.Tradeable() {
		return false
	}
	if !b.keepForMode(m) {
		return false
	}
	if m.Liquidity < b.cfg.MinLiquidity {
		return false
	}
	if m.Volume24h < b.cfg.MinVolume24h {
		return false
	}

	hours := m.HoursToEnd()
	if b.cfg.MinHoursToEnd > 0 && hours < b.cfg.MinHoursToEnd {
		return false
	}
	if b.cfg.MaxHoursToEnd > 0 && hours > b.cfg.MaxHoursToEnd {
		return false
	}

	if b.title != nil && !b.title.MatchString(m.Question) {
		return false
	}
	return true
}

// keepForMode aplica la selección propia de cada modo de universo.
func (b *Builder) keepForMode(m domain.RawMarket) bool {
	switch b.cfg.Mode {
	case ModeBuckets:
		// Solo mercados capaces de formar un basket bucket: o pertenecen a
		// un grupo explícito (un binario por bucket) o traen los buckets
		// como outcomes de un único mercado.
		return m.GroupID != "" || len(m.Outcomes) > 2
	case ModeActive:
		return len(m.Outcomes) == 2
	case ModeWindow:
		// Eventos de ventana rodante: binarios con fecha de fin conocida
		// dentro del horizonte. Sin max_hours_to_end configurado se acota
		// a una semana.
		if len(m.Outcomes) != 2 || m.EndDate.IsZero() {
			return false
		}
		maxHours := b.cfg.MaxHoursToEnd
		if maxHours <= 0 {
			maxHours = defaultWindowHours
		}
		return m.HoursToEnd() <= maxHours
	default:
		return true
	}
}
