package ports

import (
	"context"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// StateStore carga y guarda el RuntimeState durable.
// La implementación de fichero escribe tmp + rename para no dejar nunca
// un estado a medio escribir; los tests sustituyen una versión en memoria.
type StateStore interface {
	// Load devuelve (estado, true, nil) si existe estado previo,
	// (cero, false, nil) si no hay fichero.
	Load(ctx context.Context) (domain.RuntimeState, bool, error)

	// Save persiste el estado atómicamente.
	Save(ctx context.Context, s domain.RuntimeState) error
}
