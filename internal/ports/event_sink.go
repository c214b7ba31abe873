package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// EventSink es el log estructurado append-only que consumen las
// herramientas de reporting externas. Solo escritura.
type EventSink interface {
	// RecordCandidates persiste los candidates de un tick de evaluación.
	RecordCandidates(ctx context.Context, candidates []domain.Candidate) error

	// RecordExecution persiste el resultado de un intento de ejecución.
	RecordExecution(ctx context.Context, report domain.ExecutionReport) error

	// RecordHalt persiste una transición a HALTED.
	RecordHalt(ctx context.Context, reason string, at time.Time) error

	Close() error
}

// Notifier presenta candidates al operador (consola en la implementación real).
type Notifier interface {
	Notify(ctx context.Context, candidates []domain.Candidate) error
}
