package domain

import "time"

// RuntimeState es la única entidad mutable compartida que sobrevive al
// proceso. La mutan RiskGuard y el motor de ejecución desde el único hilo
// de control, y se persiste atómicamente tras cada mutación.
type RuntimeState struct {
	Day               string     `json:"day"` // clave de día local, "2006-01-02"
	ExecutionsToday   int        `json:"executions_today"`
	NotionalToday     float64    `json:"notional_today"`
	Halted            bool       `json:"halted"`
	HaltReason        string     `json:"halt_reason,omitempty"`
	StartPnLTotal     *float64   `json:"start_pnl_total,omitempty"` // baseline PnL; nil hasta la primera lectura buena
	LastPnLCheck      *time.Time `json:"last_pnl_check,omitempty"`
	ConsecutiveErrors int        `json:"consecutive_errors"`
}

// LocalDayKey devuelve la clave de día local para t.
func LocalDayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// NewRuntimeState crea el estado fresco para el día de now.
func NewRuntimeState(now time.Time) RuntimeState {
	return RuntimeState{Day: LocalDayKey(now)}
}

// RollIfNewDay resetea el estado si la clave de día local cambió.
// Es la única vía por la que un halt se limpia sin reset explícito del
// operador: halted es sticky dentro del día.
func (s *RuntimeState) RollIfNewDay(now time.Time) bool {
	day := LocalDayKey(now)
	if s.Day == day {
		return false
	}
	*s = RuntimeState{Day: day}
	return true
}

// ClearHalt limpia un halt explícitamente (reset de operador).
// No toca contadores ni baseline.
func (s *RuntimeState) ClearHalt() {
	s.Halted = false
	s.HaltReason = ""
}

// RunStats son contadores en memoria para el resumen periódico.
// Se resetean en cada intervalo de resumen y nunca se persisten.
type RunStats struct {
	Frames       int
	BookUpdates  int
	Evaluations  int
	Debounced    int
	Candidates   int
	Actionable   int
	Attempts     int
	Idles        int
}

// Reset pone todos los contadores a cero.
func (r *RunStats) Reset() {
	*r = RunStats{}
}
