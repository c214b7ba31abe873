package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// MetricsWriter emite un stream JSONL append-only de métricas por tick.
// Va detrás de lumberjack para que el fichero rote solo y los tailers
// externos no se coman un log infinito.
type MetricsWriter struct {
	mu  sync.Mutex
	out *lumberjack.Logger
}

// NewMetricsWriter crea el writer para la ruta dada.
// Con ruta vacía devuelve nil: el caller puede llamar a Write sobre nil
// y no pasa nada (métricas desactivadas).
func NewMetricsWriter(path string) *MetricsWriter {
	if path == "" {
		return nil
	}
	return &MetricsWriter{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     7, // días
			Compress:   true,
		},
	}
}

// Write añade v como una línea JSON.
func (w *MetricsWriter) Write(v any) error {
	if w == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage.MetricsWriter: marshal: %w", err)
	}
	b = append(b, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(b); err != nil {
		return fmt.Errorf("storage.MetricsWriter: write: %w", err)
	}
	return nil
}

// Close cierra el fichero subyacente.
func (w *MetricsWriter) Close() error {
	if w == nil {
		return nil
	}
	return w.out.Close()
}
