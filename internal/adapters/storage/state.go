package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// FileStateStore implementa ports.StateStore sobre un JSON en disco.
// Escribe tmp + rename: o está el estado viejo entero o el nuevo entero,
// nunca medio fichero.
type FileStateStore struct {
	path string
}

// NewFileStateStore crea el store para la ruta dada.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Load lee el estado si existe. Un fichero ausente no es un error: el
// proceso arranca con estado fresco.
func (s *FileStateStore) Load(_ context.Context) (domain.RuntimeState, bool, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RuntimeState{}, false, nil
		}
		return domain.RuntimeState{}, false, fmt.Errorf("storage.Load: read %q: %w", s.path, err)
	}

	var state domain.RuntimeState
	if err := json.Unmarshal(b, &state); err != nil {
		return domain.RuntimeState{}, false, fmt.Errorf("storage.Load: parse %q: %w", s.path, err)
	}
	return state, true, nil
}

// Save persiste el estado atómicamente.
func (s *FileStateStore) Save(_ context.Context, state domain.RuntimeState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("storage.Save: mkdir: %w", err)
	}

	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.Save: marshal: %w", err)
	}
	b = append(b, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("storage.Save: write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("storage.Save: rename: %w", err)
	}
	return nil
}

// MemStateStore es el sustituto en memoria para tests.
type MemStateStore struct {
	state domain.RuntimeState
	has   bool
	Saves int
}

// NewMemStateStore crea un store vacío.
func NewMemStateStore() *MemStateStore { return &MemStateStore{} }

func (m *MemStateStore) Load(_ context.Context) (domain.RuntimeState, bool, error) {
	return m.state, m.has, nil
}

func (m *MemStateStore) Save(_ context.Context, s domain.RuntimeState) error {
	m.state = s
	m.has = true
	m.Saves++
	return nil
}
