package json

import (
	"codeberg.org/miketth/lingoswitch/pkg/profilestore"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Backend stores profiles as an indented JSON document. Every save writes a
// temporary file next to the target and renames it into place.
type Backend struct {
	filename string
	lock     sync.Mutex
}

func NewBackend(filename string) (*Backend, error) {
	err := os.MkdirAll(filepath.Dir(filename), 0o755)
	if err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	return &Backend{filename: filename}, nil
}

func (b *Backend) Path() string {
	return b.filename
}

func (b *Backend) Load() (*profilestore.State, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	data, err := os.ReadFile(b.filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, profilestore.ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var state *profilestore.State
	err = json.Unmarshal(data, &state)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	return state, nil
}

func (b *Backend) Save(state *profilestore.State) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(b.filename), "."+filepath.Base(b.filename)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, b.filename); err != nil {
		return fmt.Errorf("replace %s: %w", b.filename, err)
	}

	return nil
}

func (b *Backend) Close() error {
	return nil
}
