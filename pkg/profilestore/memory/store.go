package memory

import (
	"codeberg.org/miketth/lingoswitch/pkg/profilestore"
	"sync"
)

// Backend keeps profile state in memory. SaveErr, when set, makes every Save
// fail with it.
type Backend struct {
	lock  sync.Mutex
	state *profilestore.State
	saves int

	SaveErr error
}

func NewBackend() *Backend {
	return &Backend{}
}

// NewBackendWith starts out with state already persisted.
func NewBackendWith(state *profilestore.State) *Backend {
	return &Backend{state: state.Clone()}
}

func (b *Backend) Load() (*profilestore.State, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.state == nil {
		return nil, profilestore.ErrNoState
	}
	return b.state.Clone(), nil
}

func (b *Backend) Save(state *profilestore.State) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.SaveErr != nil {
		return b.SaveErr
	}

	b.state = state.Clone()
	b.saves++
	return nil
}

// Saves counts successful saves.
func (b *Backend) Saves() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.saves
}

func (b *Backend) Close() error {
	return nil
}
