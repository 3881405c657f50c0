package lingoswitch

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"sync"
)

var ErrUnknownProfile = errors.New("unknown profile")

type InstalledLanguages interface {
	ListInstalledLanguages(ctx context.Context) ([]Language, error)
}

// Switcher tracks which profile is selected and applies profiles to the
// system without blocking the caller.
type Switcher struct {
	lock     sync.Mutex
	selected string
	pending  sync.WaitGroup

	store     ProfileStore
	installed InstalledLanguages
	applier   LanguageApplier
	log       *zap.SugaredLogger

	// OnChange, when set, is called with the new selection after every change.
	// It runs with no locks held, possibly on the apply goroutine.
	OnChange func(selected string)
}

func NewSwitcher(
	store ProfileStore,
	installed InstalledLanguages,
	applier LanguageApplier,
	log *zap.SugaredLogger,
) *Switcher {
	return &Switcher{
		store:     store,
		installed: installed,
		applier:   applier,
		log:       log,
	}
}

// MatchCurrentProfile reports the stored profile whose input methods are
// exactly the installed ones.
func (s *Switcher) MatchCurrentProfile(ctx context.Context) (string, bool, error) {
	langs, err := s.installed.ListInstalledLanguages(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list installed languages: %w", err)
	}

	name, ok := MatchProfile(langs, s.store.OrderedProfiles())
	return name, ok, nil
}

// Refresh recomputes the selection from the installed keyboards. An empty
// selection means no profile matches.
func (s *Switcher) Refresh(ctx context.Context) (string, error) {
	name, _, err := s.MatchCurrentProfile(ctx)
	if err != nil {
		return s.Selected(), err
	}

	s.setSelected(name)
	return name, nil
}

func (s *Switcher) Selected() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.selected
}

// Select marks the profile selected right away and applies it in the
// background. The returned channel receives exactly one value, nil on
// success. On failure the previous selection is restored; nothing is retried.
func (s *Switcher) Select(ctx context.Context, name string) <-chan error {
	result := make(chan error, 1)

	profile, ok := s.store.Profile(name)
	if !ok {
		result <- fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		close(result)
		return result
	}

	variant := s.store.PlatformVariant()
	previous := s.setSelected(name)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer close(result)

		err := s.applier.ApplyLanguageList(ctx, variant, profile)
		if err != nil {
			s.log.Warnw("failed to apply profile", "profile", name, "error", err)
			s.revert(name, previous)
			result <- fmt.Errorf("apply profile %q: %w", name, err)
			return
		}

		s.log.Infow("applied profile", "profile", name)
		result <- nil
	}()

	return result
}

// Wait blocks until every apply started by Select has finished.
func (s *Switcher) Wait() {
	s.pending.Wait()
}

func (s *Switcher) setSelected(name string) string {
	s.lock.Lock()
	previous := s.selected
	s.selected = name
	s.lock.Unlock()

	if previous != name {
		s.notify(name)
	}
	return previous
}

// revert restores previous unless another selection happened meanwhile.
func (s *Switcher) revert(failed, previous string) {
	s.lock.Lock()
	if s.selected != failed {
		s.lock.Unlock()
		return
	}
	s.selected = previous
	s.lock.Unlock()

	if previous != failed {
		s.notify(previous)
	}
}

func (s *Switcher) notify(name string) {
	if s.OnChange != nil {
		s.OnChange(name)
	}
}
