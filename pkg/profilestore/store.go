package profilestore

import (
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"slices"
	"sync"
	"sync/atomic"
)

var _ lingoswitch.ProfileStore = (*Store)(nil)

// Store holds the language profiles. Reads are served from an immutable
// snapshot without locking; mutations are serialized and persisted before
// they become visible.
type Store struct {
	lock    sync.Mutex
	current atomic.Pointer[State]

	backend   Backend
	languages lingoswitch.SystemLanguages
	log       *zap.SugaredLogger
}

// Open loads the persisted profiles. Missing or invalid state is discarded
// and replaced by a fresh main profile built from the system language list.
// Only a failure to read the system language list is returned.
func Open(ctx context.Context, backend Backend, languages lingoswitch.SystemLanguages, log *zap.SugaredLogger) (*Store, error) {
	s := &Store{
		backend:   backend,
		languages: languages,
		log:       log,
	}

	state, err := backend.Load()
	if err == nil {
		err = Validate(state)
	}

	switch {
	case err == nil:
		s.current.Store(state)
		log.Debugw("loaded profiles", "count", len(state.Profiles))
		return s, nil
	case errors.Is(err, ErrNoState):
		log.Info("no saved profiles, creating main profile")
	default:
		log.Warnw("discarding saved profiles, recreating basic config", "reason", err)
	}

	state, err = s.basicState(ctx)
	if err != nil {
		return nil, fmt.Errorf("create basic config: %w", err)
	}

	if err := backend.Save(state); err != nil {
		log.Errorw("failed to save basic config", "error", err)
	}

	s.current.Store(state)
	return s, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) basicState(ctx context.Context) (*State, error) {
	main, variant, err := s.mainProfile(ctx)
	if err != nil {
		return nil, err
	}

	return &State{
		Profiles:                map[string]lingoswitch.LanguageProfile{main.Name: main},
		PlatformLanguageTypeTag: string(variant),
	}, nil
}

func (s *Store) mainProfile(ctx context.Context) (lingoswitch.LanguageProfile, lingoswitch.Variant, error) {
	list, err := s.languages.CurrentLanguageList(ctx)
	if err != nil {
		return lingoswitch.LanguageProfile{}, "", fmt.Errorf("get system language list: %w", err)
	}

	if !list.Variant.Known() {
		return lingoswitch.LanguageProfile{}, "", fmt.Errorf("%w: %q", lingoswitch.ErrUnknownVariant, list.Variant)
	}

	main := lingoswitch.LanguageProfile{
		Name:          lingoswitch.MainProfileName,
		Languages:     s.usableLanguages(list.Languages),
		IsMainProfile: true,
	}.Clone()

	if err := validateProfile(main); err != nil {
		return lingoswitch.LanguageProfile{}, "", fmt.Errorf("system language list: %w", err)
	}

	return main, list.Variant, nil
}

// usableLanguages drops system languages without a tag or input methods.
func (s *Store) usableLanguages(langs []lingoswitch.Language) []lingoswitch.Language {
	out := make([]lingoswitch.Language, 0, len(langs))
	for _, l := range langs {
		if l.Tag == "" || len(l.InputMethods) == 0 || slices.Contains(l.InputMethods, "") {
			s.log.Warnw("skipping system language without input methods", "tag", l.Tag)
			continue
		}
		out = append(out, l)
	}
	return out
}

func (s *Store) snapshot() *State {
	return s.current.Load()
}

// Profiles returns a copy of every stored profile keyed by name.
func (s *Store) Profiles() map[string]lingoswitch.LanguageProfile {
	return s.snapshot().Clone().Profiles
}

// OrderedProfiles returns the profiles in store order: main profile first,
// then by name.
func (s *Store) OrderedProfiles() []lingoswitch.LanguageProfile {
	state := s.snapshot()

	out := make([]lingoswitch.LanguageProfile, 0, len(state.Profiles))
	for _, name := range state.Names() {
		out = append(out, state.Profiles[name].Clone())
	}
	return out
}

func (s *Store) Names() []string {
	return s.snapshot().Names()
}

func (s *Store) Profile(name string) (lingoswitch.LanguageProfile, bool) {
	p, ok := s.snapshot().Profiles[name]
	if !ok {
		return lingoswitch.LanguageProfile{}, false
	}
	return p.Clone(), true
}

func (s *Store) PlatformVariant() lingoswitch.Variant {
	return lingoswitch.Variant(s.snapshot().PlatformLanguageTypeTag)
}

// AddProfile inserts the profile, silently replacing a profile with the same
// name. The main profile can't be replaced this way.
func (s *Store) AddProfile(profile lingoswitch.LanguageProfile) error {
	if err := validateProfile(profile); err != nil {
		return err
	}
	if profile.IsMainProfile {
		return policyError(ErrProtectedProfile, profile.Name, "only the store creates the main profile")
	}

	return s.mutate("add", func(next *State) error {
		if existing, ok := next.Profiles[profile.Name]; ok && existing.IsMainProfile {
			return policyError(ErrProtectedProfile, profile.Name, "")
		}

		next.Profiles[profile.Name] = profile.Clone()
		return nil
	})
}

func (s *Store) RemoveProfile(name string) error {
	return s.mutate("remove", func(next *State) error {
		if err := checkMutable(next, name); err != nil {
			return err
		}

		delete(next.Profiles, name)
		return nil
	})
}

// UpdateProfile replaces the profile stored as oldName. A different name in
// profile renames it.
func (s *Store) UpdateProfile(oldName string, profile lingoswitch.LanguageProfile) error {
	if err := validateProfile(profile); err != nil {
		return err
	}
	if profile.IsMainProfile {
		return policyError(ErrProtectedProfile, profile.Name, "only the store creates the main profile")
	}

	return s.mutate("update", func(next *State) error {
		if err := checkMutable(next, oldName); err != nil {
			return err
		}

		if profile.Name != oldName {
			if target, ok := next.Profiles[profile.Name]; ok && target.IsMainProfile {
				return policyError(ErrProtectedProfile, profile.Name, "")
			}
			delete(next.Profiles, oldName)
		}

		next.Profiles[profile.Name] = profile.Clone()
		return nil
	})
}

// RecreateMainProfile rebuilds the main profile from the current system
// language list.
func (s *Store) RecreateMainProfile(ctx context.Context) (lingoswitch.LanguageProfile, error) {
	main, variant, err := s.mainProfile(ctx)
	if err != nil {
		return lingoswitch.LanguageProfile{}, err
	}

	err = s.mutate("recreate main", func(next *State) error {
		next.Profiles[main.Name] = main.Clone()
		next.PlatformLanguageTypeTag = string(variant)
		return nil
	})
	if err != nil {
		return lingoswitch.LanguageProfile{}, err
	}

	return main, nil
}

func checkMutable(state *State, name string) error {
	p, ok := state.Profiles[name]
	if !ok {
		return policyError(ErrProfileNotFound, name, "")
	}
	if p.IsMainProfile {
		return policyError(ErrProtectedProfile, name, "")
	}
	return nil
}

// mutate applies fn to a copy of the current state, persists the copy and
// only then publishes it. Any failure leaves the published state unchanged.
func (s *Store) mutate(op string, fn func(next *State) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	next := s.snapshot().Clone()
	if err := fn(next); err != nil {
		return err
	}

	if err := s.backend.Save(next); err != nil {
		s.log.Errorw("failed to persist profiles", "op", op, "error", err)
		return fmt.Errorf("%s profile: persist: %w", op, err)
	}

	s.current.Store(next)
	s.log.Debugw("profiles updated", "op", op, "count", len(next.Profiles))
	return nil
}
