package profilestore_test

import (
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"codeberg.org/miketth/lingoswitch/pkg/profilestore"
	"codeberg.org/miketth/lingoswitch/pkg/profilestore/memory"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type systemLanguages struct {
	list  lingoswitch.LanguageList
	err   error
	calls int
}

func (s *systemLanguages) CurrentLanguageList(context.Context) (lingoswitch.LanguageList, error) {
	s.calls++
	return s.list, s.err
}

func newSystem(tips ...string) *systemLanguages {
	return &systemLanguages{list: lingoswitch.LanguageList{
		Variant:   lingoswitch.VariantSnapshot,
		Languages: []lingoswitch.Language{lingoswitch.NewLanguage("en-US", tips...)},
	}}
}

func profile(name string, tips ...string) lingoswitch.LanguageProfile {
	return lingoswitch.LanguageProfile{
		Name:      name,
		Languages: []lingoswitch.Language{lingoswitch.NewLanguage("en-US", tips...)},
	}
}

func openStore(t *testing.T, backend profilestore.Backend, system *systemLanguages) *profilestore.Store {
	t.Helper()

	s, err := profilestore.Open(context.Background(), backend, system, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesMainProfile(t *testing.T) {
	backend := memory.NewBackend()
	s := openStore(t, backend, newSystem("A", "B"))

	profiles := s.Profiles()
	require.Len(t, profiles, 1)

	main := profiles[lingoswitch.MainProfileName]
	assert.True(t, main.IsMainProfile)
	assert.Equal(t, lingoswitch.NewTipSet("A", "B"), main.InputMethodSet())
	assert.Equal(t, lingoswitch.VariantSnapshot, s.PlatformVariant())
	assert.Equal(t, 1, backend.Saves())
}

func TestOpenKeepsValidState(t *testing.T) {
	system := newSystem("A")
	first := openStore(t, memory.NewBackend(), system)
	require.NoError(t, first.AddProfile(profile("Work", "C")))

	backend := memory.NewBackendWith(&profilestore.State{
		Profiles:                first.Profiles(),
		PlatformLanguageTypeTag: string(first.PlatformVariant()),
	})
	system.calls = 0

	s := openStore(t, backend, system)
	assert.Len(t, s.Profiles(), 2)
	assert.Equal(t, 0, system.calls)
	assert.Equal(t, 0, backend.Saves())
}

func TestOpenRebuildsCorruptState(t *testing.T) {
	main := profile(lingoswitch.MainProfileName, "A")
	main.IsMainProfile = true

	cases := map[string]*profilestore.State{
		"empty profile map": {Profiles: map[string]lingoswitch.LanguageProfile{}, PlatformLanguageTypeTag: "snapshot/v1"},
		"missing tag":       {Profiles: map[string]lingoswitch.LanguageProfile{main.Name: main}},
		"unknown tag":       {Profiles: map[string]lingoswitch.LanguageProfile{main.Name: main}, PlatformLanguageTypeTag: "System.Object"},
		"no main profile": {
			Profiles:                map[string]lingoswitch.LanguageProfile{"Work": profile("Work", "A")},
			PlatformLanguageTypeTag: "snapshot/v1",
		},
		"key mismatch": {
			Profiles:                map[string]lingoswitch.LanguageProfile{main.Name: main, "Work": profile("Home", "A")},
			PlatformLanguageTypeTag: "snapshot/v1",
		},
	}

	for name, state := range cases {
		t.Run(name, func(t *testing.T) {
			backend := memory.NewBackendWith(state)
			s := openStore(t, backend, newSystem("X"))

			profiles := s.Profiles()
			require.Len(t, profiles, 1)
			assert.Equal(t, lingoswitch.NewTipSet("X"), profiles[lingoswitch.MainProfileName].InputMethodSet())
			assert.Equal(t, 1, backend.Saves())
		})
	}
}

func TestOpenSurvivesFailedRecoverySave(t *testing.T) {
	backend := memory.NewBackend()
	backend.SaveErr = errors.New("read-only file system")

	s := openStore(t, backend, newSystem("A"))
	assert.Len(t, s.Profiles(), 1)
}

func TestOpenFailsWithoutSystemLanguages(t *testing.T) {
	system := newSystem()
	system.err = errors.New("powershell missing")

	_, err := profilestore.Open(context.Background(), memory.NewBackend(), system, zap.NewNop().Sugar())
	assert.Error(t, err)

	// an empty language list can't become a main profile either
	_, err = profilestore.Open(context.Background(), memory.NewBackend(), newSystem(), zap.NewNop().Sugar())
	assert.ErrorIs(t, err, profilestore.ErrInvalidProfile)
}

func TestOpenSkipsSystemLanguagesWithoutInputMethods(t *testing.T) {
	system := &systemLanguages{list: lingoswitch.LanguageList{
		Variant: lingoswitch.VariantSnapshot,
		Languages: []lingoswitch.Language{
			lingoswitch.NewLanguage("en-US", "0409:00000409"),
			lingoswitch.NewLanguage("ja-JP"),
		},
	}}

	s := openStore(t, memory.NewBackend(), system)

	main, ok := s.Profile(lingoswitch.MainProfileName)
	require.True(t, ok)
	require.Len(t, main.Languages, 1)
	assert.Equal(t, "en-US", main.Languages[0].Tag)

	_, err := s.RecreateMainProfile(context.Background())
	require.NoError(t, err)
}

func TestAddProfile(t *testing.T) {
	s := openStore(t, memory.NewBackend(), newSystem("A"))

	work := profile("Work", "A", "C")
	require.NoError(t, s.AddProfile(work))

	got, ok := s.Profile("Work")
	require.True(t, ok)
	assert.Equal(t, work, got)

	// same name overwrites silently
	require.NoError(t, s.AddProfile(profile("Work", "D")))
	got, _ = s.Profile("Work")
	assert.Equal(t, lingoswitch.NewTipSet("D"), got.InputMethodSet())
}

func TestAddProfileGuards(t *testing.T) {
	s := openStore(t, memory.NewBackend(), newSystem("A"))

	err := s.AddProfile(profile(lingoswitch.MainProfileName, "Z"))
	assert.ErrorIs(t, err, profilestore.ErrProtectedProfile)

	flagged := profile("Other", "Z")
	flagged.IsMainProfile = true
	assert.ErrorIs(t, s.AddProfile(flagged), profilestore.ErrProtectedProfile)

	assert.ErrorIs(t, s.AddProfile(profile("", "Z")), profilestore.ErrInvalidProfile)
	assert.ErrorIs(t, s.AddProfile(profile("Empty")), profilestore.ErrInvalidProfile)
	assert.ErrorIs(t, s.AddProfile(lingoswitch.LanguageProfile{Name: "NoLanguages"}), profilestore.ErrInvalidProfile)

	assert.Len(t, s.Profiles(), 1)
}

func TestAddedProfileIsCopied(t *testing.T) {
	s := openStore(t, memory.NewBackend(), newSystem("A"))

	work := profile("Work", "C")
	require.NoError(t, s.AddProfile(work))
	work.Languages[0].InputMethods[0] = "mutated"

	got, _ := s.Profile("Work")
	assert.Equal(t, "C", got.Languages[0].InputMethods[0])

	got.Languages[0].InputMethods[0] = "mutated"
	again, _ := s.Profile("Work")
	assert.Equal(t, "C", again.Languages[0].InputMethods[0])
}

func TestRemoveProfile(t *testing.T) {
	s := openStore(t, memory.NewBackend(), newSystem("A"))
	require.NoError(t, s.AddProfile(profile("Work", "C")))

	for name, p := range s.Profiles() {
		err := s.RemoveProfile(name)
		if p.IsMainProfile {
			assert.ErrorIs(t, err, profilestore.ErrProtectedProfile)
		} else {
			assert.NoError(t, err)
		}
	}

	assert.Equal(t, []string{lingoswitch.MainProfileName}, s.Names())

	err := s.RemoveProfile("Missing")
	assert.ErrorIs(t, err, profilestore.ErrProfileNotFound)

	var pe *profilestore.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Missing", pe.Profile)
}

func TestUpdateProfileRenames(t *testing.T) {
	s := openStore(t, memory.NewBackend(), newSystem("A", "B"))
	require.NoError(t, s.AddProfile(profile("Work", "A", "C")))

	require.NoError(t, s.UpdateProfile("Work", profile("WorkEN", "A", "C")))

	_, ok := s.Profile("Work")
	assert.False(t, ok)
	_, ok = s.Profile("WorkEN")
	assert.True(t, ok)

	require.NoError(t, s.UpdateProfile("WorkEN", profile("WorkEN", "C")))
	got, _ := s.Profile("WorkEN")
	assert.Equal(t, lingoswitch.NewTipSet("C"), got.InputMethodSet())
}

func TestUpdateProfileGuards(t *testing.T) {
	s := openStore(t, memory.NewBackend(), newSystem("A", "B"))
	require.NoError(t, s.AddProfile(profile("Work", "A", "C")))
	before := s.Profiles()

	err := s.UpdateProfile(lingoswitch.MainProfileName, profile("Anything", "Z"))
	assert.ErrorIs(t, err, profilestore.ErrProtectedProfile)

	err = s.UpdateProfile("Work", profile(lingoswitch.MainProfileName, "Z"))
	assert.ErrorIs(t, err, profilestore.ErrProtectedProfile)

	err = s.UpdateProfile("Missing", profile("Missing", "Z"))
	assert.ErrorIs(t, err, profilestore.ErrProfileNotFound)

	err = s.UpdateProfile("Work", profile("Work"))
	assert.ErrorIs(t, err, profilestore.ErrInvalidProfile)

	assert.Equal(t, before, s.Profiles())
}

func TestRecreateMainProfile(t *testing.T) {
	system := newSystem("A")
	s := openStore(t, memory.NewBackend(), system)
	require.NoError(t, s.AddProfile(profile("Work", "C")))

	system.list.Languages = []lingoswitch.Language{
		lingoswitch.NewLanguage("en-US", "A"),
		lingoswitch.NewLanguage("de-DE", "D"),
	}

	main, err := s.RecreateMainProfile(context.Background())
	require.NoError(t, err)
	assert.True(t, main.IsMainProfile)
	assert.Equal(t, "en-US,de-DE", main.String())

	stored, _ := s.Profile(lingoswitch.MainProfileName)
	assert.Equal(t, main, stored)
	assert.Len(t, s.Profiles(), 2)

	system.err = errors.New("unavailable")
	_, err = s.RecreateMainProfile(context.Background())
	assert.Error(t, err)
	stored, _ = s.Profile(lingoswitch.MainProfileName)
	assert.Equal(t, main, stored)
}

func TestPersistFailureRollsBack(t *testing.T) {
	backend := memory.NewBackend()
	s := openStore(t, backend, newSystem("A"))
	require.NoError(t, s.AddProfile(profile("Work", "C")))

	backend.SaveErr = errors.New("disk full")

	assert.Error(t, s.AddProfile(profile("Home", "D")))
	assert.Error(t, s.RemoveProfile("Work"))
	assert.Error(t, s.UpdateProfile("Work", profile("Renamed", "C")))
	_, err := s.RecreateMainProfile(context.Background())
	assert.Error(t, err)

	assert.Equal(t, []string{lingoswitch.MainProfileName, "Work"}, s.Names())

	backend.SaveErr = nil
	reloaded, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, s.Profiles(), reloaded.Profiles)
}

func TestOrderedProfilesMainFirst(t *testing.T) {
	s := openStore(t, memory.NewBackend(), newSystem("A"))
	require.NoError(t, s.AddProfile(profile("Zeta", "Z")))
	require.NoError(t, s.AddProfile(profile("Alpha", "B")))

	var names []string
	for _, p := range s.OrderedProfiles() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{lingoswitch.MainProfileName, "Alpha", "Zeta"}, names)
}

func TestMatchAgainstStore(t *testing.T) {
	s := openStore(t, memory.NewBackend(), newSystem("A", "B"))
	require.NoError(t, s.AddProfile(profile("Work", "A", "C")))

	name, ok := lingoswitch.MatchProfile([]lingoswitch.Language{lingoswitch.NewLanguage("en-US", "A", "C")}, s.OrderedProfiles())
	assert.True(t, ok)
	assert.Equal(t, "Work", name)

	_, ok = lingoswitch.MatchProfile([]lingoswitch.Language{lingoswitch.NewLanguage("en-US", "A", "B", "C")}, s.OrderedProfiles())
	assert.False(t, ok)
}

func TestConcurrentMutations(t *testing.T) {
	backend := memory.NewBackend()
	s := openStore(t, backend, newSystem("A"))

	names := []string{"P0", "P1", "P2", "P3", "P4", "P5", "P6", "P7"}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, s.AddProfile(profile(name, name)))
			_ = s.Profiles()
		}(name)
	}
	wg.Wait()

	assert.Len(t, s.Profiles(), len(names)+1)

	persisted, err := backend.Load()
	require.NoError(t, err)
	assert.Len(t, persisted.Profiles, len(names)+1)
}
