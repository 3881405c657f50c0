package profilestore

import (
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"fmt"
	"sort"
)

// State is everything the store persists.
type State struct {
	Profiles                map[string]lingoswitch.LanguageProfile `json:"profiles"`
	PlatformLanguageTypeTag string                                 `json:"platformLanguageTypeTag"`
}

// Backend persists State. Load returns ErrNoState when nothing was saved yet.
type Backend interface {
	Load() (*State, error)
	Save(state *State) error
	Close() error
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	out := &State{PlatformLanguageTypeTag: s.PlatformLanguageTypeTag}
	if s.Profiles != nil {
		out.Profiles = make(map[string]lingoswitch.LanguageProfile, len(s.Profiles))
		for name, p := range s.Profiles {
			out.Profiles[name] = p.Clone()
		}
	}
	return out
}

// Names returns profile names with the main profile first, the rest sorted.
func (s *State) Names() []string {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		mi, mj := s.Profiles[names[i]].IsMainProfile, s.Profiles[names[j]].IsMainProfile
		if mi != mj {
			return mi
		}
		return names[i] < names[j]
	})
	return names
}

// Validate runs every structural check on loaded state.
func Validate(s *State) error {
	if s == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidState)
	}
	if len(s.Profiles) == 0 {
		return fmt.Errorf("%w: no profiles", ErrInvalidState)
	}
	if s.PlatformLanguageTypeTag == "" {
		return fmt.Errorf("%w: missing platform language type tag", ErrInvalidState)
	}
	if _, err := lingoswitch.ParseVariant(s.PlatformLanguageTypeTag); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	mains := 0
	for key, p := range s.Profiles {
		if key != p.Name {
			return fmt.Errorf("%w: profile stored under %q is named %q", ErrInvalidState, key, p.Name)
		}
		if err := validateProfile(p); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		if p.IsMainProfile {
			mains++
			if key != lingoswitch.MainProfileName {
				return fmt.Errorf("%w: main profile stored as %q", ErrInvalidState, key)
			}
		}
	}

	if mains != 1 {
		return fmt.Errorf("%w: %d main profiles", ErrInvalidState, mains)
	}

	return nil
}

func validateProfile(p lingoswitch.LanguageProfile) error {
	if p.Name == "" {
		return policyError(ErrInvalidProfile, p.Name, "name is empty")
	}
	if len(p.Languages) == 0 {
		return policyError(ErrInvalidProfile, p.Name, "no languages")
	}

	for i, l := range p.Languages {
		if l.Tag == "" {
			return policyError(ErrInvalidProfile, p.Name, fmt.Sprintf("language %d has no tag", i))
		}
		if len(l.InputMethods) == 0 {
			return policyError(ErrInvalidProfile, p.Name, fmt.Sprintf("language %q has no input methods", l.Tag))
		}
		for _, tip := range l.InputMethods {
			if tip == "" {
				return policyError(ErrInvalidProfile, p.Name, fmt.Sprintf("language %q has an empty input method", l.Tag))
			}
		}
	}

	return nil
}
