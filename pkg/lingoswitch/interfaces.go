package lingoswitch

import (
	"context"
	"strings"
)

const MainProfileName = "MainProfile"

// Language is one entry of a language list: a language tag and the input
// methods (tips) enabled for it.
type Language struct {
	Tag           string   `json:"tag"`
	InputMethods  []string `json:"inputMethods"`
	Spellchecking bool     `json:"spellchecking"`
	Handwriting   bool     `json:"handwriting"`
}

func NewLanguage(tag string, inputMethods ...string) Language {
	return Language{
		Tag:           tag,
		InputMethods:  inputMethods,
		Spellchecking: true,
		Handwriting:   false,
	}
}

func (l Language) Clone() Language {
	l.InputMethods = append([]string(nil), l.InputMethods...)
	return l
}

// LanguageProfile is a named, switchable language list.
type LanguageProfile struct {
	Name          string     `json:"name"`
	Languages     []Language `json:"languages"`
	IsMainProfile bool       `json:"isMainProfile"`
}

func (p LanguageProfile) Clone() LanguageProfile {
	if p.Languages == nil {
		return p
	}

	langs := make([]Language, len(p.Languages))
	for i, l := range p.Languages {
		langs[i] = l.Clone()
	}
	p.Languages = langs
	return p
}

// InputMethodSet is the set of every tip declared by the profile.
func (p LanguageProfile) InputMethodSet() TipSet {
	return TipSetOf(p.Languages)
}

func (p LanguageProfile) String() string {
	tags := make([]string, 0, len(p.Languages))
	for _, l := range p.Languages {
		tags = append(tags, l.Tag)
	}
	return strings.Join(tags, ",")
}

// LanguageList is the platform's current language list together with the
// variant of the native representation it was read from.
type LanguageList struct {
	Variant   Variant
	Languages []Language
}

type LayoutSource interface {
	LoadedLayoutHandles(ctx context.Context) ([]uintptr, error)
}

type SystemLanguages interface {
	CurrentLanguageList(ctx context.Context) (LanguageList, error)
}

type LanguageApplier interface {
	ApplyLanguageList(ctx context.Context, variant Variant, profile LanguageProfile) error
}

type ProfileStore interface {
	Profiles() map[string]LanguageProfile
	OrderedProfiles() []LanguageProfile
	Profile(name string) (LanguageProfile, bool)
	PlatformVariant() Variant
	AddProfile(profile LanguageProfile) error
	RemoveProfile(name string) error
	UpdateProfile(oldName string, profile LanguageProfile) error
	RecreateMainProfile(ctx context.Context) (LanguageProfile, error)
}
