package lingoswitch

import (
	"codeberg.org/miketth/lingoswitch/pkg/inputmethod"
	"codeberg.org/miketth/lingoswitch/pkg/kblayouts"
	"context"
	"fmt"
	"go.uber.org/zap"
)

// Enumerator lists the keyboards currently loaded on the machine.
type Enumerator struct {
	source   LayoutSource
	registry inputmethod.RegistryReader
	layouts  *kblayouts.Registry
	log      *zap.SugaredLogger
}

func NewEnumerator(
	source LayoutSource,
	registry inputmethod.RegistryReader,
	layouts *kblayouts.Registry,
	log *zap.SugaredLogger,
) *Enumerator {
	return &Enumerator{
		source:   source,
		registry: registry,
		layouts:  layouts,
		log:      log,
	}
}

// InstalledKeyboards returns the known layouts behind every loaded handle.
// Handles that cannot be resolved and tips missing from the reference table
// are skipped.
func (e *Enumerator) InstalledKeyboards(ctx context.Context) ([]kblayouts.KeyboardLayoutInfo, error) {
	handles, err := e.source.LoadedLayoutHandles(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate layout handles: %w", err)
	}

	resolver := inputmethod.NewResolver(e.registry)

	out := make([]kblayouts.KeyboardLayoutInfo, 0, len(handles))
	for _, h := range handles {
		tip, err := resolver.Tip(h)
		if err != nil {
			e.log.Debugw("skipping unresolvable layout handle", "handle", fmt.Sprintf("%#x", h), "error", err)
			continue
		}

		info, ok := e.layouts.Lookup(tip)
		if !ok {
			e.log.Debugw("skipping unknown layout", "tip", tip)
			continue
		}

		out = append(out, info)
	}

	return out, nil
}

// ListInstalledLanguages groups the installed keyboards by language tag.
func (e *Enumerator) ListInstalledLanguages(ctx context.Context) ([]Language, error) {
	keyboards, err := e.InstalledKeyboards(ctx)
	if err != nil {
		return nil, err
	}

	return GroupByLanguage(keyboards), nil
}

// GroupByLanguage builds one Language per distinct tag, in order of first
// appearance, with that tag's tips as input methods.
func GroupByLanguage(layouts []kblayouts.KeyboardLayoutInfo) []Language {
	index := make(map[string]int)
	var out []Language

	for _, l := range layouts {
		i, ok := index[l.LanguageTag]
		if !ok {
			i = len(out)
			index[l.LanguageTag] = i
			out = append(out, NewLanguage(l.LanguageTag))
		}
		out[i].InputMethods = append(out[i].InputMethods, l.InputMethodTip)
	}

	return out
}

// BuildProfile assembles a user profile from chosen layouts.
func BuildProfile(name string, layouts []kblayouts.KeyboardLayoutInfo) LanguageProfile {
	return LanguageProfile{
		Name:      name,
		Languages: GroupByLanguage(layouts),
	}
}
