// Package snapshot is a file backed stand-in for the operating system. A TOML
// document describes the loaded layout handles, the keyboard layout registry
// and the user language list; applying a profile rewrites all three so the
// machine then reports exactly that profile as installed.
package snapshot

import (
	"codeberg.org/miketth/lingoswitch/pkg/inputmethod"
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"context"
	"errors"
	"fmt"
	toml "github.com/pelletier/go-toml/v2"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var ErrMalformedTip = errors.New("malformed input method tip")

type document struct {
	Handles   []string          `toml:"handles"`
	Registry  map[string]string `toml:"registry"`
	Languages []language        `toml:"languages"`
}

type language struct {
	Tag           string   `toml:"tag"`
	InputMethods  []string `toml:"input_methods"`
	Spellchecking bool     `toml:"spellchecking"`
	Handwriting   bool     `toml:"handwriting"`
}

// Machine is the in-memory state of a snapshot. Path, when set, is rewritten
// after every apply.
type Machine struct {
	lock      sync.Mutex
	path      string
	handles   []uintptr
	registry  inputmethod.RegistryTable
	languages []lingoswitch.Language
}

func Load(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, err
	}

	m.path = path
	return m, nil
}

func Parse(data []byte) (*Machine, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	m := &Machine{registry: make(inputmethod.RegistryTable, len(doc.Registry))}

	for _, h := range doc.Handles {
		v, err := strconv.ParseUint(strings.TrimSpace(h), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("parse handle %q: %w", h, err)
		}
		m.handles = append(m.handles, uintptr(v))
	}

	for key, value := range doc.Registry {
		id, err := inputmethod.ParseLayoutID(value)
		if err != nil {
			return nil, fmt.Errorf("registry key %q: %w", key, err)
		}
		m.registry[key] = inputmethod.RegistryEntry{LayoutID: id}
	}

	for _, l := range doc.Languages {
		m.languages = append(m.languages, lingoswitch.Language{
			Tag:           l.Tag,
			InputMethods:  l.InputMethods,
			Spellchecking: l.Spellchecking,
			Handwriting:   l.Handwriting,
		})
	}

	return m, nil
}

// Marshal renders the machine back to TOML.
func (m *Machine) Marshal() ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.marshal()
}

func (m *Machine) marshal() ([]byte, error) {
	doc := document{Registry: make(map[string]string, len(m.registry))}

	for _, h := range m.handles {
		doc.Handles = append(doc.Handles, fmt.Sprintf("0x%08X", uint64(h)))
	}
	for key, entry := range m.registry {
		doc.Registry[key] = fmt.Sprintf("%04X", entry.LayoutID)
	}
	for _, l := range m.languages {
		doc.Languages = append(doc.Languages, language{
			Tag:           l.Tag,
			InputMethods:  l.InputMethods,
			Spellchecking: l.Spellchecking,
			Handwriting:   l.Handwriting,
		})
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func (m *Machine) LoadedLayoutHandles(context.Context) ([]uintptr, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]uintptr(nil), m.handles...), nil
}

func (m *Machine) ReadLayoutRegistry() (inputmethod.RegistryTable, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	out := make(inputmethod.RegistryTable, len(m.registry))
	for k, v := range m.registry {
		out[k] = v
	}
	return out, nil
}

func (m *Machine) CurrentLanguageList(context.Context) (lingoswitch.LanguageList, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	langs := make([]lingoswitch.Language, len(m.languages))
	for i, l := range m.languages {
		langs[i] = l.Clone()
	}
	return lingoswitch.LanguageList{Variant: lingoswitch.VariantSnapshot, Languages: langs}, nil
}

// ApplyLanguageList installs the profile's languages and loads one layout
// handle per tip.
func (m *Machine) ApplyLanguageList(_ context.Context, variant lingoswitch.Variant, profile lingoswitch.LanguageProfile) error {
	if variant != lingoswitch.VariantSnapshot {
		return fmt.Errorf("%w: snapshot machine can't apply %q", lingoswitch.ErrUnknownVariant, variant)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	registry := make(inputmethod.RegistryTable, len(m.registry))
	for k, v := range m.registry {
		registry[k] = v
	}

	var handles []uintptr
	for _, l := range profile.Languages {
		for _, tip := range l.InputMethods {
			h, err := handleFor(registry, tip)
			if err != nil {
				return err
			}
			handles = append(handles, h)
		}
	}

	langs := make([]lingoswitch.Language, len(profile.Languages))
	for i, l := range profile.Languages {
		langs[i] = l.Clone()
	}

	prevHandles, prevLangs, prevRegistry := m.handles, m.languages, m.registry
	m.handles, m.languages, m.registry = handles, langs, registry

	if m.path == "" {
		return nil
	}

	data, err := m.marshal()
	if err == nil {
		err = os.WriteFile(m.path, data, 0o644)
	}
	if err != nil {
		m.handles, m.languages, m.registry = prevHandles, prevLangs, prevRegistry
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}

// handleFor builds the layout handle the system would load for tip,
// registering custom layouts in registry as needed.
func handleFor(registry inputmethod.RegistryTable, tip string) (uintptr, error) {
	langHex, klid, ok := strings.Cut(tip, ":")
	if !ok || len(langHex) != 4 || len(klid) != 8 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTip, tip)
	}

	langID, err := strconv.ParseUint(langHex, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTip, tip)
	}
	layout, err := strconv.ParseUint(klid, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTip, tip)
	}

	if layout <= 0xFFFF {
		return uintptr(layout<<16 | langID), nil
	}

	id := customLayoutID(registry, strings.ToUpper(klid))
	return uintptr(uint64(0xF000|id)<<16 | langID), nil
}

func customLayoutID(registry inputmethod.RegistryTable, klid string) int {
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	used := make(map[int]bool)
	for _, key := range keys {
		if strings.EqualFold(key, klid) && registry[key].LayoutID != 0 {
			return registry[key].LayoutID
		}
		used[registry[key].LayoutID] = true
	}

	id := 1
	for used[id] {
		id++
	}
	registry[klid] = inputmethod.RegistryEntry{LayoutID: id}
	return id
}
