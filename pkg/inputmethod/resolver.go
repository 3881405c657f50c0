package inputmethod

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrLayoutNotFound       = errors.New("layout not found in registry")
	ErrRegistryUnavailable  = errors.New("keyboard layout registry unavailable")
	ErrMalformedRegistryKey = errors.New("malformed keyboard layout registry key")
)

const (
	customLayoutMarker = 0xF000
	customLayoutMask   = 0x0FFF
	layoutKeyLength    = 8
)

// RegistryEntry is one installed layout under
// HKLM\SYSTEM\CurrentControlSet\Control\Keyboard Layouts.
type RegistryEntry struct {
	LayoutID int
}

// RegistryTable maps 8 character layout keys (KLIDs) to their entries.
type RegistryTable map[string]RegistryEntry

type RegistryReader interface {
	ReadLayoutRegistry() (RegistryTable, error)
}

// RegistryReaderFunc adapts a plain function to RegistryReader.
type RegistryReaderFunc func() (RegistryTable, error)

func (f RegistryReaderFunc) ReadLayoutRegistry() (RegistryTable, error) {
	return f()
}

// Resolver turns keyboard layout handles (HKLs) into input method tips.
// Registry may be nil when no custom layouts are expected.
type Resolver struct {
	Registry RegistryReader

	table    RegistryTable
	tableErr error
	loaded   bool
}

func NewResolver(registry RegistryReader) *Resolver {
	return &Resolver{Registry: registry}
}

func highWord(handle uintptr) int {
	return int(uint32(handle)>>16) & 0xffff
}

func lowWord(handle uintptr) int {
	return int(uint32(handle)) & 0xffff
}

// LayoutID returns the 8 character uppercase layout id of the handle.
func (r *Resolver) LayoutID(handle uintptr) (string, error) {
	device := highWord(handle)

	if device&customLayoutMarker == customLayoutMarker {
		return r.lookupCustomLayout(device & customLayoutMask)
	}

	if device == 0 {
		device = lowWord(handle)
	}

	return fmt.Sprintf("%08X", device), nil
}

// Tip returns the input method tip of the handle, e.g. 0409:00000409.
func (r *Resolver) Tip(handle uintptr) (string, error) {
	id, err := r.LayoutID(handle)
	if err != nil {
		return "", err
	}
	return FormatTip(id), nil
}

// Reset drops the cached registry table so the next custom layout lookup
// reads it again.
func (r *Resolver) Reset() {
	r.table = nil
	r.tableErr = nil
	r.loaded = false
}

func (r *Resolver) lookupCustomLayout(layoutID int) (string, error) {
	table, err := r.registryTable()
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if table[key].LayoutID != layoutID {
			continue
		}
		if len(key) != layoutKeyLength {
			return "", fmt.Errorf("%w: %q", ErrMalformedRegistryKey, key)
		}
		return strings.ToUpper(key), nil
	}

	return "", fmt.Errorf("%w: layout id %04x", ErrLayoutNotFound, layoutID)
}

func (r *Resolver) registryTable() (RegistryTable, error) {
	if r.loaded {
		return r.table, r.tableErr
	}

	r.loaded = true
	if r.Registry == nil {
		r.tableErr = ErrRegistryUnavailable
		return nil, r.tableErr
	}

	table, err := r.Registry.ReadLayoutRegistry()
	if err != nil {
		r.tableErr = fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
		return nil, r.tableErr
	}

	r.table = table
	return table, nil
}

// FormatTip builds the tip for an 8 character layout id.
func FormatTip(layoutID string) string {
	suffix := layoutID
	if len(layoutID) > 4 {
		suffix = layoutID[len(layoutID)-4:]
	}
	return suffix + ":" + strings.ToLower(layoutID)
}

// ParseLayoutID parses a registry "Layout Id" value such as "0002".
func ParseLayoutID(value string) (int, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse layout id %q: %w", value, err)
	}
	return int(id), nil
}
