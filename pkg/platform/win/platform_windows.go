//go:build windows

package win

import (
	"codeberg.org/miketth/lingoswitch/pkg/inputmethod"
	"context"
	"errors"
	"fmt"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"unsafe"
)

const keyboardLayoutsPath = `SYSTEM\CurrentControlSet\Control\Keyboard Layouts`

var (
	user32                    = windows.NewLazySystemDLL("user32.dll")
	procGetKeyboardLayoutList = user32.NewProc("GetKeyboardLayoutList")
)

// Platform talks to the running Windows session.
type Platform struct {
	PowerShell
}

func New() (*Platform, error) {
	if err := procGetKeyboardLayoutList.Find(); err != nil {
		return nil, fmt.Errorf("load GetKeyboardLayoutList: %w", err)
	}
	return &Platform{}, nil
}

func (p *Platform) LoadedLayoutHandles(context.Context) ([]uintptr, error) {
	size, _, err := procGetKeyboardLayoutList.Call(0, 0)
	if size == 0 {
		return nil, fmt.Errorf("GetKeyboardLayoutList: %w", err)
	}

	handles := make([]uintptr, size)
	written, _, err := procGetKeyboardLayoutList.Call(size, uintptr(unsafe.Pointer(&handles[0])))
	if written == 0 {
		return nil, fmt.Errorf("GetKeyboardLayoutList: %w", err)
	}

	return handles[:written], nil
}

func (p *Platform) ReadLayoutRegistry() (inputmethod.RegistryTable, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, keyboardLayoutsPath, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", keyboardLayoutsPath, err)
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}

	table := make(inputmethod.RegistryTable, len(names))
	for _, name := range names {
		id, err := readLayoutID(key, name)
		if skipLayoutValue(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("layout %s: %w", name, err)
		}
		table[name] = inputmethod.RegistryEntry{LayoutID: id}
	}

	return table, nil
}

// skipLayoutValue reports whether a layout's "Layout Id" is missing or not a
// string, in which case the layout can't be a custom one.
func skipLayoutValue(err error) bool {
	return errors.Is(err, registry.ErrNotExist) || errors.Is(err, registry.ErrUnexpectedType)
}

func readLayoutID(parent registry.Key, name string) (int, error) {
	sub, err := registry.OpenKey(parent, name, registry.QUERY_VALUE)
	if err != nil {
		return 0, err
	}
	defer sub.Close()

	value, _, err := sub.GetStringValue("Layout Id")
	if err != nil {
		return 0, err
	}

	return inputmethod.ParseLayoutID(value)
}
