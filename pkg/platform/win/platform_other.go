//go:build !windows

package win

import (
	"codeberg.org/miketth/lingoswitch/pkg/inputmethod"
	"context"
	"errors"
)

var ErrUnsupported = errors.New("windows platform is not available on this system")

type Platform struct {
	PowerShell
}

func New() (*Platform, error) {
	return nil, ErrUnsupported
}

func (p *Platform) LoadedLayoutHandles(context.Context) ([]uintptr, error) {
	return nil, ErrUnsupported
}

func (p *Platform) ReadLayoutRegistry() (inputmethod.RegistryTable, error) {
	return nil, ErrUnsupported
}
