package kblayouts

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"golang.org/x/text/language"
	"io"
	"os"
	"sort"
	"strings"
)

//go:embed layouts.xml
var defaultLayouts []byte

var ErrInvalidLayout = errors.New("invalid layout entry")

// Registry is the read-only table of known keyboard layouts, keyed by tip.
type Registry struct {
	byTip   map[string]KeyboardLayoutInfo
	layouts []KeyboardLayoutInfo
}

// Default returns the table that ships with the binary.
func Default() (*Registry, error) {
	return Decode(bytes.NewReader(defaultLayouts))
}

func ParseLayouts(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

func Decode(r io.Reader) (*Registry, error) {
	doc := &layoutRegistry{}
	err := xml.NewDecoder(r).Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}

	reg := &Registry{byTip: make(map[string]KeyboardLayoutInfo, len(doc.LayoutList.Layout))}
	for _, l := range doc.LayoutList.Layout {
		info, err := l.toInfo()
		if err != nil {
			return nil, err
		}
		if _, dup := reg.byTip[info.InputMethodTip]; dup {
			return nil, fmt.Errorf("%w: duplicate tip %q", ErrInvalidLayout, info.InputMethodTip)
		}
		reg.byTip[info.InputMethodTip] = info
		reg.layouts = append(reg.layouts, info)
	}

	sort.SliceStable(reg.layouts, func(i, j int) bool {
		return reg.layouts[i].DisplayName < reg.layouts[j].DisplayName
	})

	return reg, nil
}

func (l layout) toInfo() (KeyboardLayoutInfo, error) {
	tip := strings.TrimSpace(l.Tip)
	if len(tip) != 13 || tip[4] != ':' {
		return KeyboardLayoutInfo{}, fmt.Errorf("%w: malformed tip %q", ErrInvalidLayout, l.Tip)
	}

	tag := strings.TrimSpace(l.Language)
	if _, err := language.Parse(tag); err != nil {
		return KeyboardLayoutInfo{}, fmt.Errorf("%w: tip %q: language %q: %w", ErrInvalidLayout, tip, tag, err)
	}

	return KeyboardLayoutInfo{
		DisplayName:    strings.TrimSpace(l.DisplayName),
		LanguageTag:    tag,
		InputMethodTip: tip,
	}, nil
}

func (r *Registry) Lookup(tip string) (KeyboardLayoutInfo, bool) {
	info, ok := r.byTip[tip]
	return info, ok
}

// All returns every known layout ordered by display name.
func (r *Registry) All() []KeyboardLayoutInfo {
	return append([]KeyboardLayoutInfo(nil), r.layouts...)
}

func (r *Registry) Len() int {
	return len(r.layouts)
}

// Search matches text case-insensitively against display names, language
// tags and tips. Blank text matches everything.
func (r *Registry) Search(text string) []KeyboardLayoutInfo {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return r.All()
	}

	var out []KeyboardLayoutInfo
	for _, l := range r.layouts {
		if strings.Contains(strings.ToLower(l.DisplayName), needle) ||
			strings.Contains(strings.ToLower(l.LanguageTag), needle) ||
			strings.Contains(strings.ToLower(l.InputMethodTip), needle) {
			out = append(out, l)
		}
	}
	return out
}

// Resolve looks up every tip, failing on the first unknown one.
func (r *Registry) Resolve(tips ...string) ([]KeyboardLayoutInfo, error) {
	out := make([]KeyboardLayoutInfo, 0, len(tips))
	for _, tip := range tips {
		info, ok := r.byTip[tip]
		if !ok {
			return nil, fmt.Errorf("layout %q not found", tip)
		}
		out = append(out, info)
	}
	return out, nil
}
