package lingoswitch

import (
	"errors"
	"fmt"
)

// Variant tags the platform-native language list representation a main
// profile was built from. Appliers pick their adapter by variant.
type Variant string

const (
	// VariantWinUserLanguage is Microsoft.InternationalSettings.Commands.WinUserLanguage
	// as returned by Get-WinUserLanguageList.
	VariantWinUserLanguage Variant = "winuserlanguage/v1"
	// VariantSnapshot is the file backed platform used off Windows and in tests.
	VariantSnapshot Variant = "snapshot/v1"
)

var ErrUnknownVariant = errors.New("unknown platform language variant")

var knownVariants = []Variant{VariantWinUserLanguage, VariantSnapshot}

func ParseVariant(s string) (Variant, error) {
	for _, v := range knownVariants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

func (v Variant) Known() bool {
	_, err := ParseVariant(string(v))
	return err == nil
}
