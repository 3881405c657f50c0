package win

import (
	"bytes"
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrEmptyLanguageList = errors.New("empty language list")

const winUserLanguageType = "Microsoft.InternationalSettings.Commands.WinUserLanguage"

const getLanguageListScript = `$ErrorActionPreference = 'Stop'
ConvertTo-Json -Depth 3 -InputObject @(Get-WinUserLanguageList)`

// PowerShell runs scripts through powershell.exe, or Path when set.
type PowerShell struct {
	Path string
}

func (p PowerShell) run(ctx context.Context, script string) (string, error) {
	var stdout, stderr bytes.Buffer

	path := p.Path
	if path == "" {
		path = "powershell.exe"
	}

	cmd := exec.CommandContext(ctx, path, "-NoProfile", "-NonInteractive", "-Command", "-")
	cmd.Stdin = strings.NewReader(script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", fmt.Errorf("powershell: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

func (p PowerShell) CurrentLanguageList(ctx context.Context) (lingoswitch.LanguageList, error) {
	out, err := p.run(ctx, getLanguageListScript)
	if err != nil {
		return lingoswitch.LanguageList{}, fmt.Errorf("get language list: %w", err)
	}

	langs, err := ParseLanguageList([]byte(out))
	if err != nil {
		return lingoswitch.LanguageList{}, err
	}

	return lingoswitch.LanguageList{Variant: lingoswitch.VariantWinUserLanguage, Languages: langs}, nil
}

func (p PowerShell) ApplyLanguageList(ctx context.Context, variant lingoswitch.Variant, profile lingoswitch.LanguageProfile) error {
	script, err := ApplyScript(variant, profile)
	if err != nil {
		return err
	}

	if _, err := p.run(ctx, script); err != nil {
		return fmt.Errorf("set language list: %w", err)
	}
	return nil
}

type winUserLanguage struct {
	LanguageTag     string   `json:"LanguageTag"`
	InputMethodTips []string `json:"InputMethodTips"`
	Spellchecking   bool     `json:"Spellchecking"`
	Handwriting     bool     `json:"Handwriting"`
}

// ParseLanguageList decodes ConvertTo-Json output of Get-WinUserLanguageList.
// A lone object is accepted as a one element list.
func ParseLanguageList(data []byte) ([]lingoswitch.Language, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyLanguageList
	}

	var raw []winUserLanguage
	if trimmed[0] == '{' {
		var one winUserLanguage
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("decode language list: %w", err)
		}
		raw = append(raw, one)
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode language list: %w", err)
	}

	if len(raw) == 0 {
		return nil, ErrEmptyLanguageList
	}

	out := make([]lingoswitch.Language, 0, len(raw))
	for _, l := range raw {
		out = append(out, lingoswitch.Language{
			Tag:           l.LanguageTag,
			InputMethods:  l.InputMethodTips,
			Spellchecking: l.Spellchecking,
			Handwriting:   l.Handwriting,
		})
	}
	return out, nil
}

// ApplyScript builds the Set-WinUserLanguageList script for a profile.
func ApplyScript(variant lingoswitch.Variant, profile lingoswitch.LanguageProfile) (string, error) {
	if variant != lingoswitch.VariantWinUserLanguage {
		return "", fmt.Errorf("%w: %q", lingoswitch.ErrUnknownVariant, variant)
	}
	if len(profile.Languages) == 0 {
		return "", ErrEmptyLanguageList
	}

	var b strings.Builder
	b.WriteString("$ErrorActionPreference = 'Stop'\n")
	fmt.Fprintf(&b, "$list = New-WinUserLanguageList %s\n", quote(profile.Languages[0].Tag))
	b.WriteString("$list.Clear()\n")

	for _, l := range profile.Languages {
		fmt.Fprintf(&b, "$lang = New-Object -TypeName %s -ArgumentList %s\n", winUserLanguageType, quote(l.Tag))
		b.WriteString("$lang.InputMethodTips.Clear()\n")
		for _, tip := range l.InputMethods {
			fmt.Fprintf(&b, "$lang.InputMethodTips.Add(%s)\n", quote(tip))
		}
		fmt.Fprintf(&b, "$lang.Spellchecking = %s\n", boolean(l.Spellchecking))
		fmt.Fprintf(&b, "$lang.Handwriting = %s\n", boolean(l.Handwriting))
		b.WriteString("$list.Add($lang)\n")
	}

	b.WriteString("Set-WinUserLanguageList -LanguageList $list -Force\n")
	return b.String(), nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func boolean(v bool) string {
	if v {
		return "$true"
	}
	return "$false"
}
