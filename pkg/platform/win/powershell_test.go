package win

import (
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const languageListJSON = `[
    {
        "LanguageTag":  "en-US",
        "Autonym":  "English (United States)",
        "EnglishName":  "English",
        "LocalizedName":  "English (United States)",
        "ScriptName":  "Latin",
        "InputMethodTips":  ["0409:00000409", "0409:00020409"],
        "Spellchecking":  true,
        "Handwriting":  false
    },
    {
        "LanguageTag":  "ru",
        "InputMethodTips":  ["0419:00000419"],
        "Spellchecking":  false,
        "Handwriting":  true
    }
]`

func TestParseLanguageList(t *testing.T) {
	langs, err := ParseLanguageList([]byte(languageListJSON))
	require.NoError(t, err)
	require.Len(t, langs, 2)

	assert.Equal(t, lingoswitch.Language{
		Tag:           "en-US",
		InputMethods:  []string{"0409:00000409", "0409:00020409"},
		Spellchecking: true,
	}, langs[0])
	assert.Equal(t, "ru", langs[1].Tag)
	assert.True(t, langs[1].Handwriting)
	assert.False(t, langs[1].Spellchecking)
}

func TestParseLanguageListSingleObject(t *testing.T) {
	langs, err := ParseLanguageList([]byte(`{"LanguageTag": "de-DE", "InputMethodTips": ["0407:00000407"], "Spellchecking": true}`))
	require.NoError(t, err)
	require.Len(t, langs, 1)
	assert.Equal(t, "de-DE", langs[0].Tag)
}

func TestParseLanguageListEmpty(t *testing.T) {
	for _, input := range []string{"", "  \r\n", "[]"} {
		_, err := ParseLanguageList([]byte(input))
		assert.ErrorIs(t, err, ErrEmptyLanguageList, "input %q", input)
	}

	_, err := ParseLanguageList([]byte("Get-WinUserLanguageList : not recognized"))
	assert.Error(t, err)
}

func TestApplyScript(t *testing.T) {
	profile := lingoswitch.LanguageProfile{
		Name: "Work",
		Languages: []lingoswitch.Language{
			lingoswitch.NewLanguage("en-US", "0409:00000409"),
			{Tag: "de-DE", InputMethods: []string{"0407:00000407", "0407:00010407"}, Handwriting: true},
		},
	}

	script, err := ApplyScript(lingoswitch.VariantWinUserLanguage, profile)
	require.NoError(t, err)

	expected := []string{
		"$list = New-WinUserLanguageList 'en-US'",
		"$list.Clear()",
		"$lang = New-Object -TypeName Microsoft.InternationalSettings.Commands.WinUserLanguage -ArgumentList 'de-DE'",
		"$lang.InputMethodTips.Add('0407:00010407')",
		"$lang.Spellchecking = $false",
		"$lang.Handwriting = $true",
		"Set-WinUserLanguageList -LanguageList $list -Force",
	}
	for _, line := range expected {
		assert.Contains(t, script, line)
	}
	assert.Equal(t, 2, strings.Count(script, "$list.Add($lang)"))
}

func TestApplyScriptQuotes(t *testing.T) {
	profile := lingoswitch.LanguageProfile{
		Name:      "Odd",
		Languages: []lingoswitch.Language{lingoswitch.NewLanguage("x-'; Remove-Item", "0409:00000409")},
	}

	script, err := ApplyScript(lingoswitch.VariantWinUserLanguage, profile)
	require.NoError(t, err)
	assert.Contains(t, script, "'x-''; Remove-Item'")
}

func TestApplyScriptRejects(t *testing.T) {
	_, err := ApplyScript(lingoswitch.VariantSnapshot, lingoswitch.LanguageProfile{})
	assert.ErrorIs(t, err, lingoswitch.ErrUnknownVariant)

	_, err = ApplyScript(lingoswitch.VariantWinUserLanguage, lingoswitch.LanguageProfile{Name: "Empty"})
	assert.ErrorIs(t, err, ErrEmptyLanguageList)
}
