package kblayouts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	require.Greater(t, reg.Len(), 10)

	us, ok := reg.Lookup("0409:00000409")
	require.True(t, ok)
	assert.Equal(t, "en-US", us.LanguageTag)
	assert.Equal(t, "US", us.DisplayName)

	fr, ok := reg.Lookup("040C:0000040c")
	require.True(t, ok)
	assert.Equal(t, "fr-FR", fr.LanguageTag)

	_, ok = reg.Lookup("0409:00000409 ")
	assert.False(t, ok)
}

func TestAllIsSortedByDisplayName(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	all := reg.All()
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].DisplayName, all[i].DisplayName)
	}
}

func TestSearch(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	turkish := reg.Search("TURKISH")
	require.Len(t, turkish, 2)
	for _, l := range turkish {
		assert.Equal(t, "tr-TR", l.LanguageTag)
	}

	byTag := reg.Search("fr-ca")
	assert.Len(t, byTag, 2)

	byTip := reg.Search("0409:00010409")
	require.Len(t, byTip, 1)
	assert.Equal(t, "United States-Dvorak", byTip[0].DisplayName)

	assert.Len(t, reg.Search("  "), reg.Len())
}

func TestResolve(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	infos, err := reg.Resolve("0409:00000409", "0419:00000419")
	require.NoError(t, err)
	assert.Equal(t, "ru-RU", infos[1].LanguageTag)

	_, err = reg.Resolve("0409:00000409", "FFFF:0000ffff")
	assert.Error(t, err)
}

const customXML = `<keyboardLayoutRegistry><layoutList>
<layout><tip>0409:00000409</tip><displayName>US</displayName><language>en-US</language></layout>
%s
</layoutList></keyboardLayoutRegistry>`

func TestDecodeRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"malformed tip": `<layout><tip>0409</tip><displayName>X</displayName><language>en-US</language></layout>`,
		"bad language":  `<layout><tip>0809:00000809</tip><displayName>X</displayName><language>not a tag!</language></layout>`,
		"duplicate tip": `<layout><tip>0409:00000409</tip><displayName>Y</displayName><language>en-US</language></layout>`,
	}

	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(strings.Replace(customXML, "%s", entry, 1)))
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestParseLayoutsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.xml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(customXML, "%s", "", 1)), 0o644))

	reg, err := ParseLayouts(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	_, err = ParseLayouts(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}
