package lingoswitch

// MatchProfile returns the name of the first profile whose tips are exactly
// the installed tips. Subsets and supersets never match.
func MatchProfile(installed []Language, profiles []LanguageProfile) (string, bool) {
	installedTips := TipSetOf(installed)

	for _, p := range profiles {
		if p.InputMethodSet().Equal(installedTips) {
			return p.Name, true
		}
	}

	return "", false
}
