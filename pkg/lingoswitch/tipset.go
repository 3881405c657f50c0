package lingoswitch

import (
	"slices"
	"sort"
)

// TipSet is a sorted, de-duplicated list of input method tips.
type TipSet []string

func NewTipSet(tips ...string) TipSet {
	set := append(TipSet(nil), tips...)
	sort.Strings(set)
	return slices.Compact(set)
}

func TipSetOf(languages []Language) TipSet {
	var tips []string
	for _, l := range languages {
		tips = append(tips, l.InputMethods...)
	}
	return NewTipSet(tips...)
}

func (s TipSet) Equal(other TipSet) bool {
	return slices.Equal(s, other)
}

func (s TipSet) Contains(tip string) bool {
	_, found := slices.BinarySearch(s, tip)
	return found
}
