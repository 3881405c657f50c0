package kblayouts

import "encoding/xml"

type layoutRegistry struct {
	XMLName    xml.Name   `xml:"keyboardLayoutRegistry"`
	LayoutList layoutList `xml:"layoutList"`
}

type layoutList struct {
	Layout []layout `xml:"layout"`
}

type layout struct {
	Tip         string `xml:"tip"`
	DisplayName string `xml:"displayName"`
	Language    string `xml:"language"`
}

// KeyboardLayoutInfo describes a known keyboard layout.
type KeyboardLayoutInfo struct {
	DisplayName    string `json:"displayName"`
	LanguageTag    string `json:"languageTag"`
	InputMethodTip string `json:"inputMethodTip"`
}
