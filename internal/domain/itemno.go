package domain

import "strings"

const (
	// ItemNoWidth is the zero-padded display width of an item number.
	ItemNoWidth = 11
	// MergeKeyWidth is how many trailing digits identify an item across sources.
	MergeKeyWidth = 10
)

// DigitsOnly strips a trailing ".0" left by numeric spreadsheet cells and
// then drops every non-digit rune.
func DigitsOnly(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisplayItemNo is the digits of s left-padded with zeros to ItemNoWidth.
func DisplayItemNo(s string) string {
	d := DigitsOnly(s)
	if d == "" {
		return ""
	}
	if len(d) < ItemNoWidth {
		d = strings.Repeat("0", ItemNoWidth-len(d)) + d
	}
	return d
}

// MergeKey is the last MergeKeyWidth digits of s, used to join stock rows
// to the items master when the two systems pad identifiers differently.
func MergeKey(s string) string {
	d := DisplayItemNo(s)
	if len(d) > MergeKeyWidth {
		d = d[len(d)-MergeKeyWidth:]
	}
	return d
}

// TemplateKey is the digits of s with leading zeros stripped, so "00123"
// and "123" compare equal.
func TemplateKey(s string) string {
	return strings.TrimLeft(DigitsOnly(s), "0")
}
