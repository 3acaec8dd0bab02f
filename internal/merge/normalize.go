package merge

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// RepairText undoes UTF-8 text that was mis-decoded as Windows-1252 or
// Latin-1 (e.g. "CafÃ©" becomes "Café"), applies NFKC normalization and
// collapses runs of whitespace.
func RepairText(s string) string {
	s = fixMojibake(s)
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

func fixMojibake(s string) string {
	if isASCII(s) {
		return s
	}
	for _, cm := range []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1} {
		raw, err := cm.NewEncoder().String(s)
		if err != nil {
			continue
		}
		if raw != s && utf8.ValidString(raw) {
			return raw
		}
		// representable but not mojibake: the text was decoded correctly
		return s
	}
	return s
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
