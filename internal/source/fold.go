package source

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Fold returns the case-insensitive key for an identifier. Identifiers in the
// language compare without regard to case, so every name index is keyed by Fold.
func Fold(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			// cases.Caser хранит состояние, поэтому новый на каждый вызов
			return cases.Fold().String(name)
		}
	}
	return strings.ToLower(name)
}

// EqualFold reports whether two identifiers name the same symbol.
func EqualFold(a, b string) bool {
	if len(a) == len(b) && strings.EqualFold(a, b) {
		return true
	}
	return Fold(a) == Fold(b)
}
