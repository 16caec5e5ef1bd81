package asu

import (
	"strings"
	"unicode"
)

// asciiToRussian maps Latin letters to their closest Cyrillic look-alikes.
// Lecturer names on the provider side are always Cyrillic, so a Latin query
// like "Ivanov" has to become "Иванов" before it can match anything.
var asciiToRussian = map[rune]rune{
	'a': 'а', 'b': 'в', 'c': 'с', 'd': 'д', 'e': 'е', 'f': 'ф',
	'g': 'г', 'h': 'х', 'i': 'и', 'j': 'й', 'k': 'к', 'l': 'л',
	'm': 'м', 'n': 'н', 'o': 'о', 'p': 'р', 'q': 'к', 'r': 'р',
	's': 'с', 't': 'т', 'u': 'у', 'v': 'в', 'w': 'в', 'x': 'х',
	'y': 'у', 'z': 'з',
}

// ToRussian transliterates Latin characters in text to Cyrillic. The lookup
// folds case because the mapping has no uppercase rows; any rune outside
// the table passes through unchanged, case included.
func ToRussian(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if ru, ok := asciiToRussian[unicode.ToLower(r)]; ok {
			b.WriteRune(ru)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
