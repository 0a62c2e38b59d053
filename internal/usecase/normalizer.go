package usecase

import "strings"

// cyrillicToLatin maps Cyrillic characters that are visually identical to
// Latin ones. Spam posts write brand names with one or two foreign letters
// (e.g. "iРhоnе" for "iPhone") to slip past keyword filters.
//
// Every uppercase entry has its lowercase counterpart so folding commutes
// with case folding: "Куплю" and "куплю" must normalize identically or
// exclusion keywords stop firing on capitalized messages.
var cyrillicToLatin = map[rune]rune{
	// Uppercase
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M',
	'Н': 'H', 'О': 'O', 'Р': 'P', 'С': 'C', 'Т': 'T',
	'Х': 'X', 'У': 'Y', 'І': 'I',
	// Lowercase
	'а': 'a', 'в': 'b', 'е': 'e', 'к': 'k', 'м': 'm',
	'н': 'h', 'о': 'o', 'р': 'p', 'с': 'c', 'т': 't',
	'у': 'y', 'х': 'x', 'і': 'i',
}

// Normalizer canonicalizes raw message text before any rule evaluation
type Normalizer struct {
	caseSensitive bool
}

// NewNormalizer creates a normalizer honoring the session's case flag
func NewNormalizer(caseSensitive bool) *Normalizer {
	return &Normalizer{caseSensitive: caseSensitive}
}

// Normalize replaces Cyrillic look-alikes with their Latin counterparts and
// case-folds unless the session is case-sensitive. Deterministic, total and
// idempotent; empty input yields empty output.
func (n *Normalizer) Normalize(text string) string {
	folded := foldLookalikes(text)
	if n.caseSensitive {
		return folded
	}
	return strings.ToLower(folded)
}

// foldLookalikes substitutes every Cyrillic look-alike with its Latin
// counterpart, leaving all other runes untouched.
func foldLookalikes(text string) string {
	return strings.Map(func(r rune) rune {
		if latin, ok := cyrillicToLatin[r]; ok {
			return latin
		}
		return r
	}, text)
}
