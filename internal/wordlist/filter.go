package wordlist

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxWordLen drops entries that are unlikely to be real words, such as URLs
// or concatenated tokens in user supplied lists.
const MaxWordLen = 24

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterForLang returns the filter applied to a word list for lang. English
// keeps plain lowercase ASCII; other languages keep any word made of letters.
func FilterForLang(lang string) FilterFunc {
	if strings.EqualFold(lang, BuiltinLang) {
		return withMaxLen(isLowerASCII)
	}
	return withMaxLen(isLetters)
}

func withMaxLen(keep FilterFunc) FilterFunc {
	return func(word string) bool {
		if word == "" || utf8.RuneCountInString(word) > MaxWordLen {
			return false
		}
		return keep(word)
	}
}

func isLowerASCII(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			return false
		}
	}
	return true
}

func isLetters(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
