// Package keyword decides whether an article title is relevant.
package keyword

import (
	"strings"
	"unicode"
)

// Match modes.
const (
	// ModeSubstring matches a keyword anywhere in the title, so "planet"
	// matches "Exoplanet" and "mars" matches "Marshall".
	ModeSubstring = "substring"
	// ModeWord only matches whole words.
	ModeWord = "word"
)

// Filter is a fixed keyword set.
type Filter struct {
	keywords []string
	mode     string
}

// New returns a filter over keywords. Keywords are lowercased and blanks
// dropped. An empty mode means ModeSubstring.
func New(keywords []string, mode string) *Filter {
	f := &Filter{mode: mode}
	if f.mode == "" {
		f.mode = ModeSubstring
	}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			f.keywords = append(f.keywords, k)
		}
	}
	return f
}

// Matches reports whether the lowercased title contains at least one keyword.
func (f *Filter) Matches(title string) bool {
	lower := strings.ToLower(title)
	for _, k := range f.keywords {
		if f.mode == ModeWord {
			if containsWord(lower, k) {
				return true
			}
			continue
		}
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Keywords returns the normalized keyword list.
func (f *Filter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}

func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if boundary(s, start-1) && boundary(s, end) {
			return true
		}
		i = start + 1
	}
}

// boundary reports whether byte position i is outside s or not part of a word.
func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return r < 0x80 && !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
