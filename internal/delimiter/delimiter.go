// Package delimiter extracts the text a model encloses between a pair of delimiters.
package delimiter

import (
	"fmt"
	"unicode/utf8"
)

// Extractor finds first-level spans between an open and a close rune.
type Extractor struct {
	open  rune
	close rune
}

// Braces is the default curly-brace extractor.
var Braces = Extractor{open: '{', close: '}'}

// New returns an extractor for the given delimiter pair.
func New(open, close rune) (Extractor, error) {
	if open == close {
		return Extractor{}, fmt.Errorf("open and close delimiters must differ")
	}
	if open == utf8.RuneError || close == utf8.RuneError {
		return Extractor{}, fmt.Errorf("invalid delimiter rune")
	}
	return Extractor{open: open, close: close}, nil
}

// Extract returns every span that contains neither delimiter, in order of appearance.
// An inner open delimiter restarts the candidate span; a close ends it.
func (e Extractor) Extract(text string) []string {
	e = e.orDefault()
	var spans []string
	start := -1
	for i, r := range text {
		switch r {
		case e.open:
			start = i + utf8.RuneLen(r)
		case e.close:
			if start >= 0 {
				spans = append(spans, text[start:i])
				start = -1
			}
		}
	}
	return spans
}

// First returns the first span, or "" when there is none.
func (e Extractor) First(text string) string {
	e = e.orDefault()
	start := -1
	for i, r := range text {
		switch r {
		case e.open:
			start = i + utf8.RuneLen(r)
		case e.close:
			if start >= 0 {
				return text[start:i]
			}
		}
	}
	return ""
}

// Delimiters returns the open and close runes.
func (e Extractor) Delimiters() (rune, rune) {
	e = e.orDefault()
	return e.open, e.close
}

func (e Extractor) orDefault() Extractor {
	if e.open == 0 && e.close == 0 {
		return Braces
	}
	return e
}

// Extract applies the default brace extractor.
func Extract(text string) []string {
	return Braces.Extract(text)
}

// First applies the default brace extractor.
func First(text string) string {
	return Braces.First(text)
}
