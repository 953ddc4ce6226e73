package textsim

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// punctuationReplacer maps the fixed punctuation set to spaces.
var punctuationReplacer = strings.NewReplacer(
	"!", " ", "@", " ", "#", " ", "$", " ", "%", " ", "^", " ",
	"&", " ", "*", " ", "(", " ", ")", " ", ",", " ", ".", " ",
	"?", " ", "\"", " ", ":", " ", "{", " ", "}", " ", "|", " ",
	"<", " ", ">", " ",
)

// Normalize returns the canonical comparison form of text.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// cases.Caser is stateful; never share one between goroutines.
	lowered := cases.Lower(language.Und).String(text)
	lowered = strings.Map(func(r rune) rune {
		if r == '\u200c' || r == '\u200d' {
			return -1
		}
		return r
	}, lowered)
	lowered = punctuationReplacer.Replace(lowered)
	collapsed := strings.Join(strings.Fields(lowered), " ")
	return norm.NFC.String(collapsed)
}

// Tokens splits the normalized text into word tokens. Letters, digits and
// combining marks (Telugu vowel signs) are kept together.
func Tokens(text string) []string {
	return strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
	})
}

// SearchTokens returns the query tokens long enough to be worth matching.
func SearchTokens(text string) []string {
	raw := Tokens(text)
	out := raw[:0]
	for _, tok := range raw {
		if len([]rune(tok)) < minSearchTokenLen {
			continue
		}
		out = append(out, tok)
	}
	return out
}

const minSearchTokenLen = 3
