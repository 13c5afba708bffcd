package narration

import (
	"regexp"
	"strings"
	"unicode"
)

// pauseMarks survive cleaning so the voice still pauses at them.
const pauseMarks = ".,!?'"

var (
	quoteFolder     = strings.NewReplacer("’", "'", "‘", "'", "“", "", "”", "")
	spaceBeforeMark = regexp.MustCompile(`\s+([.,!?])`)
)

// PrepareText joins narration lines into one utterance. Each line ends with
// terminal punctuation so the voice pauses between scenes; anything that is
// not a letter, digit, whitespace or pause mark is dropped.
func PrepareText(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		l = cleanSpeech(l)
		if !strings.ContainsFunc(l, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		if !strings.ContainsAny(l[len(l)-1:], ".!?") {
			l += "."
		}
		parts = append(parts, l)
	}
	return strings.Join(parts, " ")
}

func cleanSpeech(l string) string {
	// Symbols become spaces so "deep-sea" stays two words.
	l = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(pauseMarks, r) {
			return r
		}
		return ' '
	}, quoteFolder.Replace(l))

	l = strings.Join(strings.Fields(l), " ")
	return spaceBeforeMark.ReplaceAllString(l, "$1")
}
