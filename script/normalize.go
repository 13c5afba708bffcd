package script

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"shortsfactory/config"

	"github.com/samber/lo"
)

var (
	// "Hook:", "Scene 2 -", "FACT #3:", "Narrator:"
	metaLabel = regexp.MustCompile(`(?i)^(hook|fact|scene|title|intro|outro|narrator|narration|voiceover|cta|part|closing|ending)\s*#?\s*\d*\s*[:\-–—.)]`)
	// "1.", "2)", "3 -", "#4:"
	leadingNumber = regexp.MustCompile(`^#?\d+\s*[.):\-–—](\s+|$)`)
	bullet        = regexp.MustCompile(`^[\-*•·>]+\s*`)
	heading       = regexp.MustCompile(`^#+\s*`)
	emphasis      = strings.NewReplacer("**", "", "__", "", "`", "")
	// "(Music fades)", "[Cut to black]"
	stageDirection = regexp.MustCompile(`^[\[(].*[\])]$`)
)

var spokenLabels = map[string]bool{
	"hook":      true,
	"fact":      true,
	"narrator":  true,
	"narration": true,
	"voiceover": true,
}

// Normalize turns a raw provider response into narration lines. Lines that
// are labels, annotations or fragments shorter than the minimum are dropped.
func Normalize(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")

	cleaned := lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		return cleanLine(line)
	})

	return lo.Filter(cleaned, func(line string, _ int) bool {
		return utf8.RuneCountInString(line) >= config.MinLineLength
	})
}

func cleanLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	if lo.EveryBy(strings.Fields(line), func(w string) bool { return strings.HasPrefix(w, "#") && len(w) > 1 }) {
		return "", false
	}

	line = emphasis.Replace(line)
	line = heading.ReplaceAllString(line, "")
	line = bullet.ReplaceAllString(line, "")
	line = strings.TrimSpace(line)

	if stageDirection.MatchString(line) {
		return "", false
	}

	if m := metaLabel.FindStringSubmatchIndex(line); m != nil {
		// Narration labels wrap spoken text; every other label marks a
		// heading or a direction and the whole line goes.
		if !spokenLabels[strings.ToLower(line[m[2]:m[3]])] {
			return "", false
		}
		line = strings.TrimSpace(line[m[1]:])
	}
	line = leadingNumber.ReplaceAllString(line, "")

	if isAnnotation(line) {
		return "", false
	}

	line = strings.Trim(line, `"'“”‘’ `)
	line = strings.Join(strings.Fields(line), " ")
	if line == "" {
		return "", false
	}
	return line, true
}

// annotationMaxLen is the longest "Label: note" line still treated as an
// annotation rather than narration.
const annotationMaxLen = 40

// isAnnotation reports short lines such as "Visual: drone shot of reef" or
// "Duration: 30 seconds" where a label of a few words precedes a colon.
func isAnnotation(line string) bool {
	label, rest, found := strings.Cut(line, ":")
	if !found {
		return false
	}
	words := strings.Fields(label)
	if len(words) == 0 || len(words) > 3 || strings.ContainsAny(label, ".!?,") {
		return false
	}
	if strings.TrimSpace(rest) == "" {
		return true
	}
	return utf8.RuneCountInString(line) <= annotationMaxLen
}
