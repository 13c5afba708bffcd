package assets

import (
	"strings"
	"unicode"

	"shortsfactory/config"
	"shortsfactory/types"

	"github.com/samber/lo"
)

var stopWords = lo.SliceToMap(strings.Fields(`
	a about above after again against all also am an and any are as at be because been before being
	below between both but by can could did do does doing down during each every few for from further
	had has have having he her here hers herself him himself his how i if in into is it its itself
	just know like made make many me more most much my myself never no nor not now of off on once only
	or other our ours ourselves out over own really same she should so some such than that the their
	theirs them themselves then there these they this those through to too under until up very was
	we were what when where which while who whom why will with would you your yours yourself
	did didnt dont doesnt isnt wasnt youre thats theres heres lets whats even still ever
	follow subscribe`), func(w string) (string, struct{}) { return w, struct{}{} })

// DeriveQuery builds a short keyword query from narration text: the first
// significant words, skipping stop-words, short tokens and duplicates.
func DeriveQuery(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	significant := lo.Filter(words, func(w string, _ int) bool {
		w = strings.ReplaceAll(w, "'", "")
		if len([]rune(w)) < 3 {
			return false
		}
		_, stop := stopWords[w]
		return !stop
	})
	significant = lo.Uniq(lo.Map(significant, func(w string, _ int) string {
		return strings.Trim(w, "'")
	}))

	if len(significant) > config.MaxQueryWords {
		significant = significant[:config.MaxQueryWords]
	}
	return strings.Join(significant, " ")
}

var styleLooks = map[types.Style]string{
	types.StyleNormal: "bright natural light, vivid colors, sharp focus",
	types.StyleDark:   "dark moody atmosphere, deep shadows, fog, horror film still",
	types.StyleMoney:  "luxury aesthetic, golden hour, clean modern composition",
}

const maxPromptRunes = 300

// CinematicPrompt turns narration into an image-synthesis prompt in a
// vertical cinematic style matching the job style.
func CinematicPrompt(text string, style types.Style) string {
	look, ok := styleLooks[style]
	if !ok {
		look = styleLooks[types.StyleNormal]
	}
	subject := strings.TrimSpace(text)
	if r := []rune(subject); len(r) > maxPromptRunes {
		subject = string(r[:maxPromptRunes])
	}
	return "cinematic vertical shot, " + subject + ", " + look + ", photorealistic, 9:16, no text, no watermark"
}
