package script

import (
	"fmt"
	"math"
	"strings"

	"shortsfactory/config"
	"shortsfactory/types"
)

var personas = map[types.Style]string{
	types.StyleNormal: "You are an upbeat explainer who writes narration for short vertical videos. " +
		"You make surprising facts easy to follow and keep every sentence concrete.",
	types.StyleDark: "You are a cinematic horror narrator writing for short vertical videos. " +
		"You build dread slowly, use vivid sensory detail and end on an unsettling beat.",
	types.StyleMoney: "You are a sharp finance and hustle narrator writing for short vertical videos. " +
		"You speak directly to the viewer with practical, punchy money lessons.",
}

const formatRules = `Formatting rules:
- Output only the words the narrator speaks.
- One sentence per line.
- No titles, no headings, no labels such as "Hook:" or "Scene 1:".
- No numbering, no bullet points, no emojis, no hashtags, no stage directions.`

// Persona returns the system persona for style. Unknown styles are treated as
// a free-form tone hint on top of the normal persona.
func Persona(style types.Style) string {
	if p, ok := personas[style]; ok {
		return p
	}
	if style == "" {
		return personas[types.StyleNormal]
	}
	return fmt.Sprintf("%s Use a %s tone.", personas[types.StyleNormal], style)
}

// TargetWords estimates how many words fit in durationHint seconds of speech.
func TargetWords(durationHint int) int {
	return int(math.Round(float64(durationHint) * config.WordsPerSecond))
}

// BuildScriptPrompt assembles the script request for a job. source is optional
// article text used to ground the narration.
func BuildScriptPrompt(job types.Job, model string, temperature float64, source string) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the narration for a %d second vertical video about: %s\n", job.DurationHint, job.Topic)
	fmt.Fprintf(&b, "Aim for about %d words in total.\n", TargetWords(job.DurationHint))
	if job.SceneCount > 0 {
		fmt.Fprintf(&b, "Write exactly %d lines.\n", job.SceneCount)
	}
	b.WriteString("Open with a hook that makes the viewer stay, then deliver the content, then close with a short line that invites them to follow.\n\n")
	b.WriteString(formatRules)

	if source = strings.TrimSpace(source); source != "" {
		if len(source) > config.MaxSourceChars {
			source = source[:config.MaxSourceChars]
		}
		b.WriteString("\n\nBase the facts only on this source material:\n")
		b.WriteString(source)
	}

	return Prompt{
		Model:       model,
		Persona:     Persona(job.Style),
		Messages:    []Message{{Role: "user", Content: b.String()}},
		Temperature: temperature,
	}
}

// BuildSplitPrompt asks the provider to regroup narration into exactly n lines.
func BuildSplitPrompt(text string, n int, model string) Prompt {
	content := fmt.Sprintf(
		"Split the following narration into exactly %d lines of spoken text. "+
			"Keep the original wording and order, do not add or drop sentences.\n\n%s\n\nNarration:\n%s",
		n, formatRules, text,
	)
	return Prompt{
		Model:    model,
		Persona:  "You are a precise script editor.",
		Messages: []Message{{Role: "user", Content: content}},
	}
}
