package publish

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"shortsfactory/config"
	"shortsfactory/types"

	"github.com/samber/lo"
)

// Metadata is the title, description and tags sent with an upload.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
}

var styleTags = map[types.Style][]string{
	types.StyleNormal: {"facts", "did you know", "learn"},
	types.StyleDark:   {"horror", "scary stories", "creepy", "mystery"},
	types.StyleMoney:  {"money", "finance", "side hustle", "investing"},
}

// BuildMetadata derives upload metadata from the job and its script.
func BuildMetadata(job types.Job, script types.Script, categoryID string) Metadata {
	if categoryID == "" {
		categoryID = config.YouTubeCategoryID
	}

	title := strings.TrimSpace(job.Topic)
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	title = clip(title+" #shorts", config.MaxTitleLength)

	keywords := lo.Filter(strings.Fields(strings.ToLower(job.Topic)), func(w string, _ int) bool {
		return utf8.RuneCountInString(w) > 2
	})
	tags := lo.Uniq(append(append([]string{strings.ToLower(job.Topic), "shorts"}, keywords...), styleTags[job.Style]...))

	hashtags := lo.Map(lo.Uniq(append(keywords, "shorts")), func(w string, _ int) string {
		return "#" + strings.Map(func(r rune) rune {
			if r == '#' || r == ' ' {
				return -1
			}
			return r
		}, w)
	})

	intro := lo.Slice(script.Lines, 0, 2)
	description := fmt.Sprintf("%s\n\n%s", strings.Join(intro, " "), strings.Join(hashtags, " "))

	return Metadata{
		Title:       title,
		Description: strings.TrimSpace(description),
		Tags:        tags,
		CategoryID:  categoryID,
	}
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
