package script

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "plain lines kept in order",
			raw:  "The ocean covers most of our planet.\nMost of it has never been explored.\n",
			want: []string{"The ocean covers most of our planet.", "Most of it has never been explored."},
		},
		{
			name: "headings and scene labels dropped",
			raw:  "Title: Ocean Secrets\n## Scene 1: The abyss\nScene 2 - Whales\nThe deep sea is darker than any night.",
			want: []string{"The deep sea is darker than any night."},
		},
		{
			name: "spoken labels keep their text",
			raw:  "Hook: Did you know sharks are older than trees?\nFACT #2: Octopuses have three hearts each.",
			want: []string{"Did you know sharks are older than trees?", "Octopuses have three hearts each."},
		},
		{
			name: "numbering bullets and emphasis stripped",
			raw:  "1. Sharks never stop swimming.\n2) **Whales** sing for hours.\n- Coral reefs are alive and growing.\n3.5 million ships lie on the seafloor.",
			want: []string{
				"Sharks never stop swimming.",
				"Whales sing for hours.",
				"Coral reefs are alive and growing.",
				"3.5 million ships lie on the seafloor.",
			},
		},
		{
			name: "annotations and directions dropped",
			raw:  "Visual: drone shot of reef\nDuration: 30 seconds\n(Music fades in slowly)\nHere's the thing: sharks are older than trees.",
			want: []string{"Here's the thing: sharks are older than trees."},
		},
		{
			name: "short fragments and hashtags dropped",
			raw:  "Wow.\nFollow!\n#shorts #ocean\n\"Jellyfish have no brain at all.\"",
			want: []string{"Jellyfish have no brain at all."},
		},
		{
			name: "nothing usable",
			raw:  "Title: Oceans\nScene 1:\nOk.",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Normalize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
