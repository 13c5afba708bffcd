package assets

import (
	"context"

	"shortsfactory/types"
)

// SourceKind separates keyword search from image synthesis.
type SourceKind int

const (
	Stock SourceKind = iota
	Synthesized
)

func (k SourceKind) String() string {
	if k == Synthesized {
		return "synthesized"
	}
	return "stock"
}

// Query is a search request to an image source.
type Query struct {
	// Text is a keyword query for stock sources or a prompt for synthesis.
	Text        string
	Count       int
	Orientation string
}

// Candidate is one downloadable image offered by a source.
type Candidate struct {
	URL    string
	Width  int
	Height int
}

// ImageSource is a stock-photo search or an image-synthesis backend.
type ImageSource interface {
	Name() string
	Kind() SourceKind
	Search(ctx context.Context, q Query) ([]Candidate, error)
}

// Strategy is chosen once per job. Fallback may be nil, in which case the
// primary source is retried once with the job topic.
type Strategy struct {
	Primary  ImageSource
	Fallback ImageSource
}

// StrategyFor picks the source order for mode. Either source may be nil when
// it is not configured; the other one is then used alone.
func StrategyFor(mode types.ImageMode, stock, synth ImageSource) Strategy {
	if mode == types.ImageModeSynth && synth != nil {
		return Strategy{Primary: synth, Fallback: stock}
	}
	if stock == nil {
		return Strategy{Primary: synth}
	}
	return Strategy{Primary: stock, Fallback: synth}
}
