package narration

import "context"

// Speech is a text-to-speech request.
type Speech struct {
	Text  string
	Voice string
	Model string
}

// TTSProvider renders speech into an audio file at path.
type TTSProvider interface {
	Name() string
	Synthesize(ctx context.Context, s Speech, path string) error
}
