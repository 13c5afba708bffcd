package publish

import "context"

// Upload is everything a video host needs for one video.
type Upload struct {
	Path     string
	Metadata Metadata
	Privacy  string
}

// Publisher uploads a finished artifact and returns the platform video id.
type Publisher interface {
	Publish(ctx context.Context, u Upload) (string, error)
}
