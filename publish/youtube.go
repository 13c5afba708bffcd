package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"shortsfactory/config"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTube uploads videos with the YouTube Data API v3.
type YouTube struct {
	service *youtube.Service
}

// NewYouTube authenticates with a service account file when one is set,
// otherwise with an OAuth client id, secret and refresh token.
func NewYouTube(ctx context.Context, cfg config.UploadConfig) (*YouTube, error) {
	if !cfg.Enabled() {
		return nil, errors.New("youtube credentials not configured")
	}

	var opt option.ClientOption
	if cfg.ServiceAccountFile != "" {
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account: %w", err)
		}
		jwtCfg, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account: %w", err)
		}
		opt = option.WithHTTPClient(jwtCfg.Client(ctx))
	} else {
		conf := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{youtube.YoutubeUploadScope},
		}
		token := &oauth2.Token{
			RefreshToken: cfg.RefreshToken,
			Expiry:       time.Now().Add(-time.Hour), // force refresh
		}
		opt = option.WithTokenSource(conf.TokenSource(ctx, token))
	}

	service, err := youtube.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &YouTube{service: service}, nil
}

func (y *YouTube) Publish(ctx context.Context, u Upload) (string, error) {
	f, err := os.Open(u.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	privacy := u.Privacy
	if privacy == "" {
		privacy = config.YouTubePrivacyStatus
	}

	log.Info().
		Str("path", u.Path).
		Float64("size_mb", float64(info.Size())/(1024*1024)).
		Str("privacy", privacy).
		Msg("uploading video")

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{ // title and tags come from BuildMetadata
			Title:       u.Metadata.Title,
			Description: u.Metadata.Description,
			Tags:        u.Metadata.Tags,
			CategoryId:  u.Metadata.CategoryID,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: privacy},
	}

	response, err := y.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("videos.insert: %w", err)
	}

	log.Info().Str("video_id", response.Id).Msg("uploaded https://youtube.com/shorts/" + response.Id)
	return response.Id, nil
}
