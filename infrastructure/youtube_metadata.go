// infrastructure/youtube_metadata.go
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/vitovidale/video-notes-service/domain"
)

// YouTubeMetadata looks up title, channel, thumbnail and duration through the YouTube Data API.
type YouTubeMetadata struct {
	svc    *youtube.Service
	logger *zap.Logger
}

// NewYouTubeMetadata builds the API client. endpoint is only set by tests.
func NewYouTubeMetadata(ctx context.Context, apiKey, endpoint string, logger *zap.Logger) (*YouTubeMetadata, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube client: %w", err)
	}
	return &YouTubeMetadata{svc: svc, logger: logger}, nil
}

func (m *YouTubeMetadata) Lookup(ctx context.Context, videoID string) (*domain.VideoInfo, error) {
	resp, err := m.svc.Videos.List([]string{"snippet", "contentDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, domain.ErrVideoNotFound
		}
		m.logger.Warn("youtube metadata lookup failed", zap.String("video_id", videoID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrMetadataUnavailable, err)
	}
	if len(resp.Items) == 0 {
		return nil, domain.ErrVideoNotFound
	}

	item := resp.Items[0]
	info := &domain.VideoInfo{VideoID: videoID}
	if item.Snippet != nil {
		info.Title = item.Snippet.Title
		info.Channel = item.Snippet.ChannelTitle
		info.ThumbnailURL = bestThumbnail(item.Snippet.Thumbnails)
	}
	if item.ContentDetails != nil {
		info.DurationMinutes = domain.MinutesFromSeconds(domain.ParseISODuration(item.ContentDetails.Duration))
	}
	return info, nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
