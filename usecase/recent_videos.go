// usecase/recent_videos.go
package usecase

import (
	"context"
	"time"

	"github.com/vitovidale/video-notes-service/domain"
)

const DefaultRecentLimit = 20

type RecentVideo struct {
	VideoID         string
	Title           string
	Channel         string
	ThumbnailURL    string
	DurationMinutes int
	ProcessingType  domain.ProcessingType
	ProcessedAt     time.Time
}

type RecentVideosUseCase struct {
	Jobs domain.JobRepository
}

func (uc *RecentVideosUseCase) Execute(ctx context.Context, userID string, limit int) ([]RecentVideo, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultRecentLimit
	}
	jobs, err := uc.Jobs.ListCompleted(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	videos := make([]RecentVideo, 0, len(jobs))
	for _, j := range jobs {
		videos = append(videos, RecentVideo{
			VideoID:         j.VideoID,
			Title:           j.Title,
			Channel:         j.Channel,
			ThumbnailURL:    j.ThumbnailURL,
			DurationMinutes: j.DurationMinutes,
			ProcessingType:  j.ProcessingType,
			ProcessedAt:     j.UpdatedAt,
		})
	}
	return videos, nil
}
