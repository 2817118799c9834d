// usecase/job_status.go
package usecase

import (
	"context"
	"strings"

	"github.com/vitovidale/video-notes-service/domain"
)

// JobStatusUseCase is the read side polled by clients. It never mutates anything.
type JobStatusUseCase struct {
	Jobs domain.JobRepository
}

func (uc *JobStatusUseCase) Execute(ctx context.Context, userID, videoID string) (*domain.JobSnapshot, error) {
	videoID = strings.TrimSpace(videoID)
	if !domain.IsValidVideoID(videoID) {
		return nil, domain.ErrInvalidVideoURL
	}
	job, err := uc.Jobs.Get(ctx, domain.JobKey{UserID: userID, VideoID: videoID})
	if err != nil {
		return nil, err
	}
	snapshot := job.Snapshot()
	return &snapshot, nil
}
