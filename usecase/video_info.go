// usecase/video_info.go
package usecase

import (
	"context"

	"github.com/vitovidale/video-notes-service/domain"
)

type VideoInfoUseCase struct {
	Metadata domain.MetadataLookup
}

func (uc *VideoInfoUseCase) Execute(ctx context.Context, videoURL string) (*domain.VideoInfo, error) {
	videoID, err := domain.ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}
	if uc.Metadata == nil {
		return nil, domain.ErrMetadataUnavailable
	}
	return uc.Metadata.Lookup(ctx, videoID)
}
