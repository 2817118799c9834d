// usecase/provider_notify.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

// ProviderNotifyUseCase reacts to snapshot status notifications. Only failures change jobs;
// successful snapshots are delivered through the transcript webhook.
type ProviderNotifyUseCase struct {
	Jobs     domain.JobRepository
	Observer domain.PipelineObserver
	Logger   *zap.Logger
}

func (uc *ProviderNotifyUseCase) Execute(ctx context.Context, snapshotID, status string) (int, error) {
	log := logger(uc.Logger).With(zap.String("snapshot_id", snapshotID), zap.String("status", status))
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "error":
	default:
		log.Debug("snapshot notification acknowledged")
		return 0, nil
	}

	jobs, err := uc.Jobs.FindProcessingBySnapshot(ctx, snapshotID)
	if err != nil {
		return 0, fmt.Errorf("find jobs for snapshot: %w", err)
	}
	reason := "provider reported failure: " + status
	failed := 0
	for _, job := range jobs {
		ok, err := uc.Jobs.FailUnclaimed(ctx, job.Key(), job.AttemptID, reason)
		if err != nil {
			return failed, fmt.Errorf("fail job %s: %w", job.VideoID, err)
		}
		if ok {
			failed++
			observer(uc.Observer).JobFinished(domain.JobStatusFailed, domain.ProcessingAsync)
		}
	}
	log.Warn("provider reported snapshot failure", zap.Int("jobs_failed", failed))
	return failed, nil
}
