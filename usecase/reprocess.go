// usecase/reprocess.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

// ReprocessUseCase re-summarizes a failed job from the transcript it kept.
type ReprocessUseCase struct {
	Jobs      domain.JobRepository
	Quotas    domain.QuotaRepository
	Summarize *SummarizeJobUseCase
	Plans     domain.PlanCatalog
	Logger    *zap.Logger
	Now       func() time.Time
}

func (uc *ReprocessUseCase) Execute(ctx context.Context, userID string, tier domain.PlanTier, videoID string) (*domain.Job, error) {
	key := domain.JobKey{UserID: userID, VideoID: videoID}
	job, err := uc.Jobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusFailed || job.Transcript == "" {
		return nil, fmt.Errorf("%w: status %s", domain.ErrNotReprocessable, job.Status)
	}

	tier = domain.NormalizePlanTier(string(tier))
	q, err := uc.Quotas.Ensure(ctx, userID, domain.BillingPeriod(now(uc.Now)), tier, uc.Plans.LimitFor(tier))
	if err != nil {
		return nil, fmt.Errorf("load quota: %w", err)
	}
	if err := q.CheckFits(job.DurationMinutes); err != nil {
		return nil, err
	}

	attemptID, claimID := uuid.NewString(), uuid.NewString()
	ok, err := uc.Jobs.Reopen(ctx, key, attemptID, claimID)
	if err != nil {
		return nil, fmt.Errorf("reopen job: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotReprocessable
	}
	logger(uc.Logger).Info("reprocessing job",
		zap.String("user_id", userID), zap.String("video_id", videoID), zap.String("attempt_id", attemptID))
	return uc.Summarize.Execute(ctx, key, claimID, domain.ProcessingStandard)
}
