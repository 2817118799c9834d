// usecase/summarize_job.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

// SummarizeJobUseCase finishes a claimed job: it summarizes the stored transcript, completes or
// fails the job, and bills the quota once the job is completed.
type SummarizeJobUseCase struct {
	Jobs       domain.JobRepository
	Quotas     domain.QuotaRepository
	Summarizer domain.Summarizer
	Plans      domain.PlanCatalog
	Observer   domain.PipelineObserver
	Logger     *zap.Logger
	Now        func() time.Time
}

// Execute runs for the holder of claimID only. A job that is no longer processing under that
// claim is returned unchanged. Once the summarizer returns, the job is completed or failed even
// if ctx has been cancelled meanwhile.
func (uc *SummarizeJobUseCase) Execute(ctx context.Context, key domain.JobKey, claimID string, processingType domain.ProcessingType) (*domain.Job, error) {
	log := logger(uc.Logger).With(zap.String("user_id", key.UserID), zap.String("video_id", key.VideoID))
	// A claimed job nobody finishes cannot be reclaimed by a redelivery.
	finish := context.WithoutCancel(ctx)

	job, err := uc.Jobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransition(domain.JobStatusCompleted) || job.ClaimID != claimID {
		log.Info("job no longer held by this claim, skipping summarization", zap.String("status", string(job.Status)))
		return job, nil
	}

	start := now(uc.Now)
	summary, err := uc.Summarizer.Summarize(ctx, domain.SummaryRequest{
		Transcript: job.Transcript,
		Tier:       job.PlanTier,
		Title:      job.Title,
		Channel:    job.Channel,
	})
	observer(uc.Observer).SummarizationObserved(job.PlanTier, now(uc.Now).Sub(start), err)
	if err != nil {
		reason := "summarization failed: " + err.Error()
		log.Error("summarization failed", zap.Error(err))
		if _, ferr := uc.Jobs.FailClaimed(finish, key, claimID, reason); ferr != nil {
			log.Error("could not mark job failed", zap.Error(ferr))
		} else {
			observer(uc.Observer).JobFinished(domain.JobStatusFailed, processingType)
		}
		if !errors.Is(err, domain.ErrSummarizationUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrSummarizationUnavailable, err)
		}
		return nil, err
	}

	ok, err := uc.Jobs.Complete(finish, key, claimID, summary, processingType)
	if err != nil {
		return nil, fmt.Errorf("complete job %s: %w", key.VideoID, err)
	}
	if !ok {
		log.Warn("job changed while summarizing, result discarded")
		return uc.Jobs.Get(finish, key)
	}
	observer(uc.Observer).JobFinished(domain.JobStatusCompleted, processingType)

	uc.bill(finish, log, job)

	job.Status = domain.JobStatusCompleted
	job.Summary = summary
	job.ProcessingType = processingType
	job.ErrorMessage = ""
	log.Info("job completed",
		zap.String("processing_type", string(processingType)),
		zap.Int("duration_minutes", job.DurationMinutes))
	return job, nil
}

// bill charges the job's minutes to the current period. A failure here does not undo the
// completed job.
func (uc *SummarizeJobUseCase) bill(ctx context.Context, log *zap.Logger, job *domain.Job) {
	period := domain.BillingPeriod(now(uc.Now))
	_, err := uc.Quotas.IncrementUsage(ctx, job.UserID, period, job.DurationMinutes)
	if errors.Is(err, domain.ErrQuotaNotFound) {
		// The job was started in a previous period.
		if _, err = uc.Quotas.Ensure(ctx, job.UserID, period, job.PlanTier, uc.Plans.LimitFor(job.PlanTier)); err == nil {
			_, err = uc.Quotas.IncrementUsage(ctx, job.UserID, period, job.DurationMinutes)
		}
	}
	if err != nil {
		log.Error("failed to record usage", zap.String("period", period), zap.Error(err))
	}
}
