// usecase/sweep_stale.go
package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

// SweepStaleUseCase fails jobs that have waited in processing longer than StaleAfter.
type SweepStaleUseCase struct {
	Jobs       domain.JobRepository
	StaleAfter time.Duration
	Observer   domain.PipelineObserver
	Logger     *zap.Logger
	Now        func() time.Time
}

func (uc *SweepStaleUseCase) Execute(ctx context.Context) (int64, error) {
	if uc.StaleAfter <= 0 {
		return 0, nil
	}
	n, err := uc.Jobs.FailStale(ctx, now(uc.Now).Add(-uc.StaleAfter), domain.ReasonStale)
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < n; i++ {
		observer(uc.Observer).JobFinished(domain.JobStatusFailed, domain.ProcessingAsync)
	}
	if n > 0 {
		logger(uc.Logger).Warn("failed stale jobs", zap.Int64("count", n), zap.Duration("stale_after", uc.StaleAfter))
	}
	return n, nil
}

// Run sweeps every interval until ctx is done.
func (uc *SweepStaleUseCase) Run(ctx context.Context, interval time.Duration) {
	if uc.StaleAfter <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := uc.Execute(ctx); err != nil && ctx.Err() == nil {
				logger(uc.Logger).Error("stale job sweep failed", zap.Error(err))
			}
		}
	}
}
