// usecase/transcript_ready.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

// TranscriptReadyOutput counts what one provider delivery did.
type TranscriptReadyOutput struct {
	Matched   int
	Completed int
	Queued    int
	Failed    int
	// Skipped jobs were already claimed by an earlier delivery.
	Skipped int
}

// TranscriptReadyUseCase applies a normalized provider delivery to the processing jobs waiting
// for that video. Only the delivery that claims a job may summarize and bill it.
type TranscriptReadyUseCase struct {
	Jobs      domain.JobRepository
	Summarize *SummarizeJobUseCase
	// Queue is used instead of inline summarization when set.
	Queue    domain.MessageQueueService
	Observer domain.PipelineObserver
	Logger   *zap.Logger
	Now      func() time.Time
}

func (uc *TranscriptReadyUseCase) Execute(ctx context.Context, payload domain.TranscriptPayload) (*TranscriptReadyOutput, error) {
	log := logger(uc.Logger).With(zap.String("video_id", payload.VideoID))
	if payload.AttemptID != "" {
		log = log.With(zap.String("attempt_id", payload.AttemptID))
	}

	jobs, err := uc.Jobs.FindProcessing(ctx, payload.VideoID, payload.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("find processing jobs: %w", err)
	}
	out := &TranscriptReadyOutput{Matched: len(jobs)}
	if len(jobs) == 0 {
		log.Warn("no processing job for delivery, ignoring")
		return out, nil
	}

	missing := strings.TrimSpace(payload.Transcript) == ""
	for i := range jobs {
		job := &jobs[i]
		key := job.Key()
		jlog := log.With(zap.String("user_id", job.UserID))

		if missing {
			ok, err := uc.Jobs.FailUnclaimed(ctx, key, job.AttemptID, domain.ReasonMissingTranscript)
			if err != nil {
				return out, fmt.Errorf("fail job %s: %w", key.VideoID, err)
			}
			if ok {
				out.Failed++
				observer(uc.Observer).JobFinished(domain.JobStatusFailed, domain.ProcessingAsync)
				jlog.Warn("delivery carried no transcript, job failed")
			} else {
				out.Skipped++
			}
			continue
		}

		claimID := uuid.NewString()
		ok, err := uc.Jobs.ClaimTranscript(ctx, key, job.AttemptID, claimID, payload)
		if err != nil {
			return out, fmt.Errorf("claim job %s: %w", key.VideoID, err)
		}
		if !ok {
			out.Skipped++
			jlog.Info("job already claimed by another delivery")
			continue
		}

		if uc.Queue != nil {
			msg := domain.TranscriptReadyMessage{UserID: job.UserID, VideoID: job.VideoID, ClaimID: claimID, QueuedAt: now(uc.Now)}
			err := uc.Queue.PublishTranscriptReady(ctx, msg)
			if err == nil {
				out.Queued++
				jlog.Info("transcript stored, summarization queued")
				continue
			}
			jlog.Warn("queue publish failed, summarizing inline", zap.Error(err))
		}

		done, err := uc.Summarize.Execute(ctx, key, claimID, domain.ProcessingAsync)
		switch {
		case err != nil:
			out.Failed++
		case done.Status == domain.JobStatusCompleted:
			out.Completed++
		}
	}
	return out, nil
}

// HandleQueued is the consumer side of the queue.
func (uc *TranscriptReadyUseCase) HandleQueued(ctx context.Context, msg domain.TranscriptReadyMessage) error {
	_, err := uc.Summarize.Execute(ctx, domain.JobKey{UserID: msg.UserID, VideoID: msg.VideoID}, msg.ClaimID, domain.ProcessingAsync)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrSummarizationUnavailable), errors.Is(err, domain.ErrJobNotFound):
		// The job already records the outcome; redelivery would not change it.
		logger(uc.Logger).Error("queued summarization failed",
			zap.String("user_id", msg.UserID), zap.String("video_id", msg.VideoID), zap.Error(err))
		return nil
	default:
		return err
	}
}
