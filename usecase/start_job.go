// usecase/start_job.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

type StartJobInput struct {
	UserID   string
	PlanTier domain.PlanTier
	VideoID  string
	VideoURL string
	// Title, Channel and DurationMinutes are what the client saw. Non-empty title and channel
	// win over looked-up values; duration is only used when no lookup is available.
	Title           string
	Channel         string
	DurationMinutes int
}

type StartJobOutput struct {
	// Processing is true when the caller has to poll for the result.
	Processing      bool
	VideoID         string
	Title           string
	Channel         string
	DurationMinutes int
	Summary         string
	ProcessingType  domain.ProcessingType
}

type StartJobUseCase struct {
	Jobs      domain.JobRepository
	Quotas    domain.QuotaRepository
	Provider  domain.TranscriptProvider
	Metadata  domain.MetadataLookup
	Summarize *SummarizeJobUseCase
	Plans     domain.PlanCatalog
	Observer  domain.PipelineObserver
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func() string

	WebhookURL       string
	NotifyURL        string
	WebhookSecret    string
	ReuseTranscripts bool
}

func (uc *StartJobUseCase) Execute(ctx context.Context, input StartJobInput) (*StartJobOutput, error) {
	videoID, err := resolveVideoID(input.VideoID, input.VideoURL)
	if err != nil {
		return nil, err
	}
	tier := domain.NormalizePlanTier(string(input.PlanTier))
	key := domain.JobKey{UserID: input.UserID, VideoID: videoID}
	log := logger(uc.Logger).With(zap.String("user_id", input.UserID), zap.String("video_id", videoID))

	info, err := uc.describe(ctx, videoID, input)
	if err != nil {
		return nil, err
	}

	quota, err := uc.Quotas.Ensure(ctx, input.UserID, domain.BillingPeriod(now(uc.Now)), tier, uc.Plans.LimitFor(tier))
	if err != nil {
		return nil, fmt.Errorf("load quota: %w", err)
	}
	if err := quota.CheckFits(info.DurationMinutes); err != nil {
		observer(uc.Observer).QuotaRejected(tier)
		log.Info("quota exceeded", zap.Int("minutes_used", quota.MinutesUsed),
			zap.Int("minutes_limit", quota.MinutesLimit), zap.Int("requested", info.DurationMinutes))
		return nil, err
	}

	existing, err := uc.Jobs.Get(ctx, key)
	switch {
	case err == nil && existing.Status == domain.JobStatusProcessing:
		log.Info("job already processing, returning existing handle", zap.String("attempt_id", existing.AttemptID))
		return processingOutput(existing), nil
	case err != nil && !errors.Is(err, domain.ErrJobNotFound):
		return nil, fmt.Errorf("load job: %w", err)
	}

	job := &domain.Job{
		UserID:          input.UserID,
		VideoID:         videoID,
		VideoURL:        domain.WatchURL(videoID),
		Title:           info.Title,
		Channel:         info.Channel,
		ThumbnailURL:    info.ThumbnailURL,
		DurationMinutes: info.DurationMinutes,
		PlanTier:        tier,
		AttemptID:       uc.newID(),
	}

	if uc.ReuseTranscripts {
		transcript, err := uc.Jobs.FindReusableTranscript(ctx, videoID)
		if err != nil {
			log.Warn("transcript reuse lookup failed", zap.Error(err))
		} else if transcript != "" {
			return uc.startCached(ctx, log, job, transcript)
		}
	}
	return uc.startStandard(ctx, log, job)
}

func (uc *StartJobUseCase) startStandard(ctx context.Context, log *zap.Logger, job *domain.Job) (*StartJobOutput, error) {
	key := job.Key()
	log = log.With(zap.String("attempt_id", job.AttemptID))

	if err := uc.Jobs.Reset(ctx, job); err != nil {
		return nil, err
	}
	// The job is processing before the provider is called so a fast webhook always finds it.
	ok, err := uc.Jobs.MarkProcessing(ctx, key, job.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("mark job processing: %w", err)
	}
	if !ok {
		current, err := uc.Jobs.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		log.Warn("job superseded by a concurrent request", zap.String("status", string(current.Status)))
		return processingOutput(current), nil
	}
	job.Status = domain.JobStatusProcessing
	observer(uc.Observer).JobStarted(domain.ProcessingAsync)

	snapshotID, err := uc.Provider.TriggerExtraction(ctx, domain.ExtractionRequest{
		VideoURL:    job.VideoURL,
		CallbackURL: uc.callbackURL(job.AttemptID),
		NotifyURL:   uc.NotifyURL,
		AuthToken:   uc.WebhookSecret,
	})
	if err != nil {
		err = classifyTriggerError(err)
		if _, ferr := uc.Jobs.FailUnclaimed(ctx, key, job.AttemptID, err.Error()); ferr != nil {
			log.Error("could not mark job failed after trigger error", zap.Error(ferr))
		}
		observer(uc.Observer).JobFinished(domain.JobStatusFailed, domain.ProcessingAsync)
		log.Error("transcript extraction trigger failed", zap.Error(err))
		return nil, err
	}
	if err := uc.Jobs.SetSnapshotID(ctx, key, job.AttemptID, snapshotID); err != nil {
		log.Warn("could not store snapshot id", zap.String("snapshot_id", snapshotID), zap.Error(err))
	}

	log.Info("transcript extraction triggered", zap.String("snapshot_id", snapshotID))
	return processingOutput(job), nil
}

// startCached summarizes a transcript another job already fetched for the same video.
func (uc *StartJobUseCase) startCached(ctx context.Context, log *zap.Logger, job *domain.Job, transcript string) (*StartJobOutput, error) {
	key := job.Key()
	claimID := uc.newID()
	log = log.With(zap.String("attempt_id", job.AttemptID))

	if err := uc.Jobs.Reset(ctx, job); err != nil {
		return nil, err
	}
	ok, err := uc.Jobs.MarkProcessing(ctx, key, job.AttemptID)
	if err == nil && ok {
		ok, err = uc.Jobs.ClaimTranscript(ctx, key, job.AttemptID, claimID, domain.TranscriptPayload{
			VideoID:    job.VideoID,
			AttemptID:  job.AttemptID,
			Transcript: transcript,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("attach cached transcript: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("cached job %s changed concurrently", key.VideoID)
	}
	observer(uc.Observer).JobStarted(domain.ProcessingCached)
	log.Info("reusing stored transcript")

	done, err := uc.Summarize.Execute(ctx, key, claimID, domain.ProcessingCached)
	if err != nil {
		return nil, err
	}
	return &StartJobOutput{
		VideoID:         done.VideoID,
		Title:           done.Title,
		Channel:         done.Channel,
		DurationMinutes: done.DurationMinutes,
		Summary:         done.Summary,
		ProcessingType:  done.ProcessingType,
	}, nil
}

// describe merges looked-up metadata with what the client sent.
func (uc *StartJobUseCase) describe(ctx context.Context, videoID string, input StartJobInput) (*domain.VideoInfo, error) {
	info := &domain.VideoInfo{VideoID: videoID, DurationMinutes: input.DurationMinutes}
	if uc.Metadata != nil {
		found, err := uc.Metadata.Lookup(ctx, videoID)
		switch {
		case err == nil:
			info = found
		case errors.Is(err, domain.ErrVideoNotFound):
			return nil, err
		case input.DurationMinutes > 0:
			logger(uc.Logger).Warn("metadata lookup failed, using client supplied duration",
				zap.String("video_id", videoID), zap.Error(err))
		default:
			return nil, err
		}
	} else if input.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: no duration for %s", domain.ErrMetadataUnavailable, videoID)
	}
	if t := strings.TrimSpace(input.Title); t != "" {
		info.Title = t
	}
	if c := strings.TrimSpace(input.Channel); c != "" {
		info.Channel = c
	}
	return info, nil
}

func (uc *StartJobUseCase) callbackURL(attemptID string) string {
	return uc.WebhookURL + "?attempt=" + url.QueryEscape(attemptID)
}

func (uc *StartJobUseCase) newID() string {
	if uc.NewID != nil {
		return uc.NewID()
	}
	return uuid.NewString()
}

func processingOutput(job *domain.Job) *StartJobOutput {
	return &StartJobOutput{
		Processing:      true,
		VideoID:         job.VideoID,
		Title:           job.Title,
		Channel:         job.Channel,
		DurationMinutes: job.DurationMinutes,
	}
}

// classifyTriggerError makes sure every trigger failure carries one of the provider sentinels.
func classifyTriggerError(err error) error {
	if errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrProviderRejected) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}

func resolveVideoID(videoID, videoURL string) (string, error) {
	if id := strings.TrimSpace(videoID); id != "" {
		if !domain.IsValidVideoID(id) {
			return "", fmt.Errorf("%w: %q is not a video id", domain.ErrInvalidVideoURL, id)
		}
		return id, nil
	}
	return domain.ExtractVideoID(videoURL)
}
