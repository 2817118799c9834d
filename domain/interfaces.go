// domain/interfaces.go
package domain

import (
	"context"
	"time"
)

// JobRepository persists jobs. Every state-changing method is a conditional update that reports
// whether it matched, so concurrent webhook deliveries cannot both move a job past processing.
type JobRepository interface {
	Get(ctx context.Context, key JobKey) (*Job, error)
	// Reset creates or overwrites the job as a fresh pending attempt.
	Reset(ctx context.Context, job *Job) error
	MarkProcessing(ctx context.Context, key JobKey, attemptID string) (bool, error)
	SetSnapshotID(ctx context.Context, key JobKey, attemptID, snapshotID string) error
	// ClaimTranscript stores the transcript on an unclaimed processing job and records claimID
	// as the only delivery allowed to finish it.
	ClaimTranscript(ctx context.Context, key JobKey, attemptID, claimID string, payload TranscriptPayload) (bool, error)
	Complete(ctx context.Context, key JobKey, claimID, summary string, processingType ProcessingType) (bool, error)
	FailClaimed(ctx context.Context, key JobKey, claimID, reason string) (bool, error)
	FailUnclaimed(ctx context.Context, key JobKey, attemptID, reason string) (bool, error)
	// Reopen moves a failed job that still holds its transcript back to processing under a new
	// attempt and claim.
	Reopen(ctx context.Context, key JobKey, attemptID, claimID string) (bool, error)
	FindProcessing(ctx context.Context, videoID, attemptID string) ([]Job, error)
	FindProcessingBySnapshot(ctx context.Context, snapshotID string) ([]Job, error)
	FindReusableTranscript(ctx context.Context, videoID string) (string, error)
	ListCompleted(ctx context.Context, userID string, limit int) ([]Job, error)
	FailStale(ctx context.Context, updatedBefore time.Time, reason string) (int64, error)
}

// QuotaRepository is the per-user, per-period minutes ledger.
type QuotaRepository interface {
	// Ensure returns the record for the period, creating it with the tier's limit if absent and
	// updating tier and limit when the user's plan changed.
	Ensure(ctx context.Context, userID, period string, tier PlanTier, limit int) (*QuotaRecord, error)
	Get(ctx context.Context, userID, period string) (*QuotaRecord, error)
	// IncrementUsage adds minutes in a single storage-side arithmetic update.
	IncrementUsage(ctx context.Context, userID, period string, minutes int) (*QuotaRecord, error)
}

type ExtractionRequest struct {
	VideoURL    string
	CallbackURL string
	NotifyURL   string
	// AuthToken is echoed back by the provider in the webhook Authorization header.
	AuthToken string
}

type TranscriptProvider interface {
	TriggerExtraction(ctx context.Context, req ExtractionRequest) (snapshotID string, err error)
}

type SummaryRequest struct {
	Transcript string
	Tier       PlanTier
	Title      string
	Channel    string
}

type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

type MetadataLookup interface {
	Lookup(ctx context.Context, videoID string) (*VideoInfo, error)
}

type MessageQueueService interface {
	PublishTranscriptReady(ctx context.Context, msg TranscriptReadyMessage) error
	ConsumeTranscriptReady(ctx context.Context, handler func(context.Context, TranscriptReadyMessage) error) error
}

// PlanCatalog maps tiers to monthly minute limits. Unknown tiers get the free limit.
type PlanCatalog map[PlanTier]int

func (c PlanCatalog) LimitFor(tier PlanTier) int {
	if limit, ok := c[tier]; ok {
		return limit
	}
	return c[PlanFree]
}

// PipelineObserver is told about job lifecycle events. The metrics adapter implements it.
type PipelineObserver interface {
	JobStarted(processingType ProcessingType)
	JobFinished(status JobStatus, processingType ProcessingType)
	QuotaRejected(tier PlanTier)
	SummarizationObserved(tier PlanTier, elapsed time.Duration, err error)
}

type NopObserver struct{}

func (NopObserver) JobStarted(ProcessingType) {}
func (NopObserver) JobFinished(JobStatus, ProcessingType) {}
func (NopObserver) QuotaRejected(PlanTier) {}
func (NopObserver) SummarizationObserved(PlanTier, time.Duration, error) {}
