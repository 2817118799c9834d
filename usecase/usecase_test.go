package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
	"github.com/vitovidale/video-notes-service/infrastructure"
	"github.com/vitovidale/video-notes-service/usecase"
)

const testVideoID = "abc12345678"

type fakeProvider struct {
	mu       sync.Mutex
	requests []domain.ExtractionRequest
	err      error
}

func (p *fakeProvider) TriggerExtraction(_ context.Context, req domain.ExtractionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("s_%d", len(p.requests)), nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakeProvider) last() domain.ExtractionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type fakeSummarizer struct {
	count atomic.Int32
	err   error
	delay time.Duration
}

func (s *fakeSummarizer) Summarize(_ context.Context, req domain.SummaryRequest) (string, error) {
	s.count.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("## %s notes\n\n%s", req.Tier, req.Transcript), nil
}

type fakeMetadata map[string]domain.VideoInfo

func (m fakeMetadata) Lookup(_ context.Context, videoID string) (*domain.VideoInfo, error) {
	info, ok := m[videoID]
	if !ok {
		return nil, domain.ErrVideoNotFound
	}
	return &info, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	msgs []domain.TranscriptReadyMessage
}

func (q *fakeQueue) PublishTranscriptReady(_ context.Context, msg domain.TranscriptReadyMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *fakeQueue) ConsumeTranscriptReady(context.Context, func(context.Context, domain.TranscriptReadyMessage) error) error {
	return nil
}

type pipeline struct {
	jobs       *infrastructure.SQLJobRepository
	quotas     *infrastructure.SQLQuotaRepository
	provider   *fakeProvider
	summarizer *fakeSummarizer
	metadata   fakeMetadata

	start     *usecase.StartJobUseCase
	ready     *usecase.TranscriptReadyUseCase
	summarize *usecase.SummarizeJobUseCase
	status    *usecase.JobStatusUseCase
	usage     *usecase.UsageUseCase
	reprocess *usecase.ReprocessUseCase
	notify    *usecase.ProviderNotifyUseCase
	sweep     *usecase.SweepStaleUseCase
	recent    *usecase.RecentVideosUseCase
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	db, err := infrastructure.OpenSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, infrastructure.Migrate(context.Background(), db))

	p := &pipeline{
		jobs:       infrastructure.NewSQLJobRepository(db, infrastructure.DialectSQLite),
		quotas:     infrastructure.NewSQLQuotaRepository(db, infrastructure.DialectSQLite),
		provider:   &fakeProvider{},
		summarizer: &fakeSummarizer{},
		metadata: fakeMetadata{
			testVideoID: {VideoID: testVideoID, Title: "Go Concurrency", Channel: "gophers", DurationMinutes: 5},
		},
	}
	plans := domain.PlanCatalog{domain.PlanFree: 30, domain.PlanPro: 100, "team": domain.Unlimited}
	log := zap.NewNop()

	p.summarize = &usecase.SummarizeJobUseCase{
		Jobs: p.jobs, Quotas: p.quotas, Summarizer: p.summarizer, Plans: plans, Logger: log,
	}
	p.start = &usecase.StartJobUseCase{
		Jobs:             p.jobs,
		Quotas:           p.quotas,
		Provider:         p.provider,
		Metadata:         p.metadata,
		Summarize:        p.summarize,
		Plans:            plans,
		Logger:           log,
		WebhookURL:       "https://notes.example.com/api/webhooks/brightdata",
		NotifyURL:        "https://notes.example.com/api/webhooks/brightdata/notify",
		WebhookSecret:    "shh",
		ReuseTranscripts: true,
	}
	p.ready = &usecase.TranscriptReadyUseCase{Jobs: p.jobs, Summarize: p.summarize, Logger: log}
	p.status = &usecase.JobStatusUseCase{Jobs: p.jobs}
	p.usage = &usecase.UsageUseCase{Quotas: p.quotas, Plans: plans}
	p.reprocess = &usecase.ReprocessUseCase{Jobs: p.jobs, Quotas: p.quotas, Summarize: p.summarize, Plans: plans, Logger: log}
	p.notify = &usecase.ProviderNotifyUseCase{Jobs: p.jobs, Logger: log}
	p.sweep = &usecase.SweepStaleUseCase{Jobs: p.jobs, StaleAfter: 30 * time.Minute, Logger: log}
	p.recent = &usecase.RecentVideosUseCase{Jobs: p.jobs}
	return p
}

func (p *pipeline) startFree(t *testing.T, userID, videoID string) *usecase.StartJobOutput {
	t.Helper()
	out, err := p.start.Execute(context.Background(), usecase.StartJobInput{
		UserID:   userID,
		PlanTier: domain.PlanFree,
		VideoURL: "https://www.youtube.com/watch?v=" + videoID,
	})
	require.NoError(t, err)
	return out
}

func (p *pipeline) attemptFromLastTrigger(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(p.provider.last().CallbackURL)
	require.NoError(t, err)
	return u.Query().Get("attempt")
}

func (p *pipeline) minutesUsed(t *testing.T, userID string) int {
	t.Helper()
	out, err := p.usage.Execute(context.Background(), userID, domain.PlanFree)
	require.NoError(t, err)
	return out.MinutesUsed
}

func (p *pipeline) job(t *testing.T, userID, videoID string) *domain.Job {
	t.Helper()
	job, err := p.jobs.Get(context.Background(), domain.JobKey{UserID: userID, VideoID: videoID})
	require.NoError(t, err)
	return job
}

func TestStartJob_TriggersExtractionAndLeavesQuota(t *testing.T) {
	p := newPipeline(t)

	out := p.startFree(t, "u1", testVideoID)
	assert.True(t, out.Processing)
	assert.Equal(t, testVideoID, out.VideoID)
	assert.Equal(t, "Go Concurrency", out.Title)
	assert.Equal(t, 5, out.DurationMinutes)

	req := p.provider.last()
	assert.Equal(t, "https://www.youtube.com/watch?v="+testVideoID, req.VideoURL)
	assert.Equal(t, "shh", req.AuthToken)
	assert.Equal(t, "https://notes.example.com/api/webhooks/brightdata/notify", req.NotifyURL)
	assert.True(t, strings.HasPrefix(req.CallbackURL, "https://notes.example.com/api/webhooks/brightdata?attempt="))

	job := p.job(t, "u1", testVideoID)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, "s_1", job.SnapshotID)
	assert.Equal(t, p.attemptFromLastTrigger(t), job.AttemptID)
	assert.Equal(t, 0, p.minutesUsed(t, "u1"))
}

func TestStartJob_RequestTitleOverridesLookup(t *testing.T) {
	p := newPipeline(t)
	out, err := p.start.Execute(context.Background(), usecase.StartJobInput{
		UserID:          "u1",
		VideoID:         testVideoID,
		Title:           "My title",
		DurationMinutes: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, "My title", out.Title)
	assert.Equal(t, "gophers", out.Channel)
	assert.Equal(t, 5, out.DurationMinutes, "looked-up duration wins")
}

func TestStartJob_InvalidURL(t *testing.T) {
	p := newPipeline(t)
	_, err := p.start.Execute(context.Background(), usecase.StartJobInput{UserID: "u1", VideoURL: "https://vimeo.com/123"})
	assert.ErrorIs(t, err, domain.ErrInvalidVideoURL)

	_, err = p.start.Execute(context.Background(), usecase.StartJobInput{UserID: "u1", VideoURL: "https://youtu.be/zzzzzzzzzzz"})
	assert.ErrorIs(t, err, domain.ErrVideoNotFound)
	assert.Zero(t, p.provider.calls())
}

func TestStartJob_QuotaBoundary(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	period := domain.BillingPeriod(time.Now())
	_, err := p.quotas.Ensure(ctx, "u1", period, domain.PlanFree, 30)
	require.NoError(t, err)
	_, err = p.quotas.IncrementUsage(ctx, "u1", period, 29)
	require.NoError(t, err)

	_, err = p.start.Execute(ctx, usecase.StartJobInput{UserID: "u1", PlanTier: domain.PlanFree, VideoID: testVideoID})
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	var qerr *domain.QuotaExceededError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 4, qerr.Deficit)
	assert.Equal(t, 29, qerr.Used)
	assert.Equal(t, 30, qerr.Limit)

	_, err = p.jobs.Get(ctx, domain.JobKey{UserID: "u1", VideoID: testVideoID})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Zero(t, p.provider.calls())
	assert.Equal(t, 29, p.minutesUsed(t, "u1"))
}

func TestStartJob_UnlimitedPlanIgnoresCeiling(t *testing.T) {
	p := newPipeline(t)
	p.metadata["longvideo01"] = domain.VideoInfo{VideoID: "longvideo01", DurationMinutes: 600}

	out, err := p.start.Execute(context.Background(), usecase.StartJobInput{UserID: "u1", PlanTier: "team", VideoID: "longvideo01"})
	require.NoError(t, err)
	assert.True(t, out.Processing)
}

func TestStartJob_ProviderFailureFailsJob(t *testing.T) {
	p := newPipeline(t)
	p.provider.err = fmt.Errorf("%w: connection refused", domain.ErrProviderUnavailable)

	_, err := p.start.Execute(context.Background(), usecase.StartJobInput{UserID: "u1", VideoID: testVideoID})
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)

	job := p.job(t, "u1", testVideoID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "transcript provider unavailable")
	assert.Equal(t, 0, p.minutesUsed(t, "u1"))

	p.provider.err = &domain.ProviderError{Status: 400, Message: "dataset not found"}
	_, err = p.start.Execute(context.Background(), usecase.StartJobInput{UserID: "u1", VideoID: testVideoID})
	require.ErrorIs(t, err, domain.ErrProviderRejected)
	job = p.job(t, "u1", testVideoID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "dataset not found")
}

func TestStartJob_ReturnsExistingProcessingHandle(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)
	out := p.startFree(t, "u1", testVideoID)

	assert.True(t, out.Processing)
	assert.Equal(t, 1, p.provider.calls())
}

func TestTranscriptReady_RoundTrip(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)

	out, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{
		VideoID:    testVideoID,
		Transcript: "hello world",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Completed)

	snap, err := p.status.Execute(context.Background(), "u1", testVideoID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, snap.Status)
	assert.NotEmpty(t, snap.Summary)
	assert.Equal(t, domain.ProcessingAsync, snap.ProcessingType)
	assert.Equal(t, 5, p.minutesUsed(t, "u1"))

	usage, err := p.usage.Execute(context.Background(), "u1", domain.PlanFree)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.VideosProcessed)
	assert.Equal(t, 16, usage.PercentageUsed)
}

func TestTranscriptReady_IdempotentRedelivery(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)
	payload := domain.TranscriptPayload{VideoID: testVideoID, AttemptID: p.attemptFromLastTrigger(t), Transcript: "hello world"}

	_, err := p.ready.Execute(context.Background(), payload)
	require.NoError(t, err)
	first := p.job(t, "u1", testVideoID)

	out, err := p.ready.Execute(context.Background(), payload)
	require.NoError(t, err)
	assert.Zero(t, out.Matched)

	second := p.job(t, "u1", testVideoID)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, int32(1), p.summarizer.count.Load())
	assert.Equal(t, 5, p.minutesUsed(t, "u1"))
}

func TestTranscriptReady_ConcurrentDeliveriesSummarizeOnce(t *testing.T) {
	p := newPipeline(t)
	p.summarizer.delay = 20 * time.Millisecond
	p.startFree(t, "u1", testVideoID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{VideoID: testVideoID, Transcript: "hello world"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.summarizer.count.Load())
	assert.Equal(t, domain.JobStatusCompleted, p.job(t, "u1", testVideoID).Status)
	assert.Equal(t, 5, p.minutesUsed(t, "u1"))
}

func TestTranscriptReady_StaleAttemptIgnored(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)

	out, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{
		VideoID: testVideoID, AttemptID: "old-attempt", Transcript: "hello world",
	})
	require.NoError(t, err)
	assert.Zero(t, out.Matched)
	assert.Equal(t, domain.JobStatusProcessing, p.job(t, "u1", testVideoID).Status)
}

func TestTranscriptReady_MissingTranscriptFailsJob(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)

	out, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{VideoID: testVideoID})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Failed)

	snap, err := p.status.Execute(context.Background(), "u1", testVideoID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, snap.Status)
	assert.Equal(t, domain.ReasonMissingTranscript, snap.ErrorMessage)
	assert.Zero(t, p.summarizer.count.Load())
	assert.Equal(t, 0, p.minutesUsed(t, "u1"))
}

func TestTranscriptReady_ServesEveryWaitingUser(t *testing.T) {
	p := newPipeline(t)
	p.start.ReuseTranscripts = false
	p.startFree(t, "u1", testVideoID)
	p.startFree(t, "u2", testVideoID)

	out, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{VideoID: testVideoID, Transcript: "shared"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Completed)
	assert.Equal(t, 5, p.minutesUsed(t, "u1"))
	assert.Equal(t, 5, p.minutesUsed(t, "u2"))
}

func TestSummarizationFailureKeepsTranscriptForReprocess(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)
	p.summarizer.err = errors.New("model overloaded")

	_, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{VideoID: testVideoID, Transcript: "hello world"})
	require.NoError(t, err)

	job := p.job(t, "u1", testVideoID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, "hello world", job.Transcript)
	assert.True(t, strings.HasPrefix(job.ErrorMessage, "summarization failed: "))
	assert.Equal(t, 0, p.minutesUsed(t, "u1"))

	p.summarizer.err = nil
	done, err := p.reprocess.Execute(context.Background(), "u1", domain.PlanFree, testVideoID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)
	assert.Equal(t, domain.ProcessingStandard, done.ProcessingType)
	assert.Equal(t, 5, p.minutesUsed(t, "u1"))

	_, err = p.reprocess.Execute(context.Background(), "u1", domain.PlanFree, testVideoID)
	assert.ErrorIs(t, err, domain.ErrNotReprocessable)
}

// hangupSummarizer cancels the request context mid-call, like a provider closing the webhook
// connection while the model is still generating.
type hangupSummarizer struct {
	cancel context.CancelFunc
	fail   bool
}

func (s *hangupSummarizer) Summarize(ctx context.Context, req domain.SummaryRequest) (string, error) {
	s.cancel()
	if s.fail {
		return "", ctx.Err()
	}
	return "## notes\n\n" + req.Transcript, nil
}

func TestTranscriptReady_CancelledRequestStillFailsJob(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.summarize.Summarizer = &hangupSummarizer{cancel: cancel, fail: true}

	_, err := p.ready.Execute(ctx, domain.TranscriptPayload{VideoID: testVideoID, Transcript: "hello world"})
	require.NoError(t, err)

	job := p.job(t, "u1", testVideoID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.True(t, strings.HasPrefix(job.ErrorMessage, "summarization failed: "), job.ErrorMessage)
	assert.Equal(t, "hello world", job.Transcript)
	assert.Equal(t, 0, p.minutesUsed(t, "u1"))

	p.summarize.Summarizer = p.summarizer
	done, err := p.reprocess.Execute(context.Background(), "u1", domain.PlanFree, testVideoID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)
}

func TestTranscriptReady_CancelledRequestKeepsSummary(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.summarize.Summarizer = &hangupSummarizer{cancel: cancel}

	_, err := p.ready.Execute(ctx, domain.TranscriptPayload{VideoID: testVideoID, Transcript: "hello world"})
	require.NoError(t, err)

	job := p.job(t, "u1", testVideoID)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, "## notes\n\nhello world", job.Summary)
	assert.Equal(t, 5, p.minutesUsed(t, "u1"))
}

func TestStartJob_ReusesStoredTranscript(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)
	_, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{VideoID: testVideoID, Transcript: "hello world"})
	require.NoError(t, err)

	out, err := p.start.Execute(context.Background(), usecase.StartJobInput{UserID: "u2", PlanTier: domain.PlanPro, VideoID: testVideoID})
	require.NoError(t, err)
	assert.False(t, out.Processing)
	assert.Equal(t, domain.ProcessingCached, out.ProcessingType)
	assert.Contains(t, out.Summary, "## pro notes")
	assert.Equal(t, 1, p.provider.calls())

	usage, err := p.usage.Execute(context.Background(), "u2", domain.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, 5, usage.MinutesUsed)
	assert.Equal(t, 100, usage.MinutesLimit)
}

func TestTranscriptReady_QueuesWhenAsync(t *testing.T) {
	p := newPipeline(t)
	queue := &fakeQueue{}
	p.ready.Queue = queue
	p.startFree(t, "u1", testVideoID)

	out, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{VideoID: testVideoID, Transcript: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Queued)
	require.Len(t, queue.msgs, 1)
	assert.Equal(t, domain.JobStatusProcessing, p.job(t, "u1", testVideoID).Status)

	require.NoError(t, p.ready.HandleQueued(context.Background(), queue.msgs[0]))
	require.NoError(t, p.ready.HandleQueued(context.Background(), queue.msgs[0]))
	assert.Equal(t, domain.JobStatusCompleted, p.job(t, "u1", testVideoID).Status)
	assert.Equal(t, int32(1), p.summarizer.count.Load())
	assert.Equal(t, 5, p.minutesUsed(t, "u1"))
}

func TestQuotaNeverExceedsLimitUnderConcurrentCompletions(t *testing.T) {
	p := newPipeline(t)
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("video%06d", i)
		p.metadata[ids[i]] = domain.VideoInfo{VideoID: ids[i], DurationMinutes: 5}
		p.startFree(t, "u1", ids[i])
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{VideoID: id, Transcript: "t"})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	usage, err := p.usage.Execute(context.Background(), "u1", domain.PlanFree)
	require.NoError(t, err)
	assert.Equal(t, 30, usage.MinutesUsed)
	assert.Equal(t, 10, usage.VideosProcessed)
	assert.Equal(t, 100, usage.PercentageUsed)
	assert.Zero(t, usage.MinutesLeft)
}

func TestProviderNotify_FailureFailsJobs(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)

	n, err := p.notify.Execute(context.Background(), "s_1", "running")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = p.notify.Execute(context.Background(), "s_1", "failed")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	job := p.job(t, "u1", testVideoID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, "provider reported failure: failed", job.ErrorMessage)
}

func TestSweepStale(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)

	n, err := p.sweep.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	p.sweep.Now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = p.sweep.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, domain.ReasonStale, p.job(t, "u1", testVideoID).ErrorMessage)

	p.sweep.StaleAfter = 0
	n, err = p.sweep.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJobStatus_UnknownAndInvalid(t *testing.T) {
	p := newPipeline(t)
	_, err := p.status.Execute(context.Background(), "u1", testVideoID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	_, err = p.status.Execute(context.Background(), "u1", "short")
	assert.ErrorIs(t, err, domain.ErrInvalidVideoURL)
}

func TestRecentVideos(t *testing.T) {
	p := newPipeline(t)
	p.startFree(t, "u1", testVideoID)
	_, err := p.ready.Execute(context.Background(), domain.TranscriptPayload{VideoID: testVideoID, Transcript: "x"})
	require.NoError(t, err)

	videos, err := p.recent.Execute(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Go Concurrency", videos[0].Title)

	videos, err = p.recent.Execute(context.Background(), "u2", 0)
	require.NoError(t, err)
	assert.Empty(t, videos)
}
