// infrastructure/sql_job_repository.go
package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vitovidale/video-notes-service/domain"
)

const jobColumns = `user_id, video_id, video_url, title, channel, thumbnail_url, duration_minutes,
	plan_tier, status, processing_type, attempt_id, snapshot_id, claim_id, transcript, summary,
	error_message, metadata, raw_response, created_at, updated_at`

type SQLJobRepository struct {
	DB      *sql.DB
	Dialect Dialect
	Now     func() time.Time
}

func NewSQLJobRepository(db *sql.DB, dialect Dialect) *SQLJobRepository {
	return &SQLJobRepository{DB: db, Dialect: dialect, Now: time.Now}
}

func (r *SQLJobRepository) now() time.Time {
	return r.Now().UTC()
}

func (r *SQLJobRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLJobRepository) Get(ctx context.Context, key domain.JobKey) (*domain.Job, error) {
	row := r.DB.QueryRowContext(ctx,
		r.Dialect.Rebind(`SELECT `+jobColumns+` FROM jobs WHERE user_id = ? AND video_id = ?`),
		key.UserID, key.VideoID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", key.VideoID, err)
	}
	return job, nil
}

func (r *SQLJobRepository) Reset(ctx context.Context, job *domain.Job) error {
	now := r.now()
	job.Status = domain.JobStatusPending
	job.CreatedAt, job.UpdatedAt = now, now
	job.ClaimID, job.SnapshotID, job.Transcript, job.Summary, job.ErrorMessage = "", "", "", "", ""

	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		INSERT INTO jobs (user_id, video_id, video_url, title, channel, thumbnail_url, duration_minutes,
			plan_tier, status, processing_type, attempt_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, video_id) DO UPDATE SET
			video_url = excluded.video_url,
			title = excluded.title,
			channel = excluded.channel,
			thumbnail_url = excluded.thumbnail_url,
			duration_minutes = excluded.duration_minutes,
			plan_tier = excluded.plan_tier,
			status = excluded.status,
			processing_type = excluded.processing_type,
			attempt_id = excluded.attempt_id,
			snapshot_id = NULL,
			claim_id = NULL,
			transcript = NULL,
			summary = NULL,
			error_message = NULL,
			metadata = NULL,
			raw_response = NULL,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`),
		job.UserID, job.VideoID, job.VideoURL, job.Title, job.Channel, job.ThumbnailURL,
		job.DurationMinutes, string(job.PlanTier), string(job.Status), string(job.ProcessingType),
		job.AttemptID, now, now)
	if err != nil {
		return fmt.Errorf("reset job %s: %w", job.VideoID, err)
	}
	return nil
}

func (r *SQLJobRepository) MarkProcessing(ctx context.Context, key domain.JobKey, attemptID string) (bool, error) {
	return r.exec(ctx, `UPDATE jobs SET status = 'processing', updated_at = ?
		WHERE user_id = ? AND video_id = ? AND attempt_id = ? AND status = 'pending'`,
		r.now(), key.UserID, key.VideoID, attemptID)
}

func (r *SQLJobRepository) SetSnapshotID(ctx context.Context, key domain.JobKey, attemptID, snapshotID string) error {
	_, err := r.exec(ctx, `UPDATE jobs SET snapshot_id = ?, updated_at = ?
		WHERE user_id = ? AND video_id = ? AND attempt_id = ?`,
		snapshotID, r.now(), key.UserID, key.VideoID, attemptID)
	return err
}

func (r *SQLJobRepository) ClaimTranscript(ctx context.Context, key domain.JobKey, attemptID, claimID string, p domain.TranscriptPayload) (bool, error) {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return false, err
	}
	return r.exec(ctx, `UPDATE jobs SET
			transcript = ?,
			claim_id = ?,
			title = COALESCE(NULLIF(CAST(? AS TEXT), ''), title),
			channel = COALESCE(NULLIF(CAST(? AS TEXT), ''), channel),
			thumbnail_url = COALESCE(NULLIF(CAST(? AS TEXT), ''), thumbnail_url),
			duration_minutes = COALESCE(NULLIF(CAST(? AS INTEGER), 0), duration_minutes),
			metadata = ?,
			raw_response = COALESCE(NULLIF(CAST(? AS TEXT), ''), raw_response),
			updated_at = ?
		WHERE user_id = ? AND video_id = ? AND status = 'processing' AND claim_id IS NULL
			AND (CAST(? AS TEXT) = '' OR attempt_id = ?)`,
		p.Transcript, claimID, p.Title, p.Channel, p.ThumbnailURL, p.DurationMinutes,
		string(metadata), string(p.RawResponse), r.now(),
		key.UserID, key.VideoID, attemptID, attemptID)
}

func (r *SQLJobRepository) Complete(ctx context.Context, key domain.JobKey, claimID, summary string, pt domain.ProcessingType) (bool, error) {
	return r.exec(ctx, `UPDATE jobs SET status = 'completed', summary = ?, processing_type = ?,
			error_message = NULL, updated_at = ?
		WHERE user_id = ? AND video_id = ? AND status = 'processing' AND claim_id = ?`,
		summary, string(pt), r.now(), key.UserID, key.VideoID, claimID)
}

func (r *SQLJobRepository) FailClaimed(ctx context.Context, key domain.JobKey, claimID, reason string) (bool, error) {
	return r.exec(ctx, `UPDATE jobs SET status = 'failed', error_message = ?, updated_at = ?
		WHERE user_id = ? AND video_id = ? AND status = 'processing' AND claim_id = ?`,
		reason, r.now(), key.UserID, key.VideoID, claimID)
}

func (r *SQLJobRepository) FailUnclaimed(ctx context.Context, key domain.JobKey, attemptID, reason string) (bool, error) {
	return r.exec(ctx, `UPDATE jobs SET status = 'failed', error_message = ?, updated_at = ?
		WHERE user_id = ? AND video_id = ? AND attempt_id = ?
			AND status IN ('pending', 'processing') AND claim_id IS NULL`,
		reason, r.now(), key.UserID, key.VideoID, attemptID)
}

func (r *SQLJobRepository) Reopen(ctx context.Context, key domain.JobKey, attemptID, claimID string) (bool, error) {
	return r.exec(ctx, `UPDATE jobs SET status = 'processing', attempt_id = ?, claim_id = ?,
			summary = NULL, error_message = NULL, updated_at = ?
		WHERE user_id = ? AND video_id = ? AND status = 'failed'
			AND transcript IS NOT NULL AND transcript <> ''`,
		attemptID, claimID, r.now(), key.UserID, key.VideoID)
}

func (r *SQLJobRepository) FindProcessing(ctx context.Context, videoID, attemptID string) ([]domain.Job, error) {
	return r.query(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE video_id = ? AND status = 'processing' AND (CAST(? AS TEXT) = '' OR attempt_id = ?)
		ORDER BY created_at`, videoID, attemptID, attemptID)
}

func (r *SQLJobRepository) FindProcessingBySnapshot(ctx context.Context, snapshotID string) ([]domain.Job, error) {
	return r.query(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE snapshot_id = ? AND status = 'processing' ORDER BY created_at`, snapshotID)
}

func (r *SQLJobRepository) FindReusableTranscript(ctx context.Context, videoID string) (string, error) {
	var transcript string
	err := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT transcript FROM jobs
		WHERE video_id = ? AND status = 'completed' AND transcript IS NOT NULL AND transcript <> ''
		ORDER BY updated_at DESC LIMIT 1`), videoID).Scan(&transcript)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find transcript for %s: %w", videoID, err)
	}
	return transcript, nil
}

func (r *SQLJobRepository) ListCompleted(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	return r.query(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE user_id = ? AND status = 'completed' ORDER BY updated_at DESC LIMIT ?`, userID, limit)
}

func (r *SQLJobRepository) FailStale(ctx context.Context, updatedBefore time.Time, reason string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`UPDATE jobs SET status = 'failed', error_message = ?, updated_at = ?
		WHERE status = 'processing' AND updated_at < ?`), reason, r.now(), updatedBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLJobRepository) query(ctx context.Context, query string, args ...any) ([]domain.Job, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (*domain.Job, error) {
	var (
		j                                        domain.Job
		planTier, status, processingType         string
		snapshotID, claimID, transcript, summary sql.NullString
		errorMessage, metadata, rawResponse      sql.NullString
	)
	err := s.Scan(&j.UserID, &j.VideoID, &j.VideoURL, &j.Title, &j.Channel, &j.ThumbnailURL,
		&j.DurationMinutes, &planTier, &status, &processingType, &j.AttemptID, &snapshotID,
		&claimID, &transcript, &summary, &errorMessage, &metadata, &rawResponse,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.PlanTier = domain.PlanTier(planTier)
	j.Status = domain.JobStatus(status)
	j.ProcessingType = domain.ProcessingType(processingType)
	j.SnapshotID = snapshotID.String
	j.ClaimID = claimID.String
	j.Transcript = transcript.String
	j.Summary = summary.String
	j.ErrorMessage = errorMessage.String
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &j.Metadata)
	}
	if rawResponse.Valid && rawResponse.String != "" {
		j.RawResponse = json.RawMessage(rawResponse.String)
	}
	return &j, nil
}
