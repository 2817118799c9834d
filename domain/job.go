// domain/job.go
package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// CanTransition encodes the job state machine. A fresh attempt (Reset) is the only way out of
// a terminal state.
func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case JobStatusPending:
		return to == JobStatusProcessing || to == JobStatusFailed
	case JobStatusProcessing:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// ProcessingType tags how a completed result was produced.
type ProcessingType string

const (
	ProcessingStandard ProcessingType = "standard"
	ProcessingCached   ProcessingType = "cached"
	ProcessingAsync    ProcessingType = "async"
)

// Stable failure reasons persisted on jobs.
const (
	ReasonMissingTranscript = "missing transcript"
	ReasonStale             = "timed out waiting for transcript"
)

// JobKey identifies a job: one per user and video.
type JobKey struct {
	UserID  string
	VideoID string
}

type Job struct {
	UserID          string
	VideoID         string
	VideoURL        string
	Title           string
	Channel         string
	ThumbnailURL    string
	DurationMinutes int
	PlanTier        PlanTier
	Status          JobStatus
	ProcessingType  ProcessingType
	AttemptID       string
	SnapshotID      string
	ClaimID         string
	Transcript      string
	Summary         string
	ErrorMessage    string
	Metadata        VideoMetadata
	RawResponse     json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (j *Job) Key() JobKey {
	return JobKey{UserID: j.UserID, VideoID: j.VideoID}
}

// VideoMetadata is the optional metadata a provider delivery may carry alongside a transcript.
type VideoMetadata struct {
	PublishedAt    string `json:"published_at,omitempty"`
	Views          int64  `json:"views,omitempty"`
	Likes          int64  `json:"likes,omitempty"`
	Subscribers    int64  `json:"subscribers,omitempty"`
	Description    string `json:"description,omitempty"`
	ChannelAvatar  string `json:"channel_avatar,omitempty"`
	ChannelURL     string `json:"channel_url,omitempty"`
	TranscriptLang string `json:"transcript_language,omitempty"`
}

// TranscriptPayload is the canonical shape of a provider delivery after field normalization.
// Empty optional fields never override values captured when the job was started.
type TranscriptPayload struct {
	VideoID         string
	AttemptID       string
	Transcript      string
	Title           string
	Channel         string
	ThumbnailURL    string
	DurationMinutes int
	Metadata        VideoMetadata
	RawResponse     json.RawMessage
}

// JobSnapshot is what the polling endpoint exposes.
type JobSnapshot struct {
	VideoID         string
	Status          JobStatus
	Title           string
	Channel         string
	DurationMinutes int
	Summary         string
	ErrorMessage    string
	ProcessingType  ProcessingType
	UpdatedAt       time.Time
}

func (j *Job) Snapshot() JobSnapshot {
	return JobSnapshot{
		VideoID:         j.VideoID,
		Status:          j.Status,
		Title:           j.Title,
		Channel:         j.Channel,
		DurationMinutes: j.DurationMinutes,
		Summary:         j.Summary,
		ErrorMessage:    j.ErrorMessage,
		ProcessingType:  j.ProcessingType,
		UpdatedAt:       j.UpdatedAt,
	}
}

// TranscriptReadyMessage is queued when summarization runs outside the webhook request.
type TranscriptReadyMessage struct {
	UserID   string    `json:"user_id"`
	VideoID  string    `json:"video_id"`
	ClaimID  string    `json:"claim_id"`
	QueuedAt time.Time `json:"queued_at"`
}
