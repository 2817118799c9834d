// domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrQuotaExceeded            = errors.New("plan limit exceeded")
	ErrProviderUnavailable      = errors.New("transcript provider unavailable")
	ErrProviderRejected         = errors.New("transcript provider rejected request")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrMalformedPayload         = errors.New("malformed payload")
	ErrSummarizationUnavailable = errors.New("summarization unavailable")
	ErrMissingTranscript        = errors.New(ReasonMissingTranscript)
	ErrJobNotFound              = errors.New("job not found")
	ErrQuotaNotFound            = errors.New("quota record not found")
	ErrInvalidVideoURL          = errors.New("invalid YouTube URL")
	ErrVideoNotFound            = errors.New("video not found")
	ErrMetadataUnavailable      = errors.New("video metadata unavailable")
	ErrNotReprocessable         = errors.New("job cannot be reprocessed")
)

// QuotaExceededError carries the numbers needed to tell the user how far over they would go.
type QuotaExceededError struct {
	Used      int
	Limit     int
	Requested int
	Deficit   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %d of %d minutes used, %d requested, %d over",
		ErrQuotaExceeded, e.Used, e.Limit, e.Requested, e.Deficit)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// ProviderError is a structured non-2xx response from the transcript provider.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrProviderRejected, e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrProviderRejected }
