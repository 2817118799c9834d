// infrastructure/errors.go
package infrastructure

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitovidale/video-notes-service/domain"
)

// writeError maps domain errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var quotaErr *domain.QuotaExceededError
	if errors.As(err, &quotaErr) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":           "Plan limit exceeded",
			"minutes_used":    quotaErr.Used,
			"minutes_limit":   quotaErr.Limit,
			"deficit_minutes": quotaErr.Deficit,
			"message":         err.Error(),
		})
		return
	}

	status := statusFor(err)
	c.JSON(status, gin.H{"error": publicMessage(status, err)})
}

var upstreamErrors = []error{
	domain.ErrProviderUnavailable,
	domain.ErrProviderRejected,
	domain.ErrSummarizationUnavailable,
	domain.ErrMetadataUnavailable,
}

// publicMessage hides wrapped details of server-side failures. The full error stays on the
// gin context for the request logger.
func publicMessage(status int, err error) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	for _, target := range upstreamErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "internal server error"
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidVideoURL), errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotReprocessable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, domain.ErrProviderRejected),
		errors.Is(err, domain.ErrSummarizationUnavailable),
		errors.Is(err, domain.ErrMetadataUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
