// usecase/helpers.go
package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

func now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func observer(o domain.PipelineObserver) domain.PipelineObserver {
	if o == nil {
		return domain.NopObserver{}
	}
	return o
}
