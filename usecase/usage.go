// usecase/usage.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vitovidale/video-notes-service/domain"
)

type UsageOutput struct {
	Period          string
	PlanTier        domain.PlanTier
	MinutesUsed     int
	MinutesLimit    int
	MinutesLeft     int
	PercentageUsed  int
	VideosProcessed int
}

type UsageUseCase struct {
	Quotas domain.QuotaRepository
	Plans  domain.PlanCatalog
	Now    func() time.Time
}

// Execute returns the current period's record, opening it with the plan's limit if needed.
func (uc *UsageUseCase) Execute(ctx context.Context, userID string, tier domain.PlanTier) (*UsageOutput, error) {
	tier = domain.NormalizePlanTier(string(tier))
	period := domain.BillingPeriod(now(uc.Now))
	q, err := uc.Quotas.Ensure(ctx, userID, period, tier, uc.Plans.LimitFor(tier))
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	return &UsageOutput{
		Period:          q.Period,
		PlanTier:        q.PlanTier,
		MinutesUsed:     q.MinutesUsed,
		MinutesLimit:    q.MinutesLimit,
		MinutesLeft:     q.Remaining(),
		PercentageUsed:  q.PercentageUsed(),
		VideosProcessed: q.VideosProcessed,
	}, nil
}
