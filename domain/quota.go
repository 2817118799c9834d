// domain/quota.go
package domain

import (
	"strings"
	"time"
)

type PlanTier string

const (
	PlanFree  PlanTier = "free"
	PlanPro   PlanTier = "pro"
	PlanElite PlanTier = "elite"
)

// Unlimited marks a plan without a minutes ceiling.
const Unlimited = -1

// NormalizePlanTier lowercases the tier and falls back to free.
func NormalizePlanTier(raw string) PlanTier {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return PlanFree
	}
	return PlanTier(t)
}

type QuotaRecord struct {
	UserID          string
	Period          string
	PlanTier        PlanTier
	MinutesUsed     int
	MinutesLimit    int
	VideosProcessed int
	UpdatedAt       time.Time
}

func (q *QuotaRecord) Unlimited() bool {
	return q.MinutesLimit < 0
}

// Remaining returns the minutes left this period, or Unlimited.
func (q *QuotaRecord) Remaining() int {
	if q.Unlimited() {
		return Unlimited
	}
	if r := q.MinutesLimit - q.MinutesUsed; r > 0 {
		return r
	}
	return 0
}

// CheckFits returns a *QuotaExceededError when minutes would push usage over the limit.
func (q *QuotaRecord) CheckFits(minutes int) error {
	if q.Unlimited() {
		return nil
	}
	if deficit := q.MinutesUsed + minutes - q.MinutesLimit; deficit > 0 {
		return &QuotaExceededError{
			Used:      q.MinutesUsed,
			Limit:     q.MinutesLimit,
			Requested: minutes,
			Deficit:   deficit,
		}
	}
	return nil
}

// PercentageUsed is capped at 100 and is 0 for plans without a ceiling.
func (q *QuotaRecord) PercentageUsed() int {
	if q.Unlimited() || q.MinutesLimit == 0 {
		return 0
	}
	p := q.MinutesUsed * 100 / q.MinutesLimit
	if p > 100 {
		return 100
	}
	return p
}

// BillingPeriod returns the monthly period key for t.
func BillingPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}
