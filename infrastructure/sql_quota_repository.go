// infrastructure/sql_quota_repository.go
package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vitovidale/video-notes-service/domain"
)

const quotaColumns = `user_id, period, plan_tier, minutes_used, minutes_limit, videos_processed, updated_at`

type SQLQuotaRepository struct {
	DB      *sql.DB
	Dialect Dialect
	Now     func() time.Time
}

func NewSQLQuotaRepository(db *sql.DB, dialect Dialect) *SQLQuotaRepository {
	return &SQLQuotaRepository{DB: db, Dialect: dialect, Now: time.Now}
}

func (r *SQLQuotaRepository) Ensure(ctx context.Context, userID, period string, tier domain.PlanTier, limit int) (*domain.QuotaRecord, error) {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		INSERT INTO quotas (user_id, period, plan_tier, minutes_used, minutes_limit, videos_processed, updated_at)
		VALUES (?, ?, ?, 0, ?, 0, ?)
		ON CONFLICT (user_id, period) DO UPDATE SET
			plan_tier = excluded.plan_tier,
			minutes_limit = excluded.minutes_limit,
			updated_at = excluded.updated_at
		WHERE quotas.plan_tier <> excluded.plan_tier OR quotas.minutes_limit <> excluded.minutes_limit`),
		userID, period, string(tier), limit, r.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ensure quota for %s: %w", userID, err)
	}
	return r.Get(ctx, userID, period)
}

func (r *SQLQuotaRepository) Get(ctx context.Context, userID, period string) (*domain.QuotaRecord, error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT `+quotaColumns+` FROM quotas
		WHERE user_id = ? AND period = ?`), userID, period)
	q, err := scanQuota(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuotaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quota for %s: %w", userID, err)
	}
	return q, nil
}

// IncrementUsage adds minutes with one UPDATE. Plans with a ceiling are clamped at the ceiling
// so concurrently completing jobs can never push usage past it.
func (r *SQLQuotaRepository) IncrementUsage(ctx context.Context, userID, period string, minutes int) (*domain.QuotaRecord, error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`UPDATE quotas SET
			minutes_used = CASE
				WHEN minutes_limit >= 0 AND minutes_used + CAST(? AS INTEGER) > minutes_limit THEN minutes_limit
				ELSE minutes_used + CAST(? AS INTEGER)
			END,
			videos_processed = videos_processed + 1,
			updated_at = ?
		WHERE user_id = ? AND period = ?
		RETURNING `+quotaColumns),
		minutes, minutes, r.Now().UTC(), userID, period)
	q, err := scanQuota(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("increment usage for %s in %s: %w", userID, period, domain.ErrQuotaNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("increment usage for %s: %w", userID, err)
	}
	return q, nil
}

func scanQuota(s rowScanner) (*domain.QuotaRecord, error) {
	var (
		q    domain.QuotaRecord
		tier string
	)
	if err := s.Scan(&q.UserID, &q.Period, &tier, &q.MinutesUsed, &q.MinutesLimit, &q.VideosProcessed, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.PlanTier = domain.PlanTier(tier)
	return &q, nil
}
