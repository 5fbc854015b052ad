package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetBudget creates or overwrites the monthly budget limit for an
// (organization, project) pair. The original creation time is preserved
// across updates; the update time is refreshed. An alertThreshold of zero
// selects the default of 0.8; otherwise it must lie in (0, 1].
func (s *Store) SetBudget(ctx context.Context, org, project string, monthlyLimitUSD, alertThreshold float64) (*Limit, error) {
	if org == "" || project == "" {
		return nil, fmt.Errorf("organization and project cannot be empty")
	}
	if monthlyLimitUSD <= 0 {
		return nil, fmt.Errorf("monthly limit must be positive, got %.4f", monthlyLimitUSD)
	}
	if alertThreshold == 0 {
		alertThreshold = DefaultAlertThreshold
	}
	if alertThreshold < 0 || alertThreshold > 1 {
		return nil, fmt.Errorf("alert threshold must be in [0, 1], got %.4f", alertThreshold)
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_limits (org, project, monthly_limit_usd, alert_threshold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(org, project) DO UPDATE SET
			monthly_limit_usd = excluded.monthly_limit_usd,
			alert_threshold = excluded.alert_threshold,
			updated_at = excluded.updated_at`,
		org, project, monthlyLimitUSD, alertThreshold, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to set budget: %w", err)
	}

	s.logger.Info("budget limit set",
		"org", org,
		"project", project,
		"monthly_limit_usd", monthlyLimitUSD,
		"alert_threshold", alertThreshold,
	)

	return s.GetLimit(ctx, org, project)
}

// GetLimit returns the budget limit for an (organization, project) pair,
// or nil when none is configured.
func (s *Store) GetLimit(ctx context.Context, org, project string) (*Limit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT org, project, monthly_limit_usd, alert_threshold, created_at, updated_at
		FROM budget_limits WHERE org = ? AND project = ?`, org, project)

	limit, err := scanLimit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read budget limit: %w", err)
	}
	return limit, nil
}

// GetBudgetStatus returns the current budget state for an (organization,
// project) pair. A missing budget yields HasBudget=false with zeroed
// derived fields; it is not an error.
func (s *Store) GetBudgetStatus(ctx context.Context, org, project string) (*Status, error) {
	limit, err := s.GetLimit(ctx, org, project)
	if err != nil {
		return nil, err
	}
	if limit == nil {
		return &Status{}, nil
	}

	spend, err := s.GetMonthlySpend(ctx, org, project, s.now())
	if err != nil {
		return nil, err
	}

	status := statusFor(limit, spend)
	s.metrics.observeUsage(org, project, status.PercentUsed)
	return status, nil
}

// ListBudgets returns every budget limit enriched with current-month
// spend, remaining budget, and percent used, ordered by organization then
// project.
func (s *Store) ListBudgets(ctx context.Context) ([]*LimitStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT org, project, monthly_limit_usd, alert_threshold, created_at, updated_at
		FROM budget_limits ORDER BY org, project`)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var limits []*Limit
	for rows.Next() {
		limit, err := scanLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget limit: %w", err)
		}
		limits = append(limits, limit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	statuses := make([]*LimitStatus, 0, len(limits))
	for _, limit := range limits {
		spend, err := s.GetMonthlySpend(ctx, limit.Org, limit.Project, s.now())
		if err != nil {
			return nil, err
		}
		st := statusFor(limit, spend)
		statuses = append(statuses, &LimitStatus{
			Limit:           *limit,
			CurrentSpendUSD: spend,
			RemainingUSD:    st.RemainingUSD,
			PercentUsed:     st.PercentUsed,
		})
	}
	return statuses, nil
}

// statusFor derives the budget state from a limit and the current spend.
func statusFor(limit *Limit, spend float64) *Status {
	var percent float64
	if limit.MonthlyLimitUSD > 0 {
		percent = spend / limit.MonthlyLimitUSD
	}
	return &Status{
		HasBudget:       true,
		MonthlyLimitUSD: limit.MonthlyLimitUSD,
		CurrentSpendUSD: spend,
		RemainingUSD:    limit.MonthlyLimitUSD - spend,
		PercentUsed:     percent,
		AlertThreshold:  limit.AlertThreshold,
		AlertTriggered:  percent >= limit.AlertThreshold,
		OverBudget:      spend > limit.MonthlyLimitUSD,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLimit(row rowScanner) (*Limit, error) {
	var limit Limit
	var createdAt, updatedAt int64
	err := row.Scan(&limit.Org, &limit.Project, &limit.MonthlyLimitUSD,
		&limit.AlertThreshold, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	limit.CreatedAt = timeFromNanos(createdAt)
	limit.UpdatedAt = timeFromNanos(updatedAt)
	return &limit, nil
}
