package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"promptops-hq/promptops/pkg/pricing"
)

// CheckBudgetBeforeCall decides whether a prospective provider call should
// proceed, given a rough total token estimate. The estimate is split
// evenly into input and output halves to price it.
//
// The check fails open twice: unknown pricing approves with
// ReasonPricingNotAvailable (missing pricing must never block a call), and
// a missing budget approves with ReasonNoBudgetSet. Otherwise the call is
// approved iff current month spend plus the estimate stays at or under
// the limit.
//
// The check and any later RecordSpend are independent statements, so two
// callers can both see "approved" and together cross the limit; callers
// needing strict enforcement use CheckAndReserve.
func (s *Store) CheckBudgetBeforeCall(ctx context.Context, org, project, provider, model string, estimatedTotalTokens int) (*Decision, error) {
	inputTokens := estimatedTotalTokens / 2
	outputTokens := estimatedTotalTokens - inputTokens

	estimatedCost, err := s.calc.Cost(provider, model, inputTokens, outputTokens)
	if err != nil {
		if errors.Is(err, pricing.ErrPricingNotFound) {
			decision := &Decision{Approved: true, Reason: ReasonPricingNotAvailable}
			s.metrics.observeDecision(decision.Reason)
			return decision, nil
		}
		return nil, err
	}

	status, err := s.GetBudgetStatus(ctx, org, project)
	if err != nil {
		return nil, err
	}

	decision := &Decision{
		EstimatedCostUSD:  estimatedCost,
		ProjectedSpendUSD: status.CurrentSpendUSD + estimatedCost,
		Status:            *status,
	}

	switch {
	case !status.HasBudget:
		decision.Approved = true
		decision.Reason = ReasonNoBudgetSet
	case decision.ProjectedSpendUSD <= status.MonthlyLimitUSD:
		decision.Approved = true
		decision.Reason = ReasonWithinBudget
	default:
		decision.Approved = false
		decision.Reason = ReasonWouldExceedBudget
	}

	s.metrics.observeDecision(decision.Reason)
	return decision, nil
}

// CheckAndReserve performs CheckBudgetBeforeCall and, when the call is
// approved with a priced estimate, mints a reservation token the caller
// passes to RecordSpend. The reservation is consumed transactionally
// there, closing the window between "approved" and "recorded" for callers
// that opt in. Reservations expire after the configured TTL.
func (s *Store) CheckAndReserve(ctx context.Context, org, project, provider, model string, estimatedTotalTokens int) (*Decision, error) {
	decision, err := s.CheckBudgetBeforeCall(ctx, org, project, provider, model, estimatedTotalTokens)
	if err != nil {
		return nil, err
	}
	if !decision.Approved || decision.Reason == ReasonPricingNotAvailable {
		return decision, nil
	}

	now := s.now()

	// Opportunistically drop dead reservations before minting a new one.
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM reservations WHERE expires_at <= ?`, now.UnixNano()); err != nil {
		return nil, fmt.Errorf("failed to prune reservations: %w", err)
	}

	token := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reservations (token, org, project, estimated_cost_usd, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		token, org, project, decision.EstimatedCostUSD,
		now.UnixNano(), now.Add(s.reservationTTL).UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	decision.Reservation = token
	return decision, nil
}
