package budget

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestCheckBudgetBeforeCall_UnderAndOverLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.SetBudget(ctx, "acme", "demo", 10.0, 0); err != nil {
		t.Fatal(err)
	}
	flatSpend(t, store, "acme", "demo", 9.50)

	// Estimate of 400 tokens prices at $0.40: 9.50 + 0.40 fits
	decision, err := store.CheckBudgetBeforeCall(ctx, "acme", "demo", "test", "flat", 400)
	if err != nil {
		t.Fatalf("CheckBudgetBeforeCall failed: %v", err)
	}
	if !decision.Approved || decision.Reason != ReasonWithinBudget {
		t.Errorf("Expected approval within budget, got %+v", decision)
	}
	if math.Abs(decision.EstimatedCostUSD-0.40) > 1e-9 {
		t.Errorf("Expected estimate 0.40, got %.4f", decision.EstimatedCostUSD)
	}
	if math.Abs(decision.ProjectedSpendUSD-9.90) > 1e-9 {
		t.Errorf("Expected projected 9.90, got %.4f", decision.ProjectedSpendUSD)
	}

	// 600 tokens prices at $0.60: 9.50 + 0.60 crosses the limit
	decision, err = store.CheckBudgetBeforeCall(ctx, "acme", "demo", "test", "flat", 600)
	if err != nil {
		t.Fatal(err)
	}
	if decision.Approved || decision.Reason != ReasonWouldExceedBudget {
		t.Errorf("Expected denial over budget, got %+v", decision)
	}

	// Landing exactly on the limit is still allowed
	decision, err = store.CheckBudgetBeforeCall(ctx, "acme", "demo", "test", "flat", 500)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Approved || decision.Reason != ReasonWithinBudget {
		t.Errorf("Expected approval at exactly the limit, got %+v", decision)
	}
}

func TestCheckBudgetBeforeCall_NoBudgetFailsOpen(t *testing.T) {
	store := newTestStore(t)

	for _, tokens := range []int{0, 100, 1_000_000_000} {
		decision, err := store.CheckBudgetBeforeCall(context.Background(),
			"acme", "demo", "test", "flat", tokens)
		if err != nil {
			t.Fatalf("CheckBudgetBeforeCall(%d) failed: %v", tokens, err)
		}
		if !decision.Approved || decision.Reason != ReasonNoBudgetSet {
			t.Errorf("Expected fail-open for %d tokens, got %+v", tokens, decision)
		}
	}
}

func TestCheckBudgetBeforeCall_UnknownPricingFailsOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Even an exhausted budget does not block when pricing is unknown
	if _, err := store.SetBudget(ctx, "acme", "demo", 1.0, 0); err != nil {
		t.Fatal(err)
	}
	flatSpend(t, store, "acme", "demo", 5.00)

	decision, err := store.CheckBudgetBeforeCall(ctx, "acme", "demo", "mystery", "model-x", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Approved || decision.Reason != ReasonPricingNotAvailable {
		t.Errorf("Expected fail-open for unknown pricing, got %+v", decision)
	}
	if decision.EstimatedCostUSD != 0 {
		t.Errorf("Expected zero estimate without pricing, got %.4f", decision.EstimatedCostUSD)
	}
}

func TestCheckBudgetBeforeCall_EstimateSplit(t *testing.T) {
	store := newTestStore(t)

	// Per-1k rates of $0.0025 in / $0.01 out: an odd estimate splits
	// 500 in / 501 out
	decision, err := store.CheckBudgetBeforeCall(context.Background(),
		"acme", "demo", "openai", "gpt-4o", 1001)
	if err != nil {
		t.Fatal(err)
	}
	expected := 0.500*0.0025 + 0.501*0.01
	if math.Abs(decision.EstimatedCostUSD-expected) > 1e-9 {
		t.Errorf("Expected estimate %.6f, got %.6f", expected, decision.EstimatedCostUSD)
	}
}

// ============================================================================
// Reservation Tests
// ============================================================================

func TestCheckAndReserve_ConsumedOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.SetBudget(ctx, "acme", "demo", 10.0, 0); err != nil {
		t.Fatal(err)
	}

	decision, err := store.CheckAndReserve(ctx, "acme", "demo", "test", "flat", 400)
	if err != nil {
		t.Fatalf("CheckAndReserve failed: %v", err)
	}
	if decision.Reservation == "" {
		t.Fatal("Expected a reservation token on approval")
	}

	entry := SpendEntry{
		Org: "acme", Project: "demo", Provider: "test", Model: "flat",
		InputTokens: 200, OutputTokens: 200,
		Reservation: decision.Reservation,
	}
	if _, err := store.RecordSpend(ctx, entry); err != nil {
		t.Fatalf("RecordSpend with reservation failed: %v", err)
	}

	// The token is single use
	_, err = store.RecordSpend(ctx, entry)
	if !errors.Is(err, ErrReservationInvalid) {
		t.Errorf("Expected ErrReservationInvalid on reuse, got %v", err)
	}
}

func TestCheckAndReserve_ExpiredToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	if _, err := store.SetBudget(ctx, "acme", "demo", 10.0, 0); err != nil {
		t.Fatal(err)
	}
	decision, err := store.CheckAndReserve(ctx, "acme", "demo", "test", "flat", 400)
	if err != nil {
		t.Fatal(err)
	}

	// Past the reservation TTL the token is dead
	store.now = func() time.Time { return base.Add(store.reservationTTL + time.Second) }
	_, err = store.RecordSpend(ctx, SpendEntry{
		Org: "acme", Project: "demo", Provider: "test", Model: "flat",
		InputTokens: 200, OutputTokens: 200,
		Reservation: decision.Reservation,
	})
	if !errors.Is(err, ErrReservationInvalid) {
		t.Errorf("Expected ErrReservationInvalid after expiry, got %v", err)
	}
}

func TestCheckAndReserve_NoTokenWhenDenied(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.SetBudget(ctx, "acme", "demo", 1.0, 0); err != nil {
		t.Fatal(err)
	}
	flatSpend(t, store, "acme", "demo", 1.00)

	decision, err := store.CheckAndReserve(ctx, "acme", "demo", "test", "flat", 400)
	if err != nil {
		t.Fatal(err)
	}
	if decision.Approved {
		t.Fatalf("Expected denial, got %+v", decision)
	}
	if decision.Reservation != "" {
		t.Error("Expected no reservation token on denial")
	}
}

func TestCheckAndReserve_NoTokenWithoutPricing(t *testing.T) {
	store := newTestStore(t)

	decision, err := store.CheckAndReserve(context.Background(),
		"acme", "demo", "mystery", "model-x", 400)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Approved || decision.Reason != ReasonPricingNotAvailable {
		t.Fatalf("Expected fail-open, got %+v", decision)
	}
	if decision.Reservation != "" {
		t.Error("Expected no reservation token without a priced estimate")
	}
}

func TestRecordSpend_WrongScopeReservation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.SetBudget(ctx, "acme", "demo", 10.0, 0); err != nil {
		t.Fatal(err)
	}
	decision, err := store.CheckAndReserve(ctx, "acme", "demo", "test", "flat", 400)
	if err != nil {
		t.Fatal(err)
	}

	// A token minted for acme/demo does not cover another project
	_, err = store.RecordSpend(ctx, SpendEntry{
		Org: "acme", Project: "other", Provider: "test", Model: "flat",
		InputTokens: 200, OutputTokens: 200,
		Reservation: decision.Reservation,
	})
	if !errors.Is(err, ErrReservationInvalid) {
		t.Errorf("Expected ErrReservationInvalid for wrong scope, got %v", err)
	}
}
