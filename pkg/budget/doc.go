// Package budget implements the spend ledger, monthly budget limits, and
// pre-call admission control for LLM provider calls.
//
// # Ledger
//
// Spend records are append-only financial state: one row per provider
// call, cost computed at write time via the pricing calculator and never
// recomputed when pricing changes later. Monthly totals are reconstructed
// from the ledger on every read, so budget state resets implicitly at
// calendar-month boundaries with no explicit reset operation.
//
// # Admission
//
// CheckBudgetBeforeCall approves or denies a prospective call from a rough
// token estimate. Two fail-open paths are deliberate policy: unknown
// pricing never blocks a call, and a missing budget never blocks a call.
//
// The plain check and a later RecordSpend are independent statements; a
// caller can race between "approved" and another caller's spend pushing
// the month over the limit. That soft window is accepted. Callers wanting
// strict enforcement use CheckAndReserve, which mints a reservation token
// that RecordSpend validates and consumes inside a single transaction.
//
// # State machine
//
// Per month, for one (organization, project) pair:
//
//	NO_BUDGET -> (SetBudget) -> UNDER_THRESHOLD -> (spend accrues)
//	  -> AT_THRESHOLD (AlertTriggered) -> OVER_BUDGET (OverBudget)
//
// Transitions are monotonic within a month and reset implicitly at the
// boundary because monthly spend is recomputed from scratch.
package budget
