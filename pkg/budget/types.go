package budget

import "time"

// Admission decision reasons.
const (
	// ReasonPricingNotAvailable means pricing is unknown for the
	// (provider, model) pair; the call is approved (fail open).
	ReasonPricingNotAvailable = "pricing_not_available"

	// ReasonNoBudgetSet means no budget limit exists for the
	// (organization, project) pair; the call is approved (fail open).
	ReasonNoBudgetSet = "no_budget_set"

	// ReasonWithinBudget means the projected spend fits under the limit.
	ReasonWithinBudget = "within_budget"

	// ReasonWouldExceedBudget means the projected spend would cross the limit.
	ReasonWouldExceedBudget = "would_exceed_budget"
)

// DefaultAlertThreshold is the budget fraction that triggers an alert
// state when no threshold is supplied.
const DefaultAlertThreshold = 0.8

// Limit is the monthly spending limit for one (organization, project) pair.
type Limit struct {
	Org     string
	Project string

	// MonthlyLimitUSD is the calendar-month spending cap. Always positive.
	MonthlyLimitUSD float64

	// AlertThreshold is the fraction of the limit (0..1) at which the
	// alert state triggers.
	AlertThreshold float64

	// CreatedAt is immutable once set; updates preserve it.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SpendRecord is one row of the append-only spend ledger. Records are
// immutable: the cost is computed at write time and never revised, even
// when pricing changes later.
type SpendRecord struct {
	ID           int64
	Org          string
	Project      string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Timestamp    time.Time
	Metadata     map[string]string
}

// SpendEntry is the input to RecordSpend.
type SpendEntry struct {
	Org          string
	Project      string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int

	// Metadata is an optional opaque key/value map stored with the record.
	Metadata map[string]string

	// Reservation is an optional token minted by CheckAndReserve. When
	// set, the reservation is validated and consumed in the same
	// transaction that appends the record.
	Reservation string
}

// Status is the current budget state for an (organization, project) pair.
// A missing budget is not an error: HasBudget is false and the derived
// fields are zero.
type Status struct {
	HasBudget       bool
	MonthlyLimitUSD float64
	CurrentSpendUSD float64
	RemainingUSD    float64

	// PercentUsed is CurrentSpendUSD / MonthlyLimitUSD as a 0..1 fraction
	// (zero when the limit is zero).
	PercentUsed float64

	AlertThreshold float64
	AlertTriggered bool
	OverBudget     bool
}

// Decision is the result of a pre-call budget admission check.
type Decision struct {
	// Approved reports whether the prospective call may proceed.
	Approved bool

	// Reason is one of the Reason* constants.
	Reason string

	// EstimatedCostUSD is the rough cost estimate for the call. Zero and
	// meaningless when pricing was unavailable.
	EstimatedCostUSD float64

	// ProjectedSpendUSD is current month spend plus the estimate.
	ProjectedSpendUSD float64

	// Reservation is the token minted by CheckAndReserve when the call
	// was approved. Empty otherwise.
	Reservation string

	// Status is the budget state observed during the check.
	Status Status
}

// LimitStatus is a budget limit enriched with current-month figures, as
// returned by ListBudgets.
type LimitStatus struct {
	Limit
	CurrentSpendUSD float64
	RemainingUSD    float64
	PercentUsed     float64
}
