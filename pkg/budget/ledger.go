package budget

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrReservationInvalid is returned when a spend entry carries a
// reservation token that does not exist or has expired. Callers that
// thread reservations through have opted into strict admission, so a
// stale token is an error rather than a silent downgrade.
var ErrReservationInvalid = errors.New("reservation invalid or expired")

// RecordSpend computes the cost of a completed (or estimated) call,
// appends it to the spend ledger, and returns the cost. Pricing absence
// propagates as pricing.ErrPricingNotFound.
//
// When the entry carries a reservation token, the token is validated and
// consumed in the same transaction that appends the record.
func (s *Store) RecordSpend(ctx context.Context, e SpendEntry) (float64, error) {
	if e.Org == "" || e.Project == "" {
		return 0, fmt.Errorf("organization and project cannot be empty")
	}
	if e.InputTokens < 0 || e.OutputTokens < 0 {
		return 0, fmt.Errorf("token counts cannot be negative")
	}

	cost, err := s.calc.Cost(e.Provider, e.Model, e.InputTokens, e.OutputTokens)
	if err != nil {
		return 0, err
	}

	var metadata any
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to encode spend metadata: %w", err)
		}
		metadata = string(data)
	}

	now := s.now()

	if e.Reservation != "" {
		err = s.recordWithReservation(ctx, e, cost, metadata, now)
	} else {
		_, err = s.db.ExecContext(ctx, insertSpendSQL,
			e.Org, e.Project, e.Provider, e.Model,
			e.InputTokens, e.OutputTokens, cost, now.UnixNano(), metadata)
	}
	if err != nil {
		return 0, err
	}

	s.metrics.observeSpend(e.Provider, e.Model, cost)
	return cost, nil
}

const insertSpendSQL = `
	INSERT INTO spend_records
		(org, project, provider, model, input_tokens, output_tokens, cost_usd, timestamp, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// recordWithReservation consumes the reservation and appends the spend
// record atomically.
func (s *Store) recordWithReservation(ctx context.Context, e SpendEntry, cost float64, metadata any, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM reservations
		WHERE token = ? AND org = ? AND project = ? AND expires_at > ?`,
		e.Reservation, e.Org, e.Project, now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to consume reservation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to consume reservation: %w", err)
	}
	if n == 0 {
		return ErrReservationInvalid
	}

	if _, err := tx.ExecContext(ctx, insertSpendSQL,
		e.Org, e.Project, e.Provider, e.Model,
		e.InputTokens, e.OutputTokens, cost, now.UnixNano(), metadata); err != nil {
		return fmt.Errorf("failed to append spend record: %w", err)
	}

	return tx.Commit()
}

// GetMonthlySpend sums ledger costs for the calendar month containing the
// given time. A zero time means the current month. The window is
// [startOfMonth, startOfNextMonth); December rolls over to January of the
// following year.
func (s *Store) GetMonthlySpend(ctx context.Context, org, project string, month time.Time) (float64, error) {
	if month.IsZero() {
		month = s.now()
	}
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0)
		FROM spend_records
		WHERE org = ? AND project = ? AND timestamp >= ? AND timestamp < ?`,
		org, project, start.UnixNano(), end.UnixNano()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum monthly spend: %w", err)
	}
	return total, nil
}

// GetSpendHistory returns ledger records for the trailing number of days,
// newest first. Days of zero or less defaults to 30.
func (s *Store) GetSpendHistory(ctx context.Context, org, project string, days int) ([]*SpendRecord, error) {
	if days <= 0 {
		days = 30
	}
	since := s.now().AddDate(0, 0, -days)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org, project, provider, model, input_tokens, output_tokens,
		       cost_usd, timestamp, metadata
		FROM spend_records
		WHERE org = ? AND project = ? AND timestamp >= ?
		ORDER BY timestamp DESC, id DESC`,
		org, project, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to read spend history: %w", err)
	}
	defer rows.Close()

	var records []*SpendRecord
	for rows.Next() {
		var rec SpendRecord
		var ts int64
		var metadata sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Org, &rec.Project, &rec.Provider, &rec.Model,
			&rec.InputTokens, &rec.OutputTokens, &rec.CostUSD, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan spend record: %w", err)
		}
		rec.Timestamp = timeFromNanos(ts)
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
				// Metadata is opaque; a bad blob doesn't invalidate the record.
				s.logger.Debug("unreadable spend metadata", "record_id", rec.ID, "error", err)
			}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read spend history: %w", err)
	}
	return records, nil
}

func timeFromNanos(n int64) time.Time {
	return time.Unix(0, n)
}
