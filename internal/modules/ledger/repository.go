// Package ledger persists the append-only outcome ledger and the raw
// pattern detections the analyzers read from.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

// ErrInvalidOutcome is returned when an outcome label is neither WIN nor LOSS.
var ErrInvalidOutcome = errors.New("outcome must be WIN or LOSS")

// Repository handles outcome and detection persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "ledger").Logger(),
	}
}

const outcomeColumns = `id, detection_id, pattern_name, outcome, profit_loss_percent, timestamp`

// RecordOutcome appends an outcome to the ledger and returns its id
func (r *Repository) RecordOutcome(ctx context.Context, o domain.PatternOutcome) (int64, error) {
	if !o.Outcome.Valid() {
		return 0, ErrInvalidOutcome
	}
	if o.PatternName == "" {
		return 0, fmt.Errorf("pattern name is required")
	}

	var detectionID sql.NullInt64
	if o.DetectionID != nil {
		detectionID = sql.NullInt64{Int64: *o.DetectionID, Valid: true}
	}
	var pl sql.NullFloat64
	if o.ProfitLossPercent != nil {
		pl = sql.NullFloat64{Float64: *o.ProfitLossPercent, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO pattern_outcomes (detection_id, pattern_name, outcome, profit_loss_percent, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, detectionID, o.PatternName, string(o.Outcome), pl, o.Timestamp.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to record outcome: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get outcome id: %w", err)
	}

	r.log.Debug().
		Int64("id", id).
		Str("pattern_type", o.PatternName).
		Str("outcome", string(o.Outcome)).
		Msg("Outcome recorded")

	return id, nil
}

// GetAll returns every outcome, oldest first
func (r *Repository) GetAll(ctx context.Context) ([]domain.PatternOutcome, error) {
	return r.queryOutcomes(ctx, `SELECT `+outcomeColumns+` FROM pattern_outcomes ORDER BY timestamp ASC, id ASC`)
}

// GetByPatternType returns one pattern's outcomes, oldest first
func (r *Repository) GetByPatternType(ctx context.Context, name string) ([]domain.PatternOutcome, error) {
	return r.queryOutcomes(ctx, `
		SELECT `+outcomeColumns+` FROM pattern_outcomes
		WHERE pattern_name = ?
		ORDER BY timestamp ASC, id ASC
	`, name)
}

// GetByDateRange returns outcomes with from <= timestamp < to, oldest first
func (r *Repository) GetByDateRange(ctx context.Context, from, to time.Time) ([]domain.PatternOutcome, error) {
	return r.queryOutcomes(ctx, `
		SELECT `+outcomeColumns+` FROM pattern_outcomes
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, id ASC
	`, from.UnixMilli(), to.UnixMilli())
}

// GetOutcomeCount counts a pattern's outcomes
func (r *Repository) GetOutcomeCount(ctx context.Context, name string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pattern_outcomes WHERE pattern_name = ?`, name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outcomes: %w", err)
	}
	return count, nil
}

// GetAvgProfitLoss averages a pattern's recorded profit/loss; nil when none is recorded
func (r *Repository) GetAvgProfitLoss(ctx context.Context, name string) (*float64, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(profit_loss_percent) FROM pattern_outcomes
		WHERE pattern_name = ? AND profit_loss_percent IS NOT NULL
	`, name).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to average profit/loss: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// ClearAll bulk-clears the ledger and its detections
func (r *Repository) ClearAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pattern_outcomes`); err != nil {
		return fmt.Errorf("failed to clear outcomes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pattern_detections`); err != nil {
		return fmt.Errorf("failed to clear detections: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	r.log.Info().Msg("Outcome ledger cleared")
	return nil
}

// RecordDetection stores a raw detection and returns its id
func (r *Repository) RecordDetection(ctx context.Context, d domain.PatternDetection) (int64, error) {
	if d.PatternName == "" {
		return 0, fmt.Errorf("pattern name is required")
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO pattern_detections (pattern_name, confidence, timestamp)
		VALUES (?, ?, ?)
	`, d.PatternName, d.Confidence, d.Timestamp.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to record detection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get detection id: %w", err)
	}
	return id, nil
}

// GetRecent returns detections at or after since, oldest first
func (r *Repository) GetRecent(ctx context.Context, since time.Time) ([]domain.PatternDetection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pattern_name, confidence, timestamp
		FROM pattern_detections
		WHERE timestamp >= ?
		ORDER BY timestamp ASC, id ASC
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	detections := make([]domain.PatternDetection, 0)
	for rows.Next() {
		var d domain.PatternDetection
		var ts int64
		if err := rows.Scan(&d.ID, &d.PatternName, &d.Confidence, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		d.Timestamp = time.UnixMilli(ts)
		detections = append(detections, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating detections: %w", err)
	}
	return detections, nil
}

func (r *Repository) queryOutcomes(ctx context.Context, query string, args ...interface{}) ([]domain.PatternOutcome, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]domain.PatternOutcome, 0)
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}
	return outcomes, nil
}

func scanOutcome(rows *sql.Rows) (domain.PatternOutcome, error) {
	var o domain.PatternOutcome
	var detectionID sql.NullInt64
	var pl sql.NullFloat64
	var outcome string
	var ts int64

	if err := rows.Scan(&o.ID, &detectionID, &o.PatternName, &outcome, &pl, &ts); err != nil {
		return o, fmt.Errorf("failed to scan outcome: %w", err)
	}

	o.Outcome = domain.Outcome(outcome)
	o.Timestamp = time.UnixMilli(ts)
	if detectionID.Valid {
		id := detectionID.Int64
		o.DetectionID = &id
	}
	if pl.Valid {
		v := pl.Float64
		o.ProfitLossPercent = &v
	}
	return o, nil
}
