// Package learning persists the instrumentation streams (behavioral events,
// market-condition outcomes, temporal data) and the derived records the
// analyzers write back (correlations, sequences, strategy snapshots, thresholds).
package learning

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/database"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

// Repository handles learning data persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new learning repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "learning").Logger(),
	}
}

// InsertBehavioralEvent stores a session event
func (r *Repository) InsertBehavioralEvent(ctx context.Context, e domain.BehavioralEvent) (int64, error) {
	if !e.Outcome.Valid() {
		return 0, fmt.Errorf("invalid outcome %q", e.Outcome)
	}
	if e.SessionID == "" {
		return 0, fmt.Errorf("session id is required")
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO behavioral_events
			(session_id, pattern_type, outcome, timestamp, session_start_time,
			 pattern_count_in_session, time_since_last_pattern_ms, is_after_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SessionID, e.PatternType, string(e.Outcome), e.Timestamp.UnixMilli(), e.SessionStartTime.UnixMilli(),
		e.PatternCountInSession, e.TimeSinceLastPattern.Milliseconds(), boolToInt(e.IsAfterLoss))
	if err != nil {
		return 0, fmt.Errorf("failed to insert behavioral event: %w", err)
	}
	return result.LastInsertId()
}

const eventColumns = `id, session_id, pattern_type, outcome, timestamp, session_start_time,
	pattern_count_in_session, time_since_last_pattern_ms, is_after_loss`

// GetRecentBehavioralEvents returns events at or after since, oldest first
func (r *Repository) GetRecentBehavioralEvents(ctx context.Context, since time.Time) ([]domain.BehavioralEvent, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM behavioral_events
		WHERE timestamp >= ?
		ORDER BY timestamp ASC, id ASC
	`, since.UnixMilli())
}

// GetSessionEvents returns one session's events, oldest first
func (r *Repository) GetSessionEvents(ctx context.Context, sessionID string) ([]domain.BehavioralEvent, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM behavioral_events
		WHERE session_id = ?
		ORDER BY timestamp ASC, id ASC
	`, sessionID)
}

func (r *Repository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]domain.BehavioralEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query behavioral events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.BehavioralEvent, 0)
	for rows.Next() {
		var e domain.BehavioralEvent
		var outcome string
		var ts, start, sinceLast int64
		var afterLoss int
		if err := rows.Scan(&e.ID, &e.SessionID, &e.PatternType, &outcome, &ts, &start,
			&e.PatternCountInSession, &sinceLast, &afterLoss); err != nil {
			return nil, fmt.Errorf("failed to scan behavioral event: %w", err)
		}
		e.Outcome = domain.Outcome(outcome)
		e.Timestamp = time.UnixMilli(ts)
		e.SessionStartTime = time.UnixMilli(start)
		e.TimeSinceLastPattern = time.Duration(sinceLast) * time.Millisecond
		e.IsAfterLoss = afterLoss != 0
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating behavioral events: %w", err)
	}
	return events, nil
}

// InsertMarketConditionOutcome stores an outcome tagged with its regime
func (r *Repository) InsertMarketConditionOutcome(ctx context.Context, o domain.MarketConditionOutcome) (int64, error) {
	if !o.Outcome.Valid() {
		return 0, fmt.Errorf("invalid outcome %q", o.Outcome)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO market_condition_outcomes
			(pattern_type, market_condition, outcome, timestamp, volatility_level, trend_strength)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.PatternType, string(o.MarketCondition), string(o.Outcome), o.Timestamp.UnixMilli(),
		string(o.VolatilityLevel), string(o.TrendStrength))
	if err != nil {
		return 0, fmt.Errorf("failed to insert market condition outcome: %w", err)
	}
	return result.LastInsertId()
}

// GetOutcomesByCondition returns a pattern's outcomes under one condition
func (r *Repository) GetOutcomesByCondition(ctx context.Context, patternType string, condition domain.MarketCondition) ([]domain.MarketConditionOutcome, error) {
	return r.queryConditionOutcomes(ctx, `
		SELECT id, pattern_type, market_condition, outcome, timestamp, volatility_level, trend_strength
		FROM market_condition_outcomes
		WHERE pattern_type = ? AND market_condition = ?
		ORDER BY timestamp ASC, id ASC
	`, patternType, string(condition))
}

// GetAllOutcomesForCondition returns every outcome under one condition
func (r *Repository) GetAllOutcomesForCondition(ctx context.Context, condition domain.MarketCondition) ([]domain.MarketConditionOutcome, error) {
	return r.queryConditionOutcomes(ctx, `
		SELECT id, pattern_type, market_condition, outcome, timestamp, volatility_level, trend_strength
		FROM market_condition_outcomes
		WHERE market_condition = ?
		ORDER BY timestamp ASC, id ASC
	`, string(condition))
}

func (r *Repository) queryConditionOutcomes(ctx context.Context, query string, args ...interface{}) ([]domain.MarketConditionOutcome, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query market condition outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]domain.MarketConditionOutcome, 0)
	for rows.Next() {
		var o domain.MarketConditionOutcome
		var condition, outcome, vol, trend string
		var ts int64
		if err := rows.Scan(&o.ID, &o.PatternType, &condition, &outcome, &ts, &vol, &trend); err != nil {
			return nil, fmt.Errorf("failed to scan market condition outcome: %w", err)
		}
		o.MarketCondition = domain.MarketCondition(condition)
		o.Outcome = domain.Outcome(outcome)
		o.Timestamp = time.UnixMilli(ts)
		o.VolatilityLevel = domain.VolatilityLevel(vol)
		o.TrendStrength = domain.TrendStrength(trend)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating market condition outcomes: %w", err)
	}
	return outcomes, nil
}

// InsertTemporalData stores a decomposed outcome
func (r *Repository) InsertTemporalData(ctx context.Context, d domain.TemporalDatum) (int64, error) {
	if d.HourOfDay < 0 || d.HourOfDay > 23 || d.DayOfWeek < 1 || d.DayOfWeek > 7 {
		return 0, fmt.Errorf("invalid temporal bucket hour=%d day=%d", d.HourOfDay, d.DayOfWeek)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO temporal_outcomes (pattern_type, hour_of_day, day_of_week, outcome, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, d.PatternType, d.HourOfDay, d.DayOfWeek, string(d.Outcome), d.Timestamp.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to insert temporal data: %w", err)
	}
	return result.LastInsertId()
}

// GetTemporalData returns a pattern's temporal data, oldest first
func (r *Repository) GetTemporalData(ctx context.Context, patternType string) ([]domain.TemporalDatum, error) {
	return r.queryTemporal(ctx, `
		SELECT id, pattern_type, hour_of_day, day_of_week, outcome, timestamp
		FROM temporal_outcomes
		WHERE pattern_type = ?
		ORDER BY timestamp ASC, id ASC
	`, patternType)
}

// GetTemporalDataByHour returns a pattern's temporal data for one hour of day
func (r *Repository) GetTemporalDataByHour(ctx context.Context, patternType string, hour int) ([]domain.TemporalDatum, error) {
	return r.queryTemporal(ctx, `
		SELECT id, pattern_type, hour_of_day, day_of_week, outcome, timestamp
		FROM temporal_outcomes
		WHERE pattern_type = ? AND hour_of_day = ?
		ORDER BY timestamp ASC, id ASC
	`, patternType, hour)
}

func (r *Repository) queryTemporal(ctx context.Context, query string, args ...interface{}) ([]domain.TemporalDatum, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query temporal data: %w", err)
	}
	defer rows.Close()

	data := make([]domain.TemporalDatum, 0)
	for rows.Next() {
		var d domain.TemporalDatum
		var outcome string
		var ts int64
		if err := rows.Scan(&d.ID, &d.PatternType, &d.HourOfDay, &d.DayOfWeek, &outcome, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan temporal data: %w", err)
		}
		d.Outcome = domain.Outcome(outcome)
		d.Timestamp = time.UnixMilli(ts)
		data = append(data, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating temporal data: %w", err)
	}
	return data, nil
}

// UpsertCorrelation stores a correlation record keyed by its pattern pair
func (r *Repository) UpsertCorrelation(ctx context.Context, rec domain.PatternCorrelationRecord) error {
	if rec.PatternA >= rec.PatternB {
		return fmt.Errorf("correlation pair must be ordered: %q >= %q", rec.PatternA, rec.PatternB)
	}

	var corr sql.NullFloat64
	if rec.Correlation != nil {
		corr = sql.NullFloat64{Float64: *rec.Correlation, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pattern_correlations (pattern_a, pattern_b, correlation, cooccurrence_count, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pattern_a, pattern_b) DO UPDATE SET
			correlation = excluded.correlation,
			cooccurrence_count = excluded.cooccurrence_count,
			last_updated = excluded.last_updated
	`, rec.PatternA, rec.PatternB, corr, rec.CooccurrenceCount, rec.LastUpdated.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert correlation: %w", err)
	}
	return nil
}

// GetTopCorrelations returns stored correlations by absolute strength
func (r *Repository) GetTopCorrelations(ctx context.Context, limit int) ([]domain.PatternCorrelationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pattern_a, pattern_b, correlation, cooccurrence_count, last_updated
		FROM pattern_correlations
		WHERE correlation IS NOT NULL
		ORDER BY ABS(correlation) DESC, pattern_a ASC, pattern_b ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlations: %w", err)
	}
	defer rows.Close()

	records := make([]domain.PatternCorrelationRecord, 0)
	for rows.Next() {
		var rec domain.PatternCorrelationRecord
		var corr sql.NullFloat64
		var updated int64
		if err := rows.Scan(&rec.PatternA, &rec.PatternB, &corr, &rec.CooccurrenceCount, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan correlation: %w", err)
		}
		if corr.Valid {
			v := corr.Float64
			rec.Correlation = &v
		}
		rec.LastUpdated = time.UnixMilli(updated)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating correlations: %w", err)
	}
	return records, nil
}

// UpsertSequence stores a sequence record keyed by its sequence
func (r *Repository) UpsertSequence(ctx context.Context, rec domain.PatternSequenceRecord) error {
	seqJSON, err := json.Marshal(rec.Sequence)
	if err != nil {
		return fmt.Errorf("failed to marshal sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pattern_sequences (sequence_key, sequence, frequency, avg_success_rate, avg_time_span_ms, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sequence_key) DO UPDATE SET
			frequency = excluded.frequency,
			avg_success_rate = excluded.avg_success_rate,
			avg_time_span_ms = excluded.avg_time_span_ms,
			last_seen = excluded.last_seen
	`, rec.Key(), string(seqJSON), rec.Frequency, rec.AvgSuccessRate, rec.AvgTimeSpan.Milliseconds(), rec.LastSeen.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert sequence: %w", err)
	}
	return nil
}

// GetCommonSequences returns stored sequences by frequency descending
func (r *Repository) GetCommonSequences(ctx context.Context, limit int) ([]domain.PatternSequenceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sequence, frequency, avg_success_rate, avg_time_span_ms, last_seen
		FROM pattern_sequences
		ORDER BY frequency DESC, sequence_key ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sequences: %w", err)
	}
	defer rows.Close()

	records := make([]domain.PatternSequenceRecord, 0)
	for rows.Next() {
		var rec domain.PatternSequenceRecord
		var seqJSON string
		var span, lastSeen int64
		if err := rows.Scan(&seqJSON, &rec.Frequency, &rec.AvgSuccessRate, &span, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan sequence: %w", err)
		}
		if err := json.Unmarshal([]byte(seqJSON), &rec.Sequence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sequence: %w", err)
		}
		rec.AvgTimeSpan = time.Duration(span) * time.Millisecond
		rec.LastSeen = time.UnixMilli(lastSeen)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sequences: %w", err)
	}
	return records, nil
}

// UpsertStrategySnapshot stores a portfolio snapshot keyed by its pattern list
func (r *Repository) UpsertStrategySnapshot(ctx context.Context, snap domain.StrategyMetricsSnapshot) error {
	patternsJSON, err := json.Marshal(snap.PortfolioPatterns)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio patterns: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO strategy_metrics
			(portfolio_key, run_id, portfolio_patterns, win_rate, sharpe_ratio, diversification, sample_size, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_key) DO UPDATE SET
			run_id = excluded.run_id,
			win_rate = excluded.win_rate,
			sharpe_ratio = excluded.sharpe_ratio,
			diversification = excluded.diversification,
			sample_size = excluded.sample_size,
			last_updated = excluded.last_updated
	`, snap.PortfolioKey(), snap.RunID, string(patternsJSON), snap.WinRate, snap.SharpeRatio,
		snap.Diversification, snap.SampleSize, snap.LastUpdated.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert strategy snapshot: %w", err)
	}
	return nil
}

// GetTopStrategies returns stored snapshots by Sharpe ratio descending
func (r *Repository) GetTopStrategies(ctx context.Context, limit int) ([]domain.StrategyMetricsSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, portfolio_patterns, win_rate, sharpe_ratio, diversification, sample_size, last_updated
		FROM strategy_metrics
		ORDER BY sharpe_ratio DESC, last_updated DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	snapshots := make([]domain.StrategyMetricsSnapshot, 0)
	for rows.Next() {
		var s domain.StrategyMetricsSnapshot
		var patternsJSON string
		var updated int64
		if err := rows.Scan(&s.RunID, &patternsJSON, &s.WinRate, &s.SharpeRatio, &s.Diversification, &s.SampleSize, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		if err := json.Unmarshal([]byte(patternsJSON), &s.PortfolioPatterns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal portfolio patterns: %w", err)
		}
		s.LastUpdated = time.UnixMilli(updated)
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategies: %w", err)
	}
	return snapshots, nil
}

// UpsertThreshold stores a calibrated threshold keyed by pattern type
func (r *Repository) UpsertThreshold(ctx context.Context, rec domain.ThresholdRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO optimal_thresholds
			(pattern_type, threshold, true_positive_rate, false_positive_rate, precision, f1_score, loss, iterations, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pattern_type) DO UPDATE SET
			threshold = excluded.threshold,
			true_positive_rate = excluded.true_positive_rate,
			false_positive_rate = excluded.false_positive_rate,
			precision = excluded.precision,
			f1_score = excluded.f1_score,
			loss = excluded.loss,
			iterations = excluded.iterations,
			last_updated = excluded.last_updated
	`, rec.PatternType, rec.Threshold, rec.TruePositiveRate, rec.FalsePositiveRate, rec.Precision,
		rec.F1Score, rec.Loss, rec.Iterations, rec.LastUpdated.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert threshold: %w", err)
	}
	return nil
}

// GetThreshold returns the stored threshold for a pattern, nil when absent
func (r *Repository) GetThreshold(ctx context.Context, patternType string) (*domain.ThresholdRecord, error) {
	var rec domain.ThresholdRecord
	var updated int64
	err := r.db.QueryRowContext(ctx, `
		SELECT pattern_type, threshold, true_positive_rate, false_positive_rate, precision, f1_score, loss, iterations, last_updated
		FROM optimal_thresholds WHERE pattern_type = ?
	`, patternType).Scan(&rec.PatternType, &rec.Threshold, &rec.TruePositiveRate, &rec.FalsePositiveRate,
		&rec.Precision, &rec.F1Score, &rec.Loss, &rec.Iterations, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get threshold: %w", err)
	}
	rec.LastUpdated = time.UnixMilli(updated)
	return &rec, nil
}

// DeleteOlderThan sweeps derived records and instrumentation rows older than before.
// It returns the number of rows removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UnixMilli()
	statements := []string{
		`DELETE FROM pattern_correlations WHERE last_updated < ?`,
		`DELETE FROM pattern_sequences WHERE last_seen < ?`,
		`DELETE FROM market_condition_outcomes WHERE timestamp < ?`,
		`DELETE FROM temporal_outcomes WHERE timestamp < ?`,
		`DELETE FROM behavioral_events WHERE timestamp < ?`,
	}

	var removed int64
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			result, err := tx.ExecContext(ctx, stmt, cutoff)
			if err != nil {
				return fmt.Errorf("failed to sweep: %w", err)
			}
			n, _ := result.RowsAffected()
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Info().Int64("removed", removed).Time("before", before).Msg("Retention sweep completed")
	return removed, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
