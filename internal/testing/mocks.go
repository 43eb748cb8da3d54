package testing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

// MockStore is an in-memory implementation of the ledger and learning
// repository methods the analyzers consume. Setting an error makes every
// read and write fail with it.
type MockStore struct {
	mu sync.RWMutex

	outcomes     []domain.PatternOutcome
	detections   []domain.PatternDetection
	events       []domain.BehavioralEvent
	conditions   []domain.MarketConditionOutcome
	temporal     []domain.TemporalDatum
	correlations map[[2]string]domain.PatternCorrelationRecord
	sequences    map[string]domain.PatternSequenceRecord
	strategies   map[string]domain.StrategyMetricsSnapshot
	thresholds   map[string]domain.ThresholdRecord
	err          error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		correlations: make(map[[2]string]domain.PatternCorrelationRecord),
		sequences:    make(map[string]domain.PatternSequenceRecord),
		strategies:   make(map[string]domain.StrategyMetricsSnapshot),
		thresholds:   make(map[string]domain.ThresholdRecord),
	}
}

// SetError sets the error to return
func (m *MockStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// AddOutcomes appends ledger entries
func (m *MockStore) AddOutcomes(outcomes ...domain.PatternOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcomes...)
}

// AddDetections appends detections
func (m *MockStore) AddDetections(detections ...domain.PatternDetection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = append(m.detections, detections...)
}

// AddEvents appends behavioral events
func (m *MockStore) AddEvents(events ...domain.BehavioralEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// AddConditionOutcomes appends market condition outcomes
func (m *MockStore) AddConditionOutcomes(outcomes ...domain.MarketConditionOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditions = append(m.conditions, outcomes...)
}

// AddTemporalData appends temporal data
func (m *MockStore) AddTemporalData(data ...domain.TemporalDatum) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temporal = append(m.temporal, data...)
}

// GetAll returns every outcome, oldest first
func (m *MockStore) GetAll(ctx context.Context) ([]domain.PatternOutcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := append([]domain.PatternOutcome(nil), m.outcomes...)
	domain.SortByTime(out)
	return out, nil
}

// GetByPatternType returns one pattern's outcomes, oldest first
func (m *MockStore) GetByPatternType(ctx context.Context, name string) ([]domain.PatternOutcome, error) {
	all, err := m.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PatternOutcome, 0)
	for _, o := range all {
		if o.PatternName == name {
			out = append(out, o)
		}
	}
	return out, nil
}

// RecordOutcome appends an outcome and assigns it an id
func (m *MockStore) RecordOutcome(ctx context.Context, o domain.PatternOutcome) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	o.ID = int64(len(m.outcomes) + 1)
	m.outcomes = append(m.outcomes, o)
	return o.ID, nil
}

// RecordDetection appends a detection and assigns it an id
func (m *MockStore) RecordDetection(ctx context.Context, d domain.PatternDetection) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	d.ID = int64(len(m.detections) + 1)
	m.detections = append(m.detections, d)
	return d.ID, nil
}

// GetRecent returns detections at or after since, oldest first
func (m *MockStore) GetRecent(ctx context.Context, since time.Time) ([]domain.PatternDetection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.PatternDetection, 0)
	for _, d := range m.detections {
		if !d.Timestamp.Before(since) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// InsertBehavioralEvent appends an event
func (m *MockStore) InsertBehavioralEvent(ctx context.Context, e domain.BehavioralEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	e.ID = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return e.ID, nil
}

// GetRecentBehavioralEvents returns events at or after since, oldest first
func (m *MockStore) GetRecentBehavioralEvents(ctx context.Context, since time.Time) ([]domain.BehavioralEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.BehavioralEvent, 0)
	for _, e := range m.events {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// InsertMarketConditionOutcome appends a condition outcome
func (m *MockStore) InsertMarketConditionOutcome(ctx context.Context, o domain.MarketConditionOutcome) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	o.ID = int64(len(m.conditions) + 1)
	m.conditions = append(m.conditions, o)
	return o.ID, nil
}

// GetOutcomesByCondition filters condition outcomes by pattern and condition
func (m *MockStore) GetOutcomesByCondition(ctx context.Context, patternType string, condition domain.MarketCondition) ([]domain.MarketConditionOutcome, error) {
	all, err := m.GetAllOutcomesForCondition(ctx, condition)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MarketConditionOutcome, 0)
	for _, o := range all {
		if o.PatternType == patternType {
			out = append(out, o)
		}
	}
	return out, nil
}

// GetAllOutcomesForCondition filters condition outcomes by condition
func (m *MockStore) GetAllOutcomesForCondition(ctx context.Context, condition domain.MarketCondition) ([]domain.MarketConditionOutcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.MarketConditionOutcome, 0)
	for _, o := range m.conditions {
		if o.MarketCondition == condition {
			out = append(out, o)
		}
	}
	return out, nil
}

// InsertTemporalData appends a temporal datum
func (m *MockStore) InsertTemporalData(ctx context.Context, d domain.TemporalDatum) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	d.ID = int64(len(m.temporal) + 1)
	m.temporal = append(m.temporal, d)
	return d.ID, nil
}

// GetTemporalData returns a pattern's temporal data
func (m *MockStore) GetTemporalData(ctx context.Context, patternType string) ([]domain.TemporalDatum, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.TemporalDatum, 0)
	for _, d := range m.temporal {
		if d.PatternType == patternType {
			out = append(out, d)
		}
	}
	return out, nil
}

// UpsertCorrelation stores a correlation record keyed by its pair
func (m *MockStore) UpsertCorrelation(ctx context.Context, rec domain.PatternCorrelationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.correlations[[2]string{rec.PatternA, rec.PatternB}] = rec
	return nil
}

// Correlations returns the stored correlation records
func (m *MockStore) Correlations() map[[2]string]domain.PatternCorrelationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[[2]string]domain.PatternCorrelationRecord, len(m.correlations))
	for k, v := range m.correlations {
		out[k] = v
	}
	return out
}

// UpsertSequence stores a sequence record keyed by its sequence
func (m *MockStore) UpsertSequence(ctx context.Context, rec domain.PatternSequenceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sequences[rec.Key()] = rec
	return nil
}

// GetCommonSequences returns stored sequences by frequency descending
func (m *MockStore) GetCommonSequences(ctx context.Context, limit int) ([]domain.PatternSequenceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.PatternSequenceRecord, 0, len(m.sequences))
	for _, s := range m.sequences {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Key() < out[j].Key()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertStrategySnapshot stores a snapshot keyed by its portfolio
func (m *MockStore) UpsertStrategySnapshot(ctx context.Context, snap domain.StrategyMetricsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.strategies[snap.PortfolioKey()] = snap
	return nil
}

// Strategies returns the stored snapshots
func (m *MockStore) Strategies() []domain.StrategyMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.StrategyMetricsSnapshot, 0, len(m.strategies))
	for _, s := range m.strategies {
		out = append(out, s)
	}
	return out
}

// UpsertThreshold stores a threshold keyed by pattern type
func (m *MockStore) UpsertThreshold(ctx context.Context, rec domain.ThresholdRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.thresholds[rec.PatternType] = rec
	return nil
}

// Thresholds returns the stored thresholds
func (m *MockStore) Thresholds() map[string]domain.ThresholdRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.ThresholdRecord, len(m.thresholds))
	for k, v := range m.thresholds {
		out[k] = v
	}
	return out
}

// GetTopCorrelations returns stored correlations by absolute value descending
func (m *MockStore) GetTopCorrelations(ctx context.Context, limit int) ([]domain.PatternCorrelationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.PatternCorrelationRecord, 0, len(m.correlations))
	for _, c := range m.correlations {
		if c.Correlation != nil {
			out = append(out, c)
		}
	}
	abs := func(f float64) float64 {
		if f < 0 {
			return -f
		}
		return f
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(*out[i].Correlation), abs(*out[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		return out[i].PatternA+out[i].PatternB < out[j].PatternA+out[j].PatternB
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetTopStrategies returns stored snapshots by Sharpe ratio descending
func (m *MockStore) GetTopStrategies(ctx context.Context, limit int) ([]domain.StrategyMetricsSnapshot, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	out := m.Strategies()
	sort.Slice(out, func(i, j int) bool {
		if out[i].SharpeRatio != out[j].SharpeRatio {
			return out[i].SharpeRatio > out[j].SharpeRatio
		}
		return out[i].PortfolioKey() < out[j].PortfolioKey()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetThreshold returns the stored threshold for a pattern, or nil
func (m *MockStore) GetThreshold(ctx context.Context, patternType string) (*domain.ThresholdRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.thresholds[patternType]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetTemporalDataByHour returns a pattern's temporal data for one hour of day
func (m *MockStore) GetTemporalDataByHour(ctx context.Context, patternType string, hour int) ([]domain.TemporalDatum, error) {
	all, err := m.GetTemporalData(ctx, patternType)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TemporalDatum, 0)
	for _, d := range all {
		if d.HourOfDay == hour {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockStore) failure() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}
