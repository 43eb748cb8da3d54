package correlation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	testingpkg "github.com/Lamont-Labs/QuantraVision-sub001/internal/testing"
)

func newTestAnalyzer(store *testingpkg.MockStore) *Analyzer {
	a := NewAnalyzer(store, zerolog.New(nil).Level(zerolog.Disabled))
	a.now = testingpkg.Clock(testingpkg.FixedNow)
	return a
}

type detectionBuilder struct {
	next int64
	list []domain.PatternDetection
}

func (b *detectionBuilder) add(name string, ts time.Time) {
	b.next++
	b.list = append(b.list, domain.PatternDetection{ID: b.next, PatternName: name, Confidence: 0.8, Timestamp: ts})
}

// hourlyDetections places A at 09:00 and 10:00, B at 09:30 and C at 20:00 on
// five days, plus Z once in every hour of a sixth day.
func hourlyDetections() []domain.PatternDetection {
	b := &detectionBuilder{}
	midnight := testingpkg.FixedNow.Truncate(24 * time.Hour)
	for d := 1; d <= 5; d++ {
		day := midnight.Add(-time.Duration(d) * 24 * time.Hour)
		b.add("A", day.Add(9*time.Hour))
		b.add("B", day.Add(9*time.Hour+30*time.Minute))
		b.add("A", day.Add(10*time.Hour))
		b.add("C", day.Add(20*time.Hour))
	}
	flat := midnight.Add(-6 * 24 * time.Hour)
	for h := 0; h < 24; h++ {
		b.add("Z", flat.Add(time.Duration(h)*time.Hour))
	}
	return b.list
}

func TestAnalyzeCorrelations(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddDetections(hourlyDetections()...)

	result := newTestAnalyzer(store).AnalyzeCorrelations(context.Background())

	require.Len(t, result, 3)
	pairs := make(map[[2]string]Correlation)
	for _, c := range result {
		assert.Less(t, c.PatternA, c.PatternB)
		assert.NotEqual(t, "Z", c.PatternA)
		assert.NotEqual(t, "Z", c.PatternB)
		pairs[[2]string{c.PatternA, c.PatternB}] = c
	}

	ab := pairs[[2]string{"A", "B"}]
	assert.InDelta(t, 0.6916, ab.Coefficient, 1e-3)
	assert.Equal(t, 10, ab.CooccurrenceCount)
	assert.Less(t, pairs[[2]string{"A", "C"}].Coefficient, 0.0)
	assert.Zero(t, pairs[[2]string{"A", "C"}].CooccurrenceCount)
	assert.Less(t, pairs[[2]string{"B", "C"}].Coefficient, 0.0)

	stored := store.Correlations()
	require.Len(t, stored, 3)
	rec := stored[[2]string{"A", "B"}]
	require.NotNil(t, rec.Correlation)
	assert.InDelta(t, ab.Coefficient, *rec.Correlation, 1e-12)
	assert.True(t, rec.LastUpdated.Equal(testingpkg.FixedNow))
}

func TestAnalyzeCorrelations_InsufficientData(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddDetections(hourlyDetections()[:19]...)

	assert.Empty(t, newTestAnalyzer(store).AnalyzeCorrelations(context.Background()))
	assert.Empty(t, store.Correlations())
}

func TestAnalyzeCorrelations_IgnoresOldDetections(t *testing.T) {
	store := testingpkg.NewMockStore()
	for _, d := range hourlyDetections() {
		d.Timestamp = d.Timestamp.Add(-100 * 24 * time.Hour)
		store.AddDetections(d)
	}

	assert.Empty(t, newTestAnalyzer(store).AnalyzeCorrelations(context.Background()))
}

func TestTopCorrelations(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddDetections(hourlyDetections()...)
	a := newTestAnalyzer(store)
	a.AnalyzeCorrelations(context.Background())

	top := a.TopCorrelations(context.Background(), 1)

	require.Len(t, top, 1)
	assert.Equal(t, "A", top[0].PatternA)
	assert.Equal(t, "B", top[0].PatternB)

	store.SetError(errors.New("boom"))
	assert.Empty(t, a.TopCorrelations(context.Background(), 5))
}

// sequenceFixture is A B C A B C A B D ten minutes apart. Detections 1 and 4
// won and detection 2 lost.
func sequenceFixture(store *testingpkg.MockStore) {
	b := &detectionBuilder{}
	start := testingpkg.FixedNow.Add(-2 * time.Hour)
	for i, name := range []string{"A", "B", "C", "A", "B", "C", "A", "B", "D"} {
		b.add(name, start.Add(time.Duration(i)*10*time.Minute))
	}
	store.AddDetections(b.list...)

	link := func(id int64, o domain.Outcome) domain.PatternOutcome {
		return domain.PatternOutcome{DetectionID: &id, PatternName: "x", Outcome: o, Timestamp: start}
	}
	store.AddOutcomes(link(1, domain.OutcomeWin), link(2, domain.OutcomeLoss), link(4, domain.OutcomeWin))
}

func TestPredictNextPatterns(t *testing.T) {
	store := testingpkg.NewMockStore()
	sequenceFixture(store)
	a := newTestAnalyzer(store)

	predictions := a.PredictNextPatterns(context.Background(), "A")
	require.Len(t, predictions, 1)
	assert.Equal(t, "B", predictions[0].PatternType)
	assert.Equal(t, 5, predictions[0].SampleSize)
	assert.InDelta(t, 5.0/7.0, predictions[0].Probability, 1e-9)

	afterC := a.PredictNextPatterns(context.Background(), "C")
	require.Len(t, afterC, 1)
	assert.Equal(t, "A", afterC[0].PatternType)
	assert.InDelta(t, 4.0/7.0, afterC[0].Probability, 1e-9)

	assert.Empty(t, a.PredictNextPatterns(context.Background(), "D"))
}

func TestUpdateSequences(t *testing.T) {
	store := testingpkg.NewMockStore()
	sequenceFixture(store)
	a := newTestAnalyzer(store)

	stored, err := a.UpdateSequences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	sequences := a.CommonSequences(context.Background())
	require.Len(t, sequences, 3)

	rates := make(map[string]Sequence)
	for _, s := range sequences {
		assert.Equal(t, 2, s.Frequency)
		assert.Equal(t, 20*time.Minute, s.TimeSpan)
		rates[domain.SequenceKey(s.Patterns)] = s
	}
	assert.InDelta(t, 2.0/3.0, rates["A > B > C"].AvgSuccessRate, 1e-9)
	assert.InDelta(t, 0.5, rates["B > C > A"].AvgSuccessRate, 1e-9)
	assert.InDelta(t, 1.0, rates["C > A > B"].AvgSuccessRate, 1e-9)
	assert.NotContains(t, rates, "A > B > D")
}

func TestUpdateSequences_StoreError(t *testing.T) {
	store := testingpkg.NewMockStore()
	sequenceFixture(store)
	store.SetError(errors.New("locked"))

	_, err := newTestAnalyzer(store).UpdateSequences(context.Background())
	assert.ErrorContains(t, err, "failed to load detections for sequences")
	assert.Empty(t, newTestAnalyzer(store).CommonSequences(context.Background()))
}
