package domain

import (
	"sort"
	"time"
)

// WinRate is the fraction of WIN outcomes, 0 for an empty slice.
func WinRate(outcomes []Outcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	wins := 0
	for _, o := range outcomes {
		if o == OutcomeWin {
			wins++
		}
	}
	return float64(wins) / float64(len(outcomes))
}

// OutcomeWinRate is WinRate over ledger entries.
func OutcomeWinRate(outcomes []PatternOutcome) float64 {
	labels := make([]Outcome, len(outcomes))
	for i, o := range outcomes {
		labels[i] = o.Outcome
	}
	return WinRate(labels)
}

// Returns collects the recorded profit/loss percentages, skipping absent ones.
func Returns(outcomes []PatternOutcome) []float64 {
	returns := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if o.ProfitLossPercent != nil {
			returns = append(returns, *o.ProfitLossPercent)
		}
	}
	return returns
}

// SortByTime orders outcomes oldest first, keeping insertion order for ties.
func SortByTime(outcomes []PatternOutcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Timestamp.Before(outcomes[j].Timestamp)
	})
}

// GroupByPattern buckets outcomes by pattern name, each bucket oldest first.
func GroupByPattern(outcomes []PatternOutcome) map[string][]PatternOutcome {
	groups := make(map[string][]PatternOutcome)
	for _, o := range outcomes {
		groups[o.PatternName] = append(groups[o.PatternName], o)
	}
	for name := range groups {
		SortByTime(groups[name])
	}
	return groups
}

// SortedKeys returns the map keys in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ISOWeekday maps time.Weekday to 1 (Monday) - 7 (Sunday).
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// WeekdayFromISO is the inverse of ISOWeekday.
func WeekdayFromISO(day int) time.Weekday {
	if day == 7 {
		return time.Sunday
	}
	return time.Weekday(day)
}
