package domain

import "strings"

// VolatilityLevel is supplied by the external regime classifier.
type VolatilityLevel string

const (
	VolatilityLow    VolatilityLevel = "LOW"
	VolatilityMedium VolatilityLevel = "MEDIUM"
	VolatilityHigh   VolatilityLevel = "HIGH"
)

// TrendStrength is supplied by the external regime classifier.
type TrendStrength string

const (
	TrendWeak     TrendStrength = "WEAK"
	TrendModerate TrendStrength = "MODERATE"
	TrendStrong   TrendStrength = "STRONG"
)

// MarketCondition is the discrete regime derived from volatility x trend strength.
type MarketCondition string

const (
	ConditionCalmRanging         MarketCondition = "CALM_RANGING"
	ConditionCalmTrending        MarketCondition = "CALM_TRENDING"
	ConditionCalmStrongTrend     MarketCondition = "CALM_STRONG_TREND"
	ConditionNormalRanging       MarketCondition = "NORMAL_RANGING"
	ConditionNormalTrending      MarketCondition = "NORMAL_TRENDING"
	ConditionNormalStrongTrend   MarketCondition = "NORMAL_STRONG_TREND"
	ConditionVolatileRanging     MarketCondition = "VOLATILE_RANGING"
	ConditionVolatileTrending    MarketCondition = "VOLATILE_TRENDING"
	ConditionVolatileStrongTrend MarketCondition = "VOLATILE_STRONG_TREND"
)

var conditionGrid = map[VolatilityLevel]map[TrendStrength]MarketCondition{
	VolatilityLow: {
		TrendWeak:     ConditionCalmRanging,
		TrendModerate: ConditionCalmTrending,
		TrendStrong:   ConditionCalmStrongTrend,
	},
	VolatilityMedium: {
		TrendWeak:     ConditionNormalRanging,
		TrendModerate: ConditionNormalTrending,
		TrendStrong:   ConditionNormalStrongTrend,
	},
	VolatilityHigh: {
		TrendWeak:     ConditionVolatileRanging,
		TrendModerate: ConditionVolatileTrending,
		TrendStrong:   ConditionVolatileStrongTrend,
	},
}

// AllMarketConditions lists every condition in grid order.
func AllMarketConditions() []MarketCondition {
	return []MarketCondition{
		ConditionCalmRanging, ConditionCalmTrending, ConditionCalmStrongTrend,
		ConditionNormalRanging, ConditionNormalTrending, ConditionNormalStrongTrend,
		ConditionVolatileRanging, ConditionVolatileTrending, ConditionVolatileStrongTrend,
	}
}

// ConditionFor derives the market condition for a classifier reading.
func ConditionFor(vol VolatilityLevel, trend TrendStrength) (MarketCondition, bool) {
	row, ok := conditionGrid[vol]
	if !ok {
		return "", false
	}
	c, ok := row[trend]
	return c, ok
}

// ParseVolatilityLevel accepts LOW/MEDIUM/HIGH in any case.
func ParseVolatilityLevel(s string) (VolatilityLevel, bool) {
	v := VolatilityLevel(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := conditionGrid[v]
	return v, ok
}

// ParseTrendStrength accepts WEAK/MODERATE/STRONG in any case.
func ParseTrendStrength(s string) (TrendStrength, bool) {
	t := TrendStrength(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TrendWeak, TrendModerate, TrendStrong:
		return t, true
	}
	return t, false
}

// ParseMarketCondition accepts a condition name in any case.
func ParseMarketCondition(s string) (MarketCondition, bool) {
	c := MarketCondition(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllMarketConditions() {
		if known == c {
			return c, true
		}
	}
	return c, false
}
