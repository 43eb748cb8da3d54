// Package handlers provides the HTTP JSON surface over the learning analyzers.
package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/anomaly"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/behavioral"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/calibration"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/conditions"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/correlation"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/forecast"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/risk"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/strategy"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/temporal"
)

const defaultTopLimit = 10

// LedgerInterface records outcomes and detections
type LedgerInterface interface {
	RecordOutcome(ctx context.Context, o domain.PatternOutcome) (int64, error)
	RecordDetection(ctx context.Context, d domain.PatternDetection) (int64, error)
}

// AnomalyDetectorInterface defines the anomaly reads
type AnomalyDetectorInterface interface {
	DetectAnomalies(ctx context.Context) []anomaly.Anomaly
	IsOutlier(ctx context.Context, outcome domain.PatternOutcome) bool
	DetectPerformanceShifts(ctx context.Context) []anomaly.PerformanceShift
	AttentionRequired(ctx context.Context) []anomaly.AlertItem
}

// BehavioralAnalyzerInterface defines session tracking and analysis
type BehavioralAnalyzerInterface interface {
	TrackEvent(ctx context.Context, e domain.BehavioralEvent) error
	DetectOvertrading(ctx context.Context) behavioral.OvertradingAnalysis
	DetectRevengeTrading(ctx context.Context) behavioral.RevengePattern
	OptimalSessionLength(ctx context.Context) time.Duration
	Warnings(ctx context.Context) []behavioral.Warning
}

// CalibratorInterface defines threshold calibration
type CalibratorInterface interface {
	CalibrateAll(ctx context.Context) calibration.Result
	CalibratePattern(ctx context.Context, patternType string) (calibration.OptimalThreshold, bool)
	GradientStep(ctx context.Context, patternType string, threshold, learningRate float64) (float64, float64)
}

// ConditionLearnerInterface defines regime tracking and ranking
type ConditionLearnerInterface interface {
	TrackOutcome(ctx context.Context, patternType string, outcome domain.Outcome, vol domain.VolatilityLevel, trend domain.TrendStrength) error
	BestPatternsForCondition(ctx context.Context, condition domain.MarketCondition) []string
	ConditionAnalysis(ctx context.Context, patternType string) []conditions.ConditionBreakdown
	CurrentOptimalPatterns(ctx context.Context, vol domain.VolatilityLevel, trend domain.TrendStrength) []string
}

// CorrelationAnalyzerInterface defines correlation and sequence reads
type CorrelationAnalyzerInterface interface {
	AnalyzeCorrelations(ctx context.Context) []correlation.Correlation
	TopCorrelations(ctx context.Context, limit int) []correlation.Correlation
	CommonSequences(ctx context.Context) []correlation.Sequence
	PredictNextPatterns(ctx context.Context, current string) []correlation.Prediction
}

// RiskAnalyzerInterface defines risk-adjusted reads
type RiskAnalyzerInterface interface {
	BestRiskAdjusted(ctx context.Context) []risk.RankedPattern
	RiskMetrics(ctx context.Context, patternType string) risk.Metrics
}

// StrategyLearnerInterface defines portfolio reads
type StrategyLearnerInterface interface {
	BestPortfolio(ctx context.Context, maxPatterns int) strategy.Portfolio
	PortfolioMetrics(ctx context.Context) strategy.Stats
	DiversificationScore(ctx context.Context) float64
	ComplementaryPatterns(ctx context.Context, patternType string) []strategy.Complement
	TopStrategies(ctx context.Context, limit int) []domain.StrategyMetricsSnapshot
}

// TemporalLearnerInterface defines time-of-day tracking and reads
type TemporalLearnerInterface interface {
	TrackOutcome(ctx context.Context, patternType string, outcome domain.Outcome, ts time.Time) error
	Heatmap(ctx context.Context, patternType string) temporal.Heatmap
	BestTimeOfDay(ctx context.Context, patternType string) (temporal.TimeRange, bool)
	BestDayOfWeek(ctx context.Context, patternType string) (time.Weekday, bool)
	BestHoursOfDay(ctx context.Context, patternType string) []temporal.HourStat
}

// ForecasterInterface defines trend reads
type ForecasterInterface interface {
	PredictNextWeekPerformance(ctx context.Context, patternType string) forecast.Forecast
	TrendStrength(ctx context.Context, patternType string) domain.TrendDirection
	BreakoutProbability(ctx context.Context, patternType string) float64
	WarningSignals(ctx context.Context) []forecast.TrendWarning
}

// ResultCacheInterface caches GET responses
type ResultCacheInterface interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Services bundles the analyzers the handler serves
type Services struct {
	Ledger      LedgerInterface
	Anomalies   AnomalyDetectorInterface
	Behavior    BehavioralAnalyzerInterface
	Calibrator  CalibratorInterface
	Conditions  ConditionLearnerInterface
	Correlation CorrelationAnalyzerInterface
	Risk        RiskAnalyzerInterface
	Strategy    StrategyLearnerInterface
	Temporal    TemporalLearnerInterface
	Forecaster  ForecasterInterface
}

// Handler handles learning HTTP requests
type Handler struct {
	svc   Services
	cache ResultCacheInterface
	now   func() time.Time
	log   zerolog.Logger
}

// NewHandler creates a new learning handler. cache may be nil.
func NewHandler(svc Services, cache ResultCacheInterface, log zerolog.Logger) *Handler {
	return &Handler{
		svc:   svc,
		cache: cache,
		now:   time.Now,
		log:   log.With().Str("handler", "learning").Logger(),
	}
}

type outcomeRequest struct {
	PatternName       string     `json:"pattern_name"`
	Outcome           string     `json:"outcome"`
	DetectionID       *int64     `json:"detection_id"`
	ProfitLossPercent *float64   `json:"profit_loss_percent"`
	Timestamp         *time.Time `json:"timestamp"`
}

type detectionRequest struct {
	PatternName string     `json:"pattern_name"`
	Confidence  float64    `json:"confidence"`
	Timestamp   *time.Time `json:"timestamp"`
}

type behavioralEventRequest struct {
	SessionID              string     `json:"session_id"`
	PatternType            string     `json:"pattern_type"`
	Outcome                string     `json:"outcome"`
	Timestamp              *time.Time `json:"timestamp"`
	SessionStartTime       time.Time  `json:"session_start_time"`
	PatternCountInSession  int        `json:"pattern_count_in_session"`
	TimeSinceLastPatternMs int64      `json:"time_since_last_pattern_ms"`
	IsAfterLoss            bool       `json:"is_after_loss"`
}

type conditionOutcomeRequest struct {
	PatternType     string `json:"pattern_type"`
	Outcome         string `json:"outcome"`
	VolatilityLevel string `json:"volatility_level"`
	TrendStrength   string `json:"trend_strength"`
}

type sessionLengthResponse struct {
	Minutes float64 `json:"minutes"`
	Hours   float64 `json:"hours"`
}

type temporalResponse struct {
	PatternType   string                 `json:"pattern_type"`
	Cells         []temporal.HeatmapCell `json:"cells"`
	BestTimeOfDay *temporal.TimeRange    `json:"best_time_of_day"`
	BestDayOfWeek *string                `json:"best_day_of_week"`
}

type forecastResponse struct {
	Forecast            forecast.Forecast     `json:"forecast"`
	TrendStrength       domain.TrendDirection `json:"trend_strength"`
	BreakoutProbability float64               `json:"breakout_probability"`
}

func (h *Handler) timestamp(ts *time.Time) time.Time {
	if ts == nil || ts.IsZero() {
		return h.now()
	}
	return *ts
}

// HandleRecordOutcome handles POST /api/learning/outcomes
func (h *Handler) HandleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	outcome, ok := domain.ParseOutcome(req.Outcome)
	if !ok || req.PatternName == "" {
		http.Error(w, "pattern_name and outcome (WIN or LOSS) are required", http.StatusBadRequest)
		return
	}

	o := domain.PatternOutcome{
		DetectionID:       req.DetectionID,
		PatternName:       req.PatternName,
		Outcome:           outcome,
		ProfitLossPercent: req.ProfitLossPercent,
		Timestamp:         h.timestamp(req.Timestamp),
	}
	id, err := h.svc.Ledger.RecordOutcome(r.Context(), o)
	if err != nil {
		h.log.Error().Err(err).Str("pattern_type", o.PatternName).Msg("Failed to record outcome")
		http.Error(w, "Failed to record outcome", http.StatusInternalServerError)
		return
	}
	if err := h.svc.Temporal.TrackOutcome(r.Context(), o.PatternName, o.Outcome, o.Timestamp); err != nil {
		h.log.Warn().Err(err).Str("pattern_type", o.PatternName).Msg("Failed to track temporal outcome")
	}

	h.invalidate(r.Context())
	h.respond(w, http.StatusCreated, map[string]interface{}{"id": id})
}

// HandleRecordDetection handles POST /api/learning/detections
func (h *Handler) HandleRecordDetection(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatternName == "" {
		http.Error(w, "pattern_name is required", http.StatusBadRequest)
		return
	}

	id, err := h.svc.Ledger.RecordDetection(r.Context(), domain.PatternDetection{
		PatternName: req.PatternName,
		Confidence:  req.Confidence,
		Timestamp:   h.timestamp(req.Timestamp),
	})
	if err != nil {
		h.log.Error().Err(err).Str("pattern_type", req.PatternName).Msg("Failed to record detection")
		http.Error(w, "Failed to record detection", http.StatusInternalServerError)
		return
	}

	h.invalidate(r.Context())
	h.respond(w, http.StatusCreated, map[string]interface{}{"id": id})
}

// HandleRecordBehavioralEvent handles POST /api/learning/behavioral-events
func (h *Handler) HandleRecordBehavioralEvent(w http.ResponseWriter, r *http.Request) {
	var req behavioralEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	outcome, ok := domain.ParseOutcome(req.Outcome)
	if !ok || req.SessionID == "" || req.PatternType == "" {
		http.Error(w, "session_id, pattern_type and outcome are required", http.StatusBadRequest)
		return
	}

	ts := h.timestamp(req.Timestamp)
	start := req.SessionStartTime
	if start.IsZero() {
		start = ts
	}
	err := h.svc.Behavior.TrackEvent(r.Context(), domain.BehavioralEvent{
		SessionID:             req.SessionID,
		PatternType:           req.PatternType,
		Outcome:               outcome,
		Timestamp:             ts,
		SessionStartTime:      start,
		PatternCountInSession: req.PatternCountInSession,
		TimeSinceLastPattern:  time.Duration(req.TimeSinceLastPatternMs) * time.Millisecond,
		IsAfterLoss:           req.IsAfterLoss,
	})
	if err != nil {
		h.log.Error().Err(err).Str("session_id", req.SessionID).Msg("Failed to record behavioral event")
		http.Error(w, "Failed to record behavioral event", http.StatusInternalServerError)
		return
	}

	h.invalidate(r.Context())
	h.respond(w, http.StatusCreated, map[string]interface{}{"recorded": true})
}

// HandleRecordConditionOutcome handles POST /api/learning/conditions/outcomes
func (h *Handler) HandleRecordConditionOutcome(w http.ResponseWriter, r *http.Request) {
	var req conditionOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	outcome, okOutcome := domain.ParseOutcome(req.Outcome)
	vol, okVol := domain.ParseVolatilityLevel(req.VolatilityLevel)
	trend, okTrend := domain.ParseTrendStrength(req.TrendStrength)
	if !okOutcome || !okVol || !okTrend || req.PatternType == "" {
		http.Error(w, "pattern_type, outcome, volatility_level and trend_strength are required", http.StatusBadRequest)
		return
	}

	if err := h.svc.Conditions.TrackOutcome(r.Context(), req.PatternType, outcome, vol, trend); err != nil {
		h.log.Error().Err(err).Str("pattern_type", req.PatternType).Msg("Failed to record condition outcome")
		http.Error(w, "Failed to record condition outcome", http.StatusInternalServerError)
		return
	}

	h.invalidate(r.Context())
	condition, _ := domain.ConditionFor(vol, trend)
	h.respond(w, http.StatusCreated, map[string]interface{}{"market_condition": condition})
}

// HandleGetAnomalies handles GET /api/learning/anomalies
func (h *Handler) HandleGetAnomalies(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Anomalies.DetectAnomalies(r.Context()))
}

// HandleGetPerformanceShifts handles GET /api/learning/anomalies/shifts
func (h *Handler) HandleGetPerformanceShifts(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Anomalies.DetectPerformanceShifts(r.Context()))
}

// HandleGetAttention handles GET /api/learning/anomalies/attention
func (h *Handler) HandleGetAttention(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Anomalies.AttentionRequired(r.Context()))
}

// HandleGetOvertrading handles GET /api/learning/behavior/overtrading
func (h *Handler) HandleGetOvertrading(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Behavior.DetectOvertrading(r.Context()))
}

// HandleGetRevenge handles GET /api/learning/behavior/revenge
func (h *Handler) HandleGetRevenge(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Behavior.DetectRevengeTrading(r.Context()))
}

// HandleGetSessionLength handles GET /api/learning/behavior/session-length
func (h *Handler) HandleGetSessionLength(w http.ResponseWriter, r *http.Request) {
	d := h.svc.Behavior.OptimalSessionLength(r.Context())
	h.respond(w, http.StatusOK, sessionLengthResponse{Minutes: d.Minutes(), Hours: d.Hours()})
}

// HandleGetBehavioralWarnings handles GET /api/learning/behavior/warnings
func (h *Handler) HandleGetBehavioralWarnings(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Behavior.Warnings(r.Context()))
}

// HandleGetCalibration handles GET /api/learning/calibration
func (h *Handler) HandleGetCalibration(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Calibrator.CalibrateAll(r.Context()))
}

// HandleGetPatternCalibration handles GET /api/learning/calibration/{pattern}
func (h *Handler) HandleGetPatternCalibration(w http.ResponseWriter, r *http.Request) {
	pattern := chi.URLParam(r, "pattern")
	threshold, ok := h.svc.Calibrator.CalibratePattern(r.Context(), pattern)
	if !ok {
		http.Error(w, "Not enough outcomes to calibrate "+pattern, http.StatusNotFound)
		return
	}
	h.respond(w, http.StatusOK, threshold)
}

type gradientStepResponse struct {
	PatternType  string  `json:"pattern_type"`
	From         float64 `json:"from_threshold"`
	LearningRate float64 `json:"learning_rate"`
	Threshold    float64 `json:"threshold"`
	Loss         float64 `json:"loss"`
}

// HandleGetGradientStep handles GET /api/learning/calibration/{pattern}/step
func (h *Handler) HandleGetGradientStep(w http.ResponseWriter, r *http.Request) {
	threshold, ok := floatParam(r, "threshold", calibration.InitialThreshold)
	if !ok || threshold < 0 || threshold > 1 {
		http.Error(w, "threshold must be a number in [0, 1]", http.StatusBadRequest)
		return
	}
	rate, ok := floatParam(r, "learning_rate", calibration.InitialLearningRate)
	if !ok || rate <= 0 {
		http.Error(w, "learning_rate must be a positive number", http.StatusBadRequest)
		return
	}

	pattern := chi.URLParam(r, "pattern")
	next, loss := h.svc.Calibrator.GradientStep(r.Context(), pattern, threshold, rate)
	h.respond(w, http.StatusOK, gradientStepResponse{
		PatternType:  pattern,
		From:         threshold,
		LearningRate: rate,
		Threshold:    next,
		Loss:         loss,
	})
}

// HandleGetBestForCondition handles GET /api/learning/conditions/{condition}/best
func (h *Handler) HandleGetBestForCondition(w http.ResponseWriter, r *http.Request) {
	condition, ok := domain.ParseMarketCondition(chi.URLParam(r, "condition"))
	if !ok {
		http.Error(w, "Unknown market condition", http.StatusBadRequest)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"market_condition": condition,
		"patterns":         h.svc.Conditions.BestPatternsForCondition(r.Context(), condition),
	})
}

// HandleGetCurrentOptimal handles GET /api/learning/conditions/current
func (h *Handler) HandleGetCurrentOptimal(w http.ResponseWriter, r *http.Request) {
	vol, okVol := domain.ParseVolatilityLevel(r.URL.Query().Get("volatility"))
	trend, okTrend := domain.ParseTrendStrength(r.URL.Query().Get("trend"))
	if !okVol || !okTrend {
		http.Error(w, "volatility (LOW, MEDIUM, HIGH) and trend (WEAK, MODERATE, STRONG) are required", http.StatusBadRequest)
		return
	}
	condition, _ := domain.ConditionFor(vol, trend)
	h.respond(w, http.StatusOK, map[string]interface{}{
		"market_condition": condition,
		"patterns":         h.svc.Conditions.CurrentOptimalPatterns(r.Context(), vol, trend),
	})
}

// HandleGetConditionAnalysis handles GET /api/learning/patterns/{pattern}/conditions
func (h *Handler) HandleGetConditionAnalysis(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Conditions.ConditionAnalysis(r.Context(), chi.URLParam(r, "pattern")))
}

// HandleGetCorrelations handles GET /api/learning/correlations
func (h *Handler) HandleGetCorrelations(w http.ResponseWriter, r *http.Request) {
	correlations := cachedResult(r.Context(), h, "correlations", func() []correlation.Correlation {
		return h.svc.Correlation.AnalyzeCorrelations(r.Context())
	})
	h.respond(w, http.StatusOK, correlations)
}

// HandleGetTopCorrelations handles GET /api/learning/correlations/top
func (h *Handler) HandleGetTopCorrelations(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", defaultTopLimit)
	if !ok {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	h.respond(w, http.StatusOK, h.svc.Correlation.TopCorrelations(r.Context(), limit))
}

// HandleGetOutlier handles GET /api/learning/patterns/{pattern}/outlier?profit_loss=
func (h *Handler) HandleGetOutlier(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("profit_loss") == "" {
		http.Error(w, "profit_loss is required", http.StatusBadRequest)
		return
	}
	pl, ok := floatParam(r, "profit_loss", 0)
	if !ok {
		http.Error(w, "profit_loss must be a number", http.StatusBadRequest)
		return
	}

	pattern := chi.URLParam(r, "pattern")
	outlier := h.svc.Anomalies.IsOutlier(r.Context(), domain.PatternOutcome{
		PatternName:       pattern,
		ProfitLossPercent: &pl,
	})
	h.respond(w, http.StatusOK, map[string]interface{}{
		"pattern_type":        pattern,
		"profit_loss_percent": pl,
		"is_outlier":          outlier,
	})
}

// HandleGetSequences handles GET /api/learning/sequences
func (h *Handler) HandleGetSequences(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Correlation.CommonSequences(r.Context()))
}

// HandleGetNextPatterns handles GET /api/learning/patterns/{pattern}/next
func (h *Handler) HandleGetNextPatterns(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Correlation.PredictNextPatterns(r.Context(), chi.URLParam(r, "pattern")))
}

// HandleGetBestRiskAdjusted handles GET /api/learning/risk/best
func (h *Handler) HandleGetBestRiskAdjusted(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Risk.BestRiskAdjusted(r.Context()))
}

// HandleGetRiskMetrics handles GET /api/learning/patterns/{pattern}/risk
func (h *Handler) HandleGetRiskMetrics(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Risk.RiskMetrics(r.Context(), chi.URLParam(r, "pattern")))
}

// HandleGetPortfolio handles GET /api/learning/strategy/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	maxPatterns, ok := intParam(r, "max", strategy.DefaultMaxPatterns)
	if !ok {
		http.Error(w, "max must be a positive integer", http.StatusBadRequest)
		return
	}
	portfolio := cachedResult(r.Context(), h, "portfolio:"+strconv.Itoa(maxPatterns), func() strategy.Portfolio {
		return h.svc.Strategy.BestPortfolio(r.Context(), maxPatterns)
	})
	h.respond(w, http.StatusOK, portfolio)
}

// HandleGetPortfolioMetrics handles GET /api/learning/strategy/metrics
func (h *Handler) HandleGetPortfolioMetrics(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Strategy.PortfolioMetrics(r.Context()))
}

// HandleGetDiversification handles GET /api/learning/strategy/diversification
func (h *Handler) HandleGetDiversification(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]interface{}{
		"diversification_score": h.svc.Strategy.DiversificationScore(r.Context()),
	})
}

// HandleGetTopStrategies handles GET /api/learning/strategy/top
func (h *Handler) HandleGetTopStrategies(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", defaultTopLimit)
	if !ok {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	h.respond(w, http.StatusOK, h.svc.Strategy.TopStrategies(r.Context(), limit))
}

// HandleGetComplementary handles GET /api/learning/patterns/{pattern}/complementary
func (h *Handler) HandleGetComplementary(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Strategy.ComplementaryPatterns(r.Context(), chi.URLParam(r, "pattern")))
}

// HandleGetTemporal handles GET /api/learning/patterns/{pattern}/temporal
func (h *Handler) HandleGetTemporal(w http.ResponseWriter, r *http.Request) {
	pattern := chi.URLParam(r, "pattern")
	resp := cachedResult(r.Context(), h, "temporal:"+pattern, func() temporalResponse {
		ctx := r.Context()
		resp := temporalResponse{
			PatternType: pattern,
			Cells:       h.svc.Temporal.Heatmap(ctx, pattern).Cells(),
		}
		if tr, ok := h.svc.Temporal.BestTimeOfDay(ctx, pattern); ok {
			resp.BestTimeOfDay = &tr
		}
		if day, ok := h.svc.Temporal.BestDayOfWeek(ctx, pattern); ok {
			name := day.String()
			resp.BestDayOfWeek = &name
		}
		return resp
	})
	h.respond(w, http.StatusOK, resp)
}

// HandleGetBestHours handles GET /api/learning/patterns/{pattern}/temporal/hours
func (h *Handler) HandleGetBestHours(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Temporal.BestHoursOfDay(r.Context(), chi.URLParam(r, "pattern")))
}

// HandleGetForecast handles GET /api/learning/patterns/{pattern}/forecast
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	pattern := chi.URLParam(r, "pattern")
	resp := cachedResult(r.Context(), h, "forecast:"+pattern, func() forecastResponse {
		ctx := r.Context()
		return forecastResponse{
			Forecast:            h.svc.Forecaster.PredictNextWeekPerformance(ctx, pattern),
			TrendStrength:       h.svc.Forecaster.TrendStrength(ctx, pattern),
			BreakoutProbability: h.svc.Forecaster.BreakoutProbability(ctx, pattern),
		}
	})
	h.respond(w, http.StatusOK, resp)
}

// HandleGetTrendWarnings handles GET /api/learning/warnings
func (h *Handler) HandleGetTrendWarnings(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.svc.Forecaster.WarningSignals(r.Context()))
}

// cachedResult serves key from the cache, computing and storing it on a miss.
// Cache failures fall through to compute.
func cachedResult[T any](ctx context.Context, h *Handler, key string, compute func() T) T {
	var value T
	if h.cache != nil {
		hit, err := h.cache.Get(ctx, key, &value)
		if err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("Failed to read cached result")
		} else if hit {
			return value
		}
	}

	value = compute()
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, value); err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("Failed to cache result")
		}
	}
	return value
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeleteByPrefix(ctx, ""); err != nil {
		h.log.Warn().Err(err).Msg("Failed to invalidate result cache")
	}
}

// intParam reads a positive integer query parameter, falling back to def when absent.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// floatParam reads a finite float query parameter, falling back to def when absent.
func floatParam(r *http.Request, name string, def float64) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (h *Handler) respond(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": h.now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
