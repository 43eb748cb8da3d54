package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all learning routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/learning", func(r chi.Router) {
		r.Post("/outcomes", h.HandleRecordOutcome)
		r.Post("/detections", h.HandleRecordDetection)
		r.Post("/behavioral-events", h.HandleRecordBehavioralEvent)

		r.Route("/anomalies", func(r chi.Router) {
			r.Get("/", h.HandleGetAnomalies)
			r.Get("/shifts", h.HandleGetPerformanceShifts)
			r.Get("/attention", h.HandleGetAttention)
		})

		r.Route("/behavior", func(r chi.Router) {
			r.Get("/overtrading", h.HandleGetOvertrading)
			r.Get("/revenge", h.HandleGetRevenge)
			r.Get("/session-length", h.HandleGetSessionLength)
			r.Get("/warnings", h.HandleGetBehavioralWarnings)
		})

		r.Get("/calibration", h.HandleGetCalibration)
		r.Get("/calibration/{pattern}", h.HandleGetPatternCalibration)
		r.Get("/calibration/{pattern}/step", h.HandleGetGradientStep)

		r.Route("/conditions", func(r chi.Router) {
			r.Post("/outcomes", h.HandleRecordConditionOutcome)
			r.Get("/current", h.HandleGetCurrentOptimal)
			r.Get("/{condition}/best", h.HandleGetBestForCondition)
		})

		r.Get("/correlations", h.HandleGetCorrelations)
		r.Get("/correlations/top", h.HandleGetTopCorrelations)
		r.Get("/sequences", h.HandleGetSequences)

		r.Get("/risk/best", h.HandleGetBestRiskAdjusted)

		r.Route("/strategy", func(r chi.Router) {
			r.Get("/portfolio", h.HandleGetPortfolio)
			r.Get("/metrics", h.HandleGetPortfolioMetrics)
			r.Get("/diversification", h.HandleGetDiversification)
			r.Get("/top", h.HandleGetTopStrategies)
		})

		r.Route("/patterns/{pattern}", func(r chi.Router) {
			r.Get("/conditions", h.HandleGetConditionAnalysis)
			r.Get("/next", h.HandleGetNextPatterns)
			r.Get("/risk", h.HandleGetRiskMetrics)
			r.Get("/complementary", h.HandleGetComplementary)
			r.Get("/temporal", h.HandleGetTemporal)
			r.Get("/temporal/hours", h.HandleGetBestHours)
			r.Get("/outlier", h.HandleGetOutlier)
			r.Get("/forecast", h.HandleGetForecast)
		})

		r.Get("/warnings", h.HandleGetTrendWarnings)
	})
}
