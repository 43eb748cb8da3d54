// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/cache"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/database"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/anomaly"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/behavioral"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/calibration"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/conditions"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/correlation"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/forecast"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/learning"
	learninghandlers "github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/learning/handlers"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/ledger"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/risk"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/strategy"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/temporal"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and is the single source of truth for service instances.
type Container struct {
	// Databases
	DB      *database.DB
	CacheDB *database.DB

	// Repositories
	LedgerRepo   *ledger.Repository
	LearningRepo *learning.Repository
	ResultCache  *cache.Results

	// Analyzers
	AnomalyDetector     *anomaly.Detector
	BehavioralAnalyzer  *behavioral.Analyzer
	Calibrator          *calibration.Calibrator
	ConditionLearner    *conditions.Learner
	CorrelationAnalyzer *correlation.Analyzer
	RiskAnalyzer        *risk.Analyzer
	StrategyLearner     *strategy.Learner
	TemporalLearner     *temporal.Learner
	Forecaster          *forecast.Forecaster

	// HTTP
	LearningHandler *learninghandlers.Handler

	// Background jobs
	Scheduler *scheduler.Scheduler
	Jobs      *JobInstances
}

// JobInstances holds the refresh jobs for scheduling and manual triggering
type JobInstances struct {
	CorrelationRefresh   *scheduler.CorrelationRefreshJob
	SequenceRefresh      *scheduler.SequenceRefreshJob
	ThresholdCalibration *scheduler.ThresholdCalibrationJob
	PortfolioSnapshot    *scheduler.PortfolioSnapshotJob
	RetentionSweep       *scheduler.RetentionSweepJob
}

// All lists the jobs in registration order
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{
		j.CorrelationRefresh,
		j.SequenceRefresh,
		j.ThresholdCalibration,
		j.PortfolioSnapshot,
		j.RetentionSweep,
	}
}

// Close releases the databases
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var firstErr error
	for _, db := range []*database.DB{c.CacheDB, c.DB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
