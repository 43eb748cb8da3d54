package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/config"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/scheduler"
)

// RegisterJobs creates the refresh jobs and schedules them
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.CorrelationAnalyzer == nil {
		return nil, fmt.Errorf("services must be initialized first")
	}

	jobs := &JobInstances{
		CorrelationRefresh:   scheduler.NewCorrelationRefreshJob(container.CorrelationAnalyzer, container.ResultCache, log),
		SequenceRefresh:      scheduler.NewSequenceRefreshJob(container.CorrelationAnalyzer, container.ResultCache, log),
		ThresholdCalibration: scheduler.NewThresholdCalibrationJob(container.Calibrator, container.ResultCache, log),
		PortfolioSnapshot:    scheduler.NewPortfolioSnapshotJob(container.StrategyLearner, container.ResultCache, log),
		RetentionSweep: scheduler.NewRetentionSweepJob(
			container.LearningRepo,
			container.DB,
			container.ResultCache,
			cfg.Retention(),
			log,
		),
	}

	container.Scheduler = scheduler.New(log)
	err := scheduler.Register(container.Scheduler, []scheduler.Schedule{
		{Spec: cfg.Schedules.Correlations, Job: jobs.CorrelationRefresh},
		{Spec: cfg.Schedules.Sequences, Job: jobs.SequenceRefresh},
		{Spec: cfg.Schedules.Calibration, Job: jobs.ThresholdCalibration},
		{Spec: cfg.Schedules.Portfolio, Job: jobs.PortfolioSnapshot},
		{Spec: cfg.Schedules.Retention, Job: jobs.RetentionSweep},
	})
	if err != nil {
		return nil, err
	}

	container.Jobs = jobs
	return jobs, nil
}
