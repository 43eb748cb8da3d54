package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/calibration"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/correlation"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/modules/strategy"
)

// CorrelationAnalyzerInterface recomputes and persists pairwise correlations
type CorrelationAnalyzerInterface interface {
	AnalyzeCorrelations(ctx context.Context) []correlation.Correlation
}

// SequenceMinerInterface refreshes the stored pattern sequences
type SequenceMinerInterface interface {
	UpdateSequences(ctx context.Context) (int, error)
}

// CalibratorInterface recalibrates every pattern's threshold
type CalibratorInterface interface {
	CalibrateAll(ctx context.Context) calibration.Result
}

// PortfolioBuilderInterface builds and snapshots the best portfolio
type PortfolioBuilderInterface interface {
	BestPortfolio(ctx context.Context, maxPatterns int) strategy.Portfolio
}

// RetentionStoreInterface sweeps derived records older than a cutoff
type RetentionStoreInterface interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// CheckpointerInterface truncates the write-ahead log
type CheckpointerInterface interface {
	WALCheckpoint(ctx context.Context, mode string) error
}

// CacheInterface is the slice of the result cache jobs invalidate
type CacheInterface interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// invalidate drops cached responses so the next read sees refreshed records.
func invalidate(ctx context.Context, cache CacheInterface, log zerolog.Logger) {
	if cache == nil {
		return
	}
	if err := cache.DeleteByPrefix(ctx, ""); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate result cache")
	}
}

// CorrelationRefreshJob recomputes pattern correlations
type CorrelationRefreshJob struct {
	analyzer CorrelationAnalyzerInterface
	cache    CacheInterface
	log      zerolog.Logger
}

// NewCorrelationRefreshJob creates a new CorrelationRefreshJob
func NewCorrelationRefreshJob(analyzer CorrelationAnalyzerInterface, cache CacheInterface, log zerolog.Logger) *CorrelationRefreshJob {
	return &CorrelationRefreshJob{
		analyzer: analyzer,
		cache:    cache,
		log:      log.With().Str("job", "correlation_refresh").Logger(),
	}
}

// Name returns the job name
func (j *CorrelationRefreshJob) Name() string { return "correlation_refresh" }

// Run executes the correlation refresh
func (j *CorrelationRefreshJob) Run(ctx context.Context) error {
	correlations := j.analyzer.AnalyzeCorrelations(ctx)
	invalidate(ctx, j.cache, j.log)
	j.log.Info().Int("correlations", len(correlations)).Msg("Correlations refreshed")
	return ctx.Err()
}

// SequenceRefreshJob re-mines three-pattern sequences
type SequenceRefreshJob struct {
	miner SequenceMinerInterface
	cache CacheInterface
	log   zerolog.Logger
}

// NewSequenceRefreshJob creates a new SequenceRefreshJob
func NewSequenceRefreshJob(miner SequenceMinerInterface, cache CacheInterface, log zerolog.Logger) *SequenceRefreshJob {
	return &SequenceRefreshJob{
		miner: miner,
		cache: cache,
		log:   log.With().Str("job", "sequence_refresh").Logger(),
	}
}

// Name returns the job name
func (j *SequenceRefreshJob) Name() string { return "sequence_refresh" }

// Run executes the sequence refresh
func (j *SequenceRefreshJob) Run(ctx context.Context) error {
	n, err := j.miner.UpdateSequences(ctx)
	if err != nil {
		return fmt.Errorf("failed to update sequences: %w", err)
	}
	invalidate(ctx, j.cache, j.log)
	j.log.Info().Int("sequences", n).Msg("Sequences refreshed")
	return nil
}

// ThresholdCalibrationJob recalibrates detection thresholds
type ThresholdCalibrationJob struct {
	calibrator CalibratorInterface
	cache      CacheInterface
	log        zerolog.Logger
}

// NewThresholdCalibrationJob creates a new ThresholdCalibrationJob
func NewThresholdCalibrationJob(calibrator CalibratorInterface, cache CacheInterface, log zerolog.Logger) *ThresholdCalibrationJob {
	return &ThresholdCalibrationJob{
		calibrator: calibrator,
		cache:      cache,
		log:        log.With().Str("job", "threshold_calibration").Logger(),
	}
}

// Name returns the job name
func (j *ThresholdCalibrationJob) Name() string { return "threshold_calibration" }

// Run executes the calibration
func (j *ThresholdCalibrationJob) Run(ctx context.Context) error {
	result := j.calibrator.CalibrateAll(ctx)
	invalidate(ctx, j.cache, j.log)
	j.log.Info().
		Int("patterns", len(result.OptimalThresholds)).
		Float64("final_loss", result.FinalLoss).
		Str("status", string(result.ConvergenceStatus)).
		Msg("Thresholds calibrated")
	return ctx.Err()
}

// PortfolioSnapshotJob stores the current best portfolio
type PortfolioSnapshotJob struct {
	builder     PortfolioBuilderInterface
	maxPatterns int
	cache       CacheInterface
	log         zerolog.Logger
}

// NewPortfolioSnapshotJob creates a new PortfolioSnapshotJob
func NewPortfolioSnapshotJob(builder PortfolioBuilderInterface, cache CacheInterface, log zerolog.Logger) *PortfolioSnapshotJob {
	return &PortfolioSnapshotJob{
		builder:     builder,
		maxPatterns: strategy.DefaultMaxPatterns,
		cache:       cache,
		log:         log.With().Str("job", "portfolio_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *PortfolioSnapshotJob) Name() string { return "portfolio_snapshot" }

// Run executes the snapshot
func (j *PortfolioSnapshotJob) Run(ctx context.Context) error {
	portfolio := j.builder.BestPortfolio(ctx, j.maxPatterns)
	invalidate(ctx, j.cache, j.log)
	j.log.Info().
		Strs("patterns", portfolio.Patterns).
		Str("run_id", portfolio.RunID).
		Float64("sharpe", portfolio.SharpeRatio).
		Msg("Portfolio snapshot stored")
	return ctx.Err()
}

// RetentionSweepJob deletes stale derived records and checkpoints the WAL
type RetentionSweepJob struct {
	store        RetentionStoreInterface
	checkpointer CheckpointerInterface
	cache        CacheInterface
	retention    time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewRetentionSweepJob creates a new RetentionSweepJob
func NewRetentionSweepJob(
	store RetentionStoreInterface,
	checkpointer CheckpointerInterface,
	cache CacheInterface,
	retention time.Duration,
	log zerolog.Logger,
) *RetentionSweepJob {
	return &RetentionSweepJob{
		store:        store,
		checkpointer: checkpointer,
		cache:        cache,
		retention:    retention,
		now:          time.Now,
		log:          log.With().Str("job", "retention_sweep").Logger(),
	}
}

// Name returns the job name
func (j *RetentionSweepJob) Name() string { return "retention_sweep" }

// Run executes the sweep
func (j *RetentionSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)
	deleted, err := j.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to sweep records older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if j.cache != nil {
		if purged, err := j.cache.PurgeExpired(ctx); err != nil {
			j.log.Warn().Err(err).Msg("Failed to purge expired cache entries")
		} else {
			j.log.Debug().Int64("purged", purged).Msg("Expired cache entries purged")
		}
	}

	if j.checkpointer != nil {
		if err := j.checkpointer.WALCheckpoint(ctx, "TRUNCATE"); err != nil {
			return fmt.Errorf("failed to checkpoint after sweep: %w", err)
		}
	}

	j.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Retention sweep completed")
	return nil
}

// Schedule pairs a job with its cron spec
type Schedule struct {
	Spec string
	Job  Job
}

// Register adds every schedule to s, stopping at the first invalid spec
func Register(s *Scheduler, schedules []Schedule) error {
	for _, sc := range schedules {
		if err := s.AddJob(sc.Spec, sc.Job); err != nil {
			return fmt.Errorf("failed to register job %s: %w", sc.Job.Name(), err)
		}
	}
	return nil
}
