package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/cache"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/config"
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
)

type outcomeLedger struct {
	*ledger.Repository
}

// learningStore joins the ledger and learning repositories for analyzers
// that read outcomes and write derived records.
type learningStore struct {
	outcomeLedger
	*learning.Repository
}

// InitializeRepositories creates the repositories and the result cache
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.DB == nil || container.CacheDB == nil {
		return fmt.Errorf("container databases cannot be nil")
	}

	conn := container.DB.Conn()
	container.LedgerRepo = ledger.NewRepository(conn, log)
	container.LearningRepo = learning.NewRepository(conn, log)
	container.ResultCache = cache.NewResults(container.CacheDB.Conn(), cfg.CacheTTL, log)

	log.Info().Msg("Repositories initialized")
	return nil
}

// InitializeServices creates the analyzers and the HTTP handler
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.LedgerRepo == nil || container.LearningRepo == nil {
		return fmt.Errorf("repositories must be initialized first")
	}

	outcomes := container.LedgerRepo
	store := learningStore{
		outcomeLedger: outcomeLedger{Repository: container.LedgerRepo},
		Repository:    container.LearningRepo,
	}

	container.AnomalyDetector = anomaly.NewDetector(outcomes, log)
	container.BehavioralAnalyzer = behavioral.NewAnalyzer(container.LearningRepo, log)
	container.Calibrator = calibration.NewCalibrator(store, log)
	container.ConditionLearner = conditions.NewLearner(container.LearningRepo, log)
	container.CorrelationAnalyzer = correlation.NewAnalyzer(store, log)
	container.RiskAnalyzer = risk.NewAnalyzer(outcomes, log)
	container.StrategyLearner = strategy.NewLearner(store, container.RiskAnalyzer, log)
	container.TemporalLearner = temporal.NewLearner(container.LearningRepo, cfg.Location, log)
	container.Forecaster = forecast.NewForecaster(outcomes, cfg.Location, log)

	container.LearningHandler = learninghandlers.NewHandler(learninghandlers.Services{
		Ledger:      container.LedgerRepo,
		Anomalies:   container.AnomalyDetector,
		Behavior:    container.BehavioralAnalyzer,
		Calibrator:  container.Calibrator,
		Conditions:  container.ConditionLearner,
		Correlation: container.CorrelationAnalyzer,
		Risk:        container.RiskAnalyzer,
		Strategy:    container.StrategyLearner,
		Temporal:    container.TemporalLearner,
		Forecaster:  container.Forecaster,
	}, container.ResultCache, log)

	log.Info().Msg("Analyzers initialized")
	return nil
}
