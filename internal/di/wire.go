package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Open and migrate the learning and cache databases
// 2. Initialize repositories and the result cache
// 3. Initialize analyzers and the HTTP handler
// 4. Register jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := InitializeRepositories(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if _, err := RegisterJobs(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}
