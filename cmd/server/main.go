// Package main is the entry point for the QuantraVision learning service.
// It records pattern outcomes, serves the analytics API and runs the
// periodic refresh jobs that keep derived records current.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/config"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/di"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/server"
	"github.com/Lamont-Labs/QuantraVision-sub001/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run every refresh job once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("timezone", cfg.Timezone).
		Msg("Starting QuantraVision learning service")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	if *once {
		failed := 0
		for _, job := range container.Jobs.All() {
			if err := container.Scheduler.RunNow(job); err != nil {
				failed++
			}
		}
		if failed > 0 {
			log.Error().Int("failed", failed).Msg("Refresh run finished with failures")
			container.Close()
			os.Exit(1)
		}
		log.Info().Msg("Refresh run finished")
		return
	}

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		DB:        container.DB,
		Modules:   []server.RouteRegistrar{container.LearningHandler},
		Scheduler: container.Scheduler,
		Jobs:      container.Jobs.All(),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()
	log.Info().Msg("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	container.Scheduler.Stop()
	log.Info().Msg("Scheduler stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
