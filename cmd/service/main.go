package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/prediction-service/internal/artifact"
	"github.com/kjstillabower/prediction-service/internal/config"
	httphandler "github.com/kjstillabower/prediction-service/internal/http"
	"github.com/kjstillabower/prediction-service/internal/lifecycle"
	"github.com/kjstillabower/prediction-service/internal/observability"
	"github.com/kjstillabower/prediction-service/internal/service"
	"github.com/kjstillabower/prediction-service/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(observability.LogOptions{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	schema, err := validation.Lookup(cfg.ModelSchema)
	if err != nil {
		logger.Fatal("schema", zap.Error(err))
	}

	// Artifacts are loaded once; the process never serves without them.
	arts, err := artifact.Load(artifact.Paths{
		Dir:        cfg.ArtifactDir,
		ScalerFile: cfg.ScalerFile,
		ModelFile:  cfg.ModelFile,
	}, schema)
	if err != nil {
		logger.Fatal("artifacts", zap.Error(err))
	}
	logger.Info("artifacts loaded",
		zap.String("schema", schema.Name),
		zap.String("scaler", arts.Scaler.Kind()),
		zap.String("scaler_path", arts.ScalerPath),
		zap.String("model", arts.Model.Kind()),
		zap.String("model_path", arts.ModelPath),
		zap.Int("features", arts.Scaler.NumFeatures()))
	observability.SetModelInfo(schema.Name, arts.Scaler.Kind(), arts.Model.Kind())

	predictionService := service.NewPredictionService(arts)

	healthConfig := &httphandler.HealthConfig{
		ServiceName:      cfg.ServiceName,
		Title:            cfg.ServiceTitle,
		Description:      cfg.ServiceDescription,
		Version:          cfg.Version,
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}
	handler := httphandler.NewHandler(predictionService, healthConfig, logger, cfg.MaxBodyBytes)
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		CORS:           httphandler.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lifecycle.SetReady(true)
	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort), zap.String("schema", schema.Name))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.InFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}
