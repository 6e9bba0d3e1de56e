package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aescanero/dago-node-calculator/internal/api"
	"github.com/aescanero/dago-node-calculator/internal/calculator"
	"github.com/aescanero/dago-node-calculator/internal/config"
	"github.com/aescanero/dago-node-calculator/internal/eval/cel"
	"github.com/aescanero/dago-node-calculator/internal/eval/govaluate"
	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/plot"
	"github.com/aescanero/dago-node-calculator/internal/symbolic"
	"github.com/aescanero/dago-node-calculator/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting calculator worker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("worker_id", cfg.WorkerID),
	)

	// Log configuration (without sensitive data)
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	presets, err := config.LoadPresets(cfg.PresetsFile)
	if err != nil {
		logger.Fatal("failed to load presets", zap.Error(err))
	}

	// Initialize calculator
	backend, err := newBackend(cfg.NumericBackend)
	if err != nil {
		logger.Fatal("failed to initialize numeric backend", zap.Error(err))
	}
	renderer, err := plot.NewRenderer(plot.Options{
		Width:  cfg.PlotWidth,
		Height: cfg.PlotHeight,
		Format: plot.Format(cfg.PlotFormat),
	})
	if err != nil {
		logger.Fatal("failed to initialize plot renderer", zap.Error(err))
	}
	calc := calculator.NewCalculator(symbolic.NewParser(), backend, renderer, logger)
	logger.Info("calculator initialized", zap.String("backend", backend.Name()))

	// Start API server
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	apiServer, err := api.NewServer(cfg, calc, presets, logger)
	if err != nil {
		logger.Fatal("failed to create api server", zap.Error(err))
	}
	if err := apiServer.Start(); err != nil {
		logger.Fatal("failed to start api server", zap.Error(err))
	}

	// Initialize Redis client and stream worker
	var (
		redisClient *redis.Client
		pinger      worker.Pinger
		w           *worker.Worker
	)
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		// Test Redis connection
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		pinger = redisClient

		w = worker.NewWorker(cfg, redisClient, calc, logger)
		if err := w.Start(); err != nil {
			logger.Fatal("failed to start worker", zap.Error(err))
		}
	} else {
		logger.Info("redis disabled, stream worker not started")
	}

	// Start health server
	healthServer := worker.NewHealthServer(cfg.HealthPort, pinger, calc, logger)
	if err := healthServer.Start(); err != nil {
		logger.Fatal("failed to start health server", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("calculator worker running, press Ctrl+C to stop")
	<-sigChan

	logger.Info("shutdown signal received, stopping worker")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop API server
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop api server", zap.Error(err))
	}

	// Stop health server
	if err := healthServer.Stop(); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}

	if w != nil {
		// Stop worker
		if err := w.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop worker", zap.Error(err))
		}

		// Close Redis connection
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis connection", zap.Error(err))
		}
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, forcing exit")
	default:
		logger.Info("calculator worker stopped gracefully")
	}
}

// newBackend selects the numeric backend plots are sampled with
func newBackend(name string) (numeric.Backend, error) {
	switch name {
	case "native":
		return numeric.NewNative(), nil
	case "cel":
		return cel.NewEvaluator(calculator.Variable), nil
	case "govaluate":
		return govaluate.NewEvaluator(), nil
	}
	return nil, fmt.Errorf("unknown numeric backend %q", name)
}

// initLogger initializes the logger. When LOG_FILE is set, entries are
// also written to a rotated file.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch cfg.LogLevel {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	if cfg.LogFile == "" {
		return logger, nil
	}

	file := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapConfig.EncoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxAge:     cfg.LogMaxAgeDays,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   cfg.LogCompress,
		}),
		zapConfig.Level,
	)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, file)
	})), nil
}
