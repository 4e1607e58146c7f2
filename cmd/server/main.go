package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/knapsack/internal/application"
	"github.com/eugenenazirov/knapsack/internal/config"
	"github.com/eugenenazirov/knapsack/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("knapsack", "Knapsack service - maximises total value of items under a weight budget")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	widthFlag := kingpinApp.Flag("int-width", "Signed integer width in bits for values, weights and totals (8, 16, 32, 64)").Default("0").Int()
	maxCapacityFlag := kingpinApp.Flag("max-capacity", "Largest accepted capacity").Default("0").Int64()
	maxCellsFlag := kingpinApp.Flag("max-table-cells", "Ceiling on value table cells per request").Default("0").Int64()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed per client (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	cfg, err := config.Load(buildOverrides(*configFile, *port, *widthFlag, *maxCapacityFlag, *maxCellsFlag,
		*rateLimitRPSFlag, *rateLimitBurstFlag, *logLevel))
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	logger.Info("solver limits",
		zap.Int("width", cfg.Limits.Width),
		zap.Int64("max_capacity", cfg.Limits.MaxCapacity),
		zap.Int64("max_cells", cfg.Limits.MaxCells),
	)

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

// buildOverrides turns flag values into config overrides. Zero or negative
// numeric flags and empty strings mean "not set".
func buildOverrides(configFile, port string, width int, maxCapacity, maxCells int64, rps float64, burst int, logLevel string) *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: configFile,
	}

	if port != "" {
		overrides.Port = &port
	}

	if width > 0 {
		overrides.Width = &width
	}

	if maxCapacity > 0 {
		overrides.MaxCapacity = &maxCapacity
	}

	if maxCells > 0 {
		overrides.MaxCells = &maxCells
	}

	if rps >= 0 {
		overrides.RateLimitRPS = &rps
	}

	if burst >= 0 {
		overrides.RateLimitBurst = &burst
	}

	if logLevel != "" {
		overrides.LogLevel = &logLevel
	}

	return overrides
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
