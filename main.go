package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/thushan/qlite/internal/app"
	"github.com/thushan/qlite/internal/config"
	"github.com/thushan/qlite/internal/env"
	"github.com/thushan/qlite/internal/logger"
	"github.com/thushan/qlite/internal/version"
	"github.com/thushan/qlite/pkg/format"
	"github.com/thushan/qlite/pkg/nerdstats"
	"github.com/thushan/qlite/pkg/profiler"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)

	flags := pflag.NewFlagSet(version.Name, pflag.ContinueOnError)
	config.RegisterFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if help, _ := flags.GetBool("help"); help {
		fmt.Fprintf(os.Stdout, "Usage: %s [options]\n\n%s", version.Name, flags.FlagUsages())
		os.Exit(0)
	}
	if showVersion, _ := flags.GetBool("version"); showVersion {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	}
	version.PrintVersionInfo(false, vlog)

	lcfg := buildLoggerConfig()
	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(lcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid())

	cfg, err := config.Load(flags)
	if err != nil {
		logger.FatalWithLogger(logInstance, "Failed to load configuration", "error", err)
	}
	if cfg.Filename != "" {
		styledLogger.Info("Loaded configuration", "file", cfg.Filename)
	}

	if addr := cfg.Engineering.ProfilerAddress; addr != "" {
		prof, err := profiler.Start(addr)
		if err != nil {
			styledLogger.Warn("Unable to start profiler", "error", err)
		} else {
			styledLogger.Info("Profiler listening", "addr", prof.Addr())
			defer func() {
				stopCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
				defer stop()
				_ = prof.Stop(stopCtx)
			}()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	application, err := app.New(ctx, startTime, cfg, styledLogger)
	if err != nil {
		logger.FatalWithLogger(logInstance, "Failed to create application", "error", err)
	}

	if err := application.Start(ctx); err != nil {
		logger.FatalWithLogger(logInstance, "Failed to start application", "error", err)
	}

	select {
	case <-ctx.Done():
	case err := <-application.Errors():
		styledLogger.Error("Gateway failed", "error", err)
	}

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	if cfg.Engineering.ShowNerdStats {
		limits, _ := cfg.Limits()
		reportProcessStats(styledLogger, startTime, limits.MaxConnections)
	}

	styledLogger.Info("Q-Lite has shutdown")
}

func reportProcessStats(logger *logger.StyledLogger, startTime time.Time, maxConns int) {
	runtime.GC()

	stats := nerdstats.Snapshot(startTime)

	logger.Info("Process Memory Stats",
		"heap_alloc", format.Bytes(stats.HeapAlloc),
		"heap_sys", format.Bytes(stats.HeapSys),
		"heap_inuse", format.Bytes(stats.HeapInuse),
		"stack_inuse", format.Bytes(stats.StackInuse),
		"total_alloc", format.Bytes(stats.TotalAlloc),
		"memory_pressure", stats.MemoryPressure(),
	)

	if stats.NumGC > 0 {
		logger.Info("Garbage Collection Stats",
			"num_gc_cycles", stats.NumGC,
			"total_gc_time", format.Duration(stats.TotalGCTime),
			"avg_gc_pause", stats.AverageGCPause(),
			"gc_cpu_fraction", format.Percentage(stats.GCCPUFraction*100),
		)
	}

	logger.Info("Runtime Stats",
		"uptime", format.Duration(stats.Uptime),
		"goroutines", stats.NumGoroutines,
		"goroutine_health", stats.GoroutineHealth(maxConns),
		"go_version", stats.GoVersion,
		"gomaxprocs", stats.GOMAXPROCS,
	)
}

// buildLoggerConfig creates logger config from environment variables with defaults
func buildLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      env.GetEnvOrDefault("QLITE_LOG_LEVEL", "info"),
		FileOutput: env.GetEnvBoolOrDefault("QLITE_FILE_OUTPUT", false),
		LogDir:     env.GetEnvOrDefault("QLITE_LOG_DIR", "./logs"),
		MaxSize:    env.GetEnvIntOrDefault("QLITE_MAX_SIZE", 10),
		MaxBackups: env.GetEnvIntOrDefault("QLITE_MAX_BACKUPS", 3),
		MaxAge:     env.GetEnvIntOrDefault("QLITE_MAX_AGE", 14),
		Theme:      env.GetEnvOrDefault("QLITE_THEME", "default"),
	}
}
