package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"satcoverage/internal/catalog"
	"satcoverage/internal/config"
	"satcoverage/internal/coverage/milp"
	"satcoverage/internal/logger"
	"satcoverage/internal/runlog"
	"satcoverage/internal/scheduler"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to scheduler configuration YAML file (required)")
	daemon := flag.Bool("daemon", false, "daemon mode: write a PID file (default /tmp/satcoverage_scheduler.pid); the process stays in the foreground")
	pidFile := flag.String("pid-file", "", "path to write the process ID to")
	logLevel := flag.String("log-level", "INFO", "DEBUG|INFO|WARNING|ERROR")
	validateOnly := flag.Bool("validate-only", false, "validate configuration and exit")
	flag.Parse()

	logger.Banner(version)
	if err := logger.SetLevel(*logLevel); err != nil {
		logger.Error("main", err.Error())
		os.Exit(1)
	}

	if *configPath == "" {
		logger.Error("main", "--config is required")
		os.Exit(1)
	}

	godotenv.Load() // optional: CDSE credentials may already be in the environment

	cfg, bearerToken, err := validateStartup(*configPath)
	if err != nil {
		logger.Error("main", err.Error())
		os.Exit(1)
	}

	if *validateOnly {
		logger.Success("main", fmt.Sprintf("configuration validation successful: %d jobs configured", len(cfg.Jobs)))
		return
	}

	if *daemon && *pidFile == "" {
		*pidFile = "/tmp/satcoverage_scheduler.pid"
	}
	if *pidFile != "" {
		if err := writePIDFile(*pidFile); err != nil {
			logger.Error("main", fmt.Sprintf("failed to write pid file: %v", err))
			os.Exit(1)
		}
		defer removePIDFile(*pidFile)
	}

	ledger, err := runlog.Open(filepath.Join(filepath.Dir(*configPath), "satcoverage.db"))
	if err != nil {
		logger.Error("main", err.Error())
		os.Exit(1)
	}
	defer ledger.Close()

	catalogClient := catalog.New(bearerToken)
	httpClient := &http.Client{Timeout: 10 * time.Minute}
	backend := milp.DefaultBackend()

	executor := newJobExecutor(catalogClient, httpClient, bearerToken, backend, ledger)

	sched, err := scheduler.New(cfg, executor.run)
	if err != nil {
		logger.Error("main", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sched.Start()
	logger.Section("scheduler running")
	logger.Success("main", "scheduler is running, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("main", "shutdown signal received, draining in-flight jobs")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("main", fmt.Sprintf("shutdown did not drain cleanly: %v", err))
	}
	logger.Success("main", "scheduler stopped")
}

// validateStartup checks everything that must hold before any job runs:
// env credentials, then config load+validate (which also checks AOI file
// presence), then the token exchange.
func validateStartup(configPath string) (*config.SchedulerConfig, string, error) {
	bearerToken := os.Getenv("CDSE_ACCESS_TOKEN")
	username := os.Getenv("CDSE_USERNAME")
	password := os.Getenv("CDSE_PASSWORD")
	if bearerToken == "" && (username == "" || password == "") {
		return nil, "", fmt.Errorf("CDSE credentials not found: set CDSE_ACCESS_TOKEN or CDSE_USERNAME+CDSE_PASSWORD")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("configuration invalid: %w", err)
	}
	logger.Success("main", fmt.Sprintf("configuration validated: %d jobs configured", len(cfg.Jobs)))
	for _, job := range cfg.Jobs {
		status := "enabled"
		if !job.EnabledOrDefault() {
			status = "disabled"
		}
		logger.Stats(job.Name, fmt.Sprintf("%s (%s)", job.Schedule.Type, status))
	}

	if bearerToken == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		bearerToken, err = catalog.Authenticate(ctx, username, password)
		if err != nil {
			return nil, "", fmt.Errorf("catalog authentication failed: %w", err)
		}
	}
	logger.Success("main", "obtained catalog access token")

	return cfg, bearerToken, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644)
}

func removePIDFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("main", fmt.Sprintf("failed to remove pid file %s: %v", path, err))
	}
}
