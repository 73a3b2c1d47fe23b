package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var frontierEnv = []string{
	"FRONTIER_PORT", "FRONTIER_METRICS_PORT", "FRONTIER_ADMIN_TOKEN",
	"FRONTIER_DATABASE_URL", "FRONTIER_HERMES_URL", "FRONTIER_COMPARATOR_URL",
	"FRONTIER_COMPARATOR_TOKEN", "FRONTIER_COMPARATOR_RATE", "FRONTIER_COMPARATOR_CONCURRENCY",
	"FRONTIER_SEARCH_MAX_ITERATIONS", "FRONTIER_SEARCH_MAX_TIME_MS", "FRONTIER_SEARCH_ACTIONS", "FRONTIER_PLOT_DIR",
	"FRONTIER_STATS_INTERVAL_MS", "FRONTIER_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range frontierEnv {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Comparator.URL != "" {
		t.Errorf("expected comparator disabled by default, got %s", cfg.Comparator.URL)
	}
	if cfg.Comparator.Concurrency != 4 {
		t.Errorf("expected comparator concurrency 4, got %d", cfg.Comparator.Concurrency)
	}
	if cfg.Search.MaxIterations != 100 {
		t.Errorf("expected 100 iterations, got %d", cfg.Search.MaxIterations)
	}
	if math.Abs(cfg.Search.ExplorationConstant-math.Sqrt2) > 1e-12 {
		t.Errorf("expected exploration constant sqrt(2), got %f", cfg.Search.ExplorationConstant)
	}
	if cfg.Search.ChildrenMultiplier != 1.0 {
		t.Errorf("expected children multiplier 1.0, got %f", cfg.Search.ChildrenMultiplier)
	}
	if cfg.Frontier.PlotDir != "" {
		t.Errorf("expected plotting disabled by default, got %s", cfg.Frontier.PlotDir)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	// Duration helpers
	if cfg.ComparatorTimeout() != time.Minute {
		t.Errorf("expected ComparatorTimeout 1m, got %v", cfg.ComparatorTimeout())
	}
	if cfg.SearchMaxTime() != 0 {
		t.Errorf("expected no search time limit, got %v", cfg.SearchMaxTime())
	}
	if cfg.StatsInterval() != 30*time.Second {
		t.Errorf("expected StatsInterval 30s, got %v", cfg.StatsInterval())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FRONTIER_PORT", "9000")
	t.Setenv("FRONTIER_METRICS_PORT", "9001")
	t.Setenv("FRONTIER_ADMIN_TOKEN", "secret-token")
	t.Setenv("FRONTIER_DATABASE_URL", "postgres://localhost/frontier_test")
	t.Setenv("FRONTIER_HERMES_URL", "nats://nats:4222")
	t.Setenv("FRONTIER_COMPARATOR_URL", "http://judge:8080")
	t.Setenv("FRONTIER_COMPARATOR_TOKEN", "judge-secret")
	t.Setenv("FRONTIER_COMPARATOR_RATE", "2.5")
	t.Setenv("FRONTIER_COMPARATOR_CONCURRENCY", "8")
	t.Setenv("FRONTIER_SEARCH_MAX_ITERATIONS", "40")
	t.Setenv("FRONTIER_SEARCH_MAX_TIME_MS", "1500")
	t.Setenv("FRONTIER_SEARCH_ACTIONS", "decompose, compress,,rewrite")
	t.Setenv("FRONTIER_PLOT_DIR", "/tmp/plots")
	t.Setenv("FRONTIER_STATS_INTERVAL_MS", "1000")
	t.Setenv("FRONTIER_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/frontier_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Comparator.URL != "http://judge:8080" {
		t.Errorf("expected comparator URL, got '%s'", cfg.Comparator.URL)
	}
	if cfg.Comparator.Token != "judge-secret" {
		t.Errorf("expected comparator token, got '%s'", cfg.Comparator.Token)
	}
	if cfg.Comparator.RatePerSecond != 2.5 {
		t.Errorf("expected rate 2.5, got %f", cfg.Comparator.RatePerSecond)
	}
	if cfg.Comparator.Concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", cfg.Comparator.Concurrency)
	}
	if cfg.Search.MaxIterations != 40 {
		t.Errorf("expected 40 iterations, got %d", cfg.Search.MaxIterations)
	}
	if cfg.SearchMaxTime() != 1500*time.Millisecond {
		t.Errorf("expected 1.5s search budget, got %s", cfg.SearchMaxTime())
	}
	want := []string{"decompose", "compress", "rewrite"}
	if len(cfg.Search.Actions) != len(want) {
		t.Fatalf("expected actions %v, got %v", want, cfg.Search.Actions)
	}
	for i := range want {
		if cfg.Search.Actions[i] != want[i] {
			t.Errorf("action %d: expected %s, got %s", i, want[i], cfg.Search.Actions[i])
		}
	}
	if cfg.Frontier.PlotDir != "/tmp/plots" {
		t.Errorf("expected plot dir, got '%s'", cfg.Frontier.PlotDir)
	}
	if cfg.StatsInterval() != time.Second {
		t.Errorf("expected stats interval 1s, got %v", cfg.StatsInterval())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "frontier.yaml")
	data := []byte(`
server:
  port: 7000
comparator:
  url: http://judge:8080
  timeout_ms: 5000
search:
  max_iterations: 12
  max_time_ms: 90000
  actions: [decompose, compress]
frontier:
  plot_dir: /var/frontier/plots
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port to survive, got %d", cfg.Server.MetricsPort)
	}
	if cfg.ComparatorTimeout() != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.ComparatorTimeout())
	}
	if cfg.SearchMaxTime() != 90*time.Second {
		t.Errorf("expected max time 90s, got %v", cfg.SearchMaxTime())
	}
	if len(cfg.Search.Actions) != 2 {
		t.Errorf("expected 2 actions, got %v", cfg.Search.Actions)
	}
	if cfg.Frontier.PlotDir != "/var/frontier/plots" {
		t.Errorf("expected plot dir, got %s", cfg.Frontier.PlotDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
