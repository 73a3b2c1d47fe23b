package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Hermes     HermesConfig     `yaml:"hermes"`
	Comparator ComparatorConfig `yaml:"comparator"`
	Search     SearchConfig     `yaml:"search"`
	Frontier   FrontierConfig   `yaml:"frontier"`
	Stats      StatsConfig      `yaml:"stats"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

// ComparatorConfig points at the pairwise judge service. An empty URL disables
// estimation; plans without an accuracy then get the baseline.
type ComparatorConfig struct {
	URL           string  `yaml:"url"`
	Token         string  `yaml:"token"`
	TimeoutMs     int     `yaml:"timeout_ms"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Concurrency   int     `yaml:"concurrency"`
}

type SearchConfig struct {
	MaxIterations       int      `yaml:"max_iterations"`
	MaxTimeMs           int      `yaml:"max_time_ms"`
	ExplorationConstant float64  `yaml:"exploration_constant"`
	ChildrenMultiplier  float64  `yaml:"children_multiplier"`
	Actions             []string `yaml:"actions"`
}

type FrontierConfig struct {
	PlotDir string `yaml:"plot_dir"`
	TreeDir string `yaml:"tree_dir"`
}

type StatsConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) ComparatorTimeout() time.Duration {
	return time.Duration(c.Comparator.TimeoutMs) * time.Millisecond
}

func (c *Config) SearchMaxTime() time.Duration {
	return time.Duration(c.Search.MaxTimeMs) * time.Millisecond
}

func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Stats.IntervalMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Comparator: ComparatorConfig{
			TimeoutMs:     60000,
			RatePerSecond: 5,
			Concurrency:   4,
		},
		Search: SearchConfig{
			MaxIterations:       100,
			MaxTimeMs:           0,
			ExplorationConstant: 1.4142135623730951,
			ChildrenMultiplier:  1.0,
		},
		Stats: StatsConfig{
			IntervalMs: 30000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FRONTIER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("FRONTIER_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("FRONTIER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("FRONTIER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("FRONTIER_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("FRONTIER_COMPARATOR_URL"); v != "" {
		cfg.Comparator.URL = v
	}
	if v := os.Getenv("FRONTIER_COMPARATOR_TOKEN"); v != "" {
		cfg.Comparator.Token = v
	}
	if v := os.Getenv("FRONTIER_COMPARATOR_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Comparator.RatePerSecond = f
		}
	}
	if v := os.Getenv("FRONTIER_COMPARATOR_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Comparator.Concurrency = n
		}
	}
	if v := os.Getenv("FRONTIER_SEARCH_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxIterations = n
		}
	}
	if v := os.Getenv("FRONTIER_SEARCH_MAX_TIME_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxTimeMs = n
		}
	}
	if v := os.Getenv("FRONTIER_SEARCH_ACTIONS"); v != "" {
		cfg.Search.Actions = splitList(v)
	}
	if v := os.Getenv("FRONTIER_PLOT_DIR"); v != "" {
		cfg.Frontier.PlotDir = v
	}
	if v := os.Getenv("FRONTIER_STATS_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Stats.IntervalMs = n
		}
	}
	if v := os.Getenv("FRONTIER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
