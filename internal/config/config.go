// Package config aggregates the judge daemon's configuration, loaded from
// a JSON file plus environment-variable overrides, defaults-then-file-then-env.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
)

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	Exporter    string  `json:"exporter"`     // otlp-http, stdout
	Endpoint    string  `json:"endpoint"`     // localhost:4318
	ServiceName string  `json:"service_name"` // judge
	SampleRate  float64 `json:"sample_rate"`  // 1.0
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"` // judge
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
}

// Config is the central configuration struct for the judge daemon.
type Config struct {
	HTTPAddr      string `json:"http_addr"`
	InvokerAddr   string `json:"invoker_addr"`
	ToolchainsDir string `json:"toolchains_dir"`

	ProblemsDir       string `json:"problems_dir"`        // fs registry root, optional
	ProblemsMongoURI  string `json:"problems_mongo_uri"`  // mongo registry, optional
	ProblemsS3Bucket  string `json:"problems_s3_bucket"`  // s3 registry, optional
	ProblemsCacheDir  string `json:"problems_cache_dir"`
	CheckerLogsDir    string `json:"checker_logs_dir"` // optional

	AuditPostgresDSN string `json:"audit_postgres_dsn"` // optional, §11
	RedisAddr        string `json:"redis_addr"`         // optional, §11

	Logging  LoggingConfig  `json:"logging"`
	Tracing  TracingConfig  `json:"tracing"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// ErrNoProblemSource is returned by Validate when none of the problem
// registry sources are configured.
var ErrNoProblemSource = errors.New("config: at least one of problems_dir, problems_mongo_uri, problems_s3_bucket must be set")

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:         ":8080",
		InvokerAddr:      "http://localhost:9000",
		ToolchainsDir:    "/etc/jjs/toolchains",
		ProblemsCacheDir: "/var/cache/jjs/problems",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "otlp-http",
			Endpoint:    "localhost:4318",
			ServiceName: "judge",
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "judge",
		},
	}
}

// LoadFromFile loads configuration from a JSON file, starting from the
// defaults so unspecified fields keep their default value.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to cfg in place.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("JUDGE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("JUDGE_INVOKER_ADDR"); v != "" {
		cfg.InvokerAddr = v
	}
	if v := os.Getenv("JUDGE_TOOLCHAINS_DIR"); v != "" {
		cfg.ToolchainsDir = v
	}
	if v := os.Getenv("JUDGE_PROBLEMS_DIR"); v != "" {
		cfg.ProblemsDir = v
	}
	if v := os.Getenv("JUDGE_PROBLEMS_MONGO_URI"); v != "" {
		cfg.ProblemsMongoURI = v
	}
	if v := os.Getenv("JUDGE_PROBLEMS_S3_BUCKET"); v != "" {
		cfg.ProblemsS3Bucket = v
	}
	if v := os.Getenv("JUDGE_PROBLEMS_CACHE_DIR"); v != "" {
		cfg.ProblemsCacheDir = v
	}
	if v := os.Getenv("JUDGE_CHECKER_LOGS_DIR"); v != "" {
		cfg.CheckerLogsDir = v
	}
	if v := os.Getenv("JUDGE_AUDIT_POSTGRES_DSN"); v != "" {
		cfg.AuditPostgresDSN = v
	}
	if v := os.Getenv("JUDGE_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}

	if v := os.Getenv("JUDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("JUDGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("JUDGE_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("JUDGE_TRACING_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = v
	}
	if v := os.Getenv("JUDGE_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("JUDGE_TRACING_SERVICE_NAME"); v != "" {
		cfg.Tracing.ServiceName = v
	}
	if v := os.Getenv("JUDGE_TRACING_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRate = f
		}
	}

	if v := os.Getenv("JUDGE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("JUDGE_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}
}

// Validate checks the invariants Load cannot enforce structurally: at
// least one problem registry source must be configured.
func (c *Config) Validate() error {
	if c.ProblemsDir == "" && c.ProblemsMongoURI == "" && c.ProblemsS3Bucket == "" {
		return ErrNoProblemSource
	}
	return nil
}

// Load reads path (if non-empty) and applies environment overrides on top.
func Load(path string) (*Config, error) {
	var cfg *Config
	var err error
	if path != "" {
		cfg, err = LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = DefaultConfig()
	}
	LoadFromEnv(cfg)
	return cfg, nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
