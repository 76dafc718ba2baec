package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings. Environment variables win over the
// optional YAML config file, which wins over defaults. No credentials or
// remote identifiers are ever embedded as defaults.
type Config struct {
	ExportsDir     string
	WorkDir        string
	DBPath         string
	HTTPPort       string
	WorkerCount    int
	QueueSize      int
	JobTimeoutSec  int
	EnableWatcher  bool
	StrictConfig   bool
	StaleAfterDays int
	FreshLagDays   int
}

type fileConfig struct {
	ExportsDir     string `json:"exports_dir" yaml:"exports_dir"`
	WorkDir        string `json:"work_dir" yaml:"work_dir"`
	DBPath         string `json:"db_path" yaml:"db_path"`
	HTTPPort       string `json:"http_port" yaml:"http_port"`
	StaleAfterDays *int   `json:"stale_after_days" yaml:"stale_after_days"`
	FreshLagDays   *int   `json:"fresh_lag_days" yaml:"fresh_lag_days"`
}

const (
	defaultPort          = ":8000"
	defaultExportsDir    = "runtime/exports"
	defaultWorkDir       = "runtime/work"
	defaultDBFile        = "reports.db"
	defaultWorkerCount   = 2
	defaultQueueSize     = 16
	maxQueueSize         = 256
	defaultJobTimeoutSec = 120
	defaultStaleDays     = 7
	defaultFreshLagDays  = 1
)

// Load reads configuration from the environment, an optional .env file,
// and an optional YAML config file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		WorkerCount:    clampInt(getenvInt("WORKER_COUNT", defaultWorkerCount), 1, 16),
		QueueSize:      clampInt(getenvInt("QUEUE_SIZE", defaultQueueSize), 1, maxQueueSize),
		JobTimeoutSec:  defaultJobTimeoutSec,
		EnableWatcher:  getenvBool("ENABLE_WATCHER", true),
		StrictConfig:   getenvBool("STRICT_CONFIG", false),
		StaleAfterDays: defaultStaleDays,
		FreshLagDays:   defaultFreshLagDays,
	}

	configPath := getenv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil && !os.IsNotExist(fileErr) {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Printf("config load failed (%s): %v (using defaults)", configPath, fileErr)
	}

	cfg.ExportsDir = firstNonEmpty(os.Getenv("EXPORTS_DIR"), fileCfg.ExportsDir, defaultExportsDir)
	cfg.WorkDir = firstNonEmpty(os.Getenv("WORK_DIR"), fileCfg.WorkDir, defaultWorkDir)
	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), fileCfg.DBPath, filepath.Join(cfg.WorkDir, defaultDBFile))
	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	if fileCfg.StaleAfterDays != nil && *fileCfg.StaleAfterDays > 0 {
		cfg.StaleAfterDays = *fileCfg.StaleAfterDays
	}
	if fileCfg.FreshLagDays != nil && *fileCfg.FreshLagDays > 0 {
		cfg.FreshLagDays = *fileCfg.FreshLagDays
	}
	if v := getenvInt("STALE_AFTER_DAYS", 0); v > 0 {
		cfg.StaleAfterDays = v
	}
	if v := getenvInt("FRESH_LAG_DAYS", 0); v > 0 {
		cfg.FreshLagDays = v
	}
	if v := os.Getenv("JOB_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid JOB_TIMEOUT_SEC %q", v)
		}
		cfg.JobTimeoutSec = n
	}

	if err := validate(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("config validation failed: %v (continuing)", err)
	}

	log.Printf("config: exports_dir=%s work_dir=%s db=%s port=%s workers=%d",
		cfg.ExportsDir, cfg.WorkDir, cfg.DBPath, cfg.HTTPPort, cfg.WorkerCount)
	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.ExportsDir) == "" {
		return errors.New("EXPORTS_DIR is required")
	}
	if strings.TrimSpace(cfg.HTTPPort) == "" {
		return errors.New("HTTP_PORT is required")
	}
	if cfg.StaleAfterDays <= cfg.FreshLagDays {
		return fmt.Errorf("stale window (%dd) must exceed fresh lag (%dd)",
			cfg.StaleAfterDays, cfg.FreshLagDays)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Now returns a UTC timestamp truncated to seconds, for deterministic
// run records.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
