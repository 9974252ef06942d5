package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
)

const (
	configDirPathEnv     = "MW_CONFIG_DIR_PATH"
	defaultConfigDirName = "mwctl"
)

// Config is read from the environment, after an optional .env file in the
// config directory.
type Config struct {
	APIKey          string        `env:"MW_API_KEY"`
	Chain           string        `env:"MW_CHAIN" env-default:"solana"`
	Network         string        `env:"MW_NETWORK" env-default:"devnet"`
	SecretAccessKey string        `env:"MW_SECRET_ACCESS_KEY"`
	Mode            string        `env:"MW_MODE"`
	AuthBaseURL     string        `env:"MW_AUTH_BASE_URL"`
	APIBaseURL      string        `env:"MW_API_BASE_URL"`
	RelayURL        string        `env:"MW_RELAY_URL"`
	LoginTimeout    time.Duration `env:"MW_LOGIN_TIMEOUT" env-default:"5m"`
	RateLimit       float64       `env:"MW_RATE_LIMIT" env-default:"0"`

	// TokenDB is the sqlite file holding the refresh token. RedisURL, when
	// set, moves tokens to redis instead.
	TokenDB  string `env:"MW_TOKEN_DB"`
	RedisURL string `env:"MW_REDIS_URL"`

	EventsRedisURL string `env:"MW_EVENTS_REDIS_URL"`
	EventsTopic    string `env:"MW_EVENTS_TOPIC"`
	MetricsAddr    string `env:"MW_METRICS_ADDR"`

	Log log.Config

	configDir string
}

// LoadConfig builds configuration from environment variables.
func LoadConfig() (*Config, error) {
	configDir, err := configDirPath()
	if err != nil {
		return nil, err
	}

	// A missing .env file is fine; the environment alone may be enough.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.configDir = configDir
	if cfg.TokenDB == "" {
		cfg.TokenDB = filepath.Join(configDir, "tokens.db")
	}
	return &cfg, nil
}

func configDirPath() (string, error) {
	if dir := os.Getenv(configDirPathEnv); dir != "" {
		return dir, nil
	}
	userConfDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfDir, defaultConfigDirName), nil
}
