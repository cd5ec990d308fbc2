package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App     AppConfig     `toml:"app"`
	Server  ServerConfig  `toml:"server"`
	Poll    PollConfig    `toml:"poll"`
	Cache   CacheConfig   `toml:"cache"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

type AppConfig struct {
	Name string `toml:"name"`
	Env  string `toml:"env"`
}

type ServerConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type PollConfig struct {
	IntervalMillis  int `toml:"interval_ms"`
	PassiveBudget   int `toml:"passive_budget"`
	ReprocessBudget int `toml:"reprocess_budget"`
}

type CacheConfig struct {
	ChunkTTLSeconds int `toml:"chunk_ttl_seconds"`
}

type StorageConfig struct {
	CredentialsFile string `toml:"credentials_file"`
}

type LogConfig struct {
	File    string `toml:"file"`
	Console bool   `toml:"console"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMillis) * time.Millisecond
}

func (c *Config) ChunkTTL() time.Duration {
	return time.Duration(c.Cache.ChunkTTLSeconds) * time.Second
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "pdfchat",
			Env:  "dev",
		},
		Server: ServerConfig{
			BaseURL:        "http://127.0.0.1:8000",
			TimeoutSeconds: 30,
		},
		Poll: PollConfig{
			IntervalMillis:  2000,
			PassiveBudget:   30,
			ReprocessBudget: 12,
		},
		Cache: CacheConfig{
			ChunkTTLSeconds: 300,
		},
		Storage: StorageConfig{
			CredentialsFile: defaultUserPath("credentials.json"),
		},
		Log: LogConfig{
			File:    defaultUserPath("pdfchat.log"),
			Console: false,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)

	cfg.Server.BaseURL = getEnv("PDFCHAT_BASE_URL", cfg.Server.BaseURL)
	cfg.Server.TimeoutSeconds = getEnvAsInt("PDFCHAT_TIMEOUT_SECONDS", cfg.Server.TimeoutSeconds)

	cfg.Poll.IntervalMillis = getEnvAsInt("PDFCHAT_POLL_INTERVAL_MS", cfg.Poll.IntervalMillis)
	cfg.Poll.PassiveBudget = getEnvAsInt("PDFCHAT_POLL_PASSIVE_BUDGET", cfg.Poll.PassiveBudget)
	cfg.Poll.ReprocessBudget = getEnvAsInt("PDFCHAT_POLL_REPROCESS_BUDGET", cfg.Poll.ReprocessBudget)

	cfg.Cache.ChunkTTLSeconds = getEnvAsInt("PDFCHAT_CHUNK_TTL_SECONDS", cfg.Cache.ChunkTTLSeconds)

	cfg.Storage.CredentialsFile = getEnv("PDFCHAT_CREDENTIALS_FILE", cfg.Storage.CredentialsFile)

	cfg.Log.File = getEnv("PDFCHAT_LOG_FILE", cfg.Log.File)
	if raw, ok := os.LookupEnv("PDFCHAT_LOG_CONSOLE"); ok {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			cfg.Log.Console = parsed
		}
	}
}

func defaultUserPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pdfchat", name)
	}
	return filepath.Join(home, ".pdfchat", name)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
