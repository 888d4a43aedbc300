// Package config loads the detective service settings from an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the detective service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Vault    VaultConfig    `yaml:"vault"`
	History  HistoryConfig  `yaml:"history"`
	Recorder RecorderConfig `yaml:"recorder"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	GatewayKey string `yaml:"gateway_key"`
}

// LLMConfig points at an OpenAI-compatible provider.
type LLMConfig struct {
	ProviderURL    string `yaml:"provider_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxAttempts    int    `yaml:"max_attempts"`
}

// VaultConfig enables S3-compatible storage of raw model traffic.
// An empty Endpoint disables the vault.
type VaultConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// HistoryConfig locates the SQLite history database.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// RecorderConfig is where run records are written.
type RecorderConfig struct {
	Dir string `yaml:"dir"`
}

// TracingConfig enables OTLP/gRPC export. An empty Endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path (if any), applies environment overrides
// and fills in defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Addr, "LISTEN_ADDR")
	setString(&cfg.Server.GatewayKey, "GATEWAY_KEY")

	setString(&cfg.LLM.ProviderURL, "PROVIDER_URL")
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if err := setInt(&cfg.LLM.TimeoutSeconds, "LLM_TIMEOUT_SECONDS"); err != nil {
		return err
	}
	if err := setInt(&cfg.LLM.MaxAttempts, "LLM_MAX_ATTEMPTS"); err != nil {
		return err
	}

	setString(&cfg.Vault.Endpoint, "VAULT_ENDPOINT")
	setString(&cfg.Vault.AccessKey, "VAULT_ACCESS_KEY")
	setString(&cfg.Vault.SecretKey, "VAULT_SECRET_KEY")
	setString(&cfg.Vault.Bucket, "VAULT_BUCKET")
	if v := os.Getenv("VAULT_USE_SSL"); v != "" {
		cfg.Vault.UseSSL = v == "true"
	}

	setString(&cfg.History.Path, "HISTORY_DB")
	setString(&cfg.Recorder.Dir, "RUNS_DIR")
	setString(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Tracing.ServiceName, "OTEL_SERVICE_NAME")
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.LLM.ProviderURL == "" {
		cfg.LLM.ProviderURL = "https://api.openai.com"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 5
	}
	if cfg.Vault.AccessKey == "" {
		cfg.Vault.AccessKey = "minioadmin"
	}
	if cfg.Vault.SecretKey == "" {
		cfg.Vault.SecretKey = "minioadmin"
	}
	if cfg.Vault.Bucket == "" {
		cfg.Vault.Bucket = "detective-runs"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "./history.db"
	}
	if cfg.Recorder.Dir == "" {
		cfg.Recorder.Dir = "./runs"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "plagiarism-detective"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}
