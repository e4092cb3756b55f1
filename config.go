package latitude

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL     = "https://gateway.latitude.so"
	DefaultAPIVersion  = "v3"
	DefaultVersionUUID = "live"
)

type Config struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	APIVersion string `yaml:"api_version"`

	// ProjectID and VersionUUID are used by Run, GetPrompt and CreateLog when
	// the call does not override them.
	ProjectID   int    `yaml:"project_id"`
	VersionUUID string `yaml:"version_uuid"`

	Headers map[string]string `yaml:"headers"`

	// MaxRetries is the number of extra attempts on 5xx responses. Zero means
	// the default (3); a negative value disables retries.
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Timeout bounds synchronous calls. Streams are bounded only by the
	// caller's context and HTTPClient.
	Timeout time.Duration `yaml:"timeout"`

	HTTPClient      *http.Client    `yaml:"-"`
	Logger          *zap.Logger     `yaml:"-"`
	Instrumentation Instrumentation `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		APIVersion:  DefaultAPIVersion,
		VersionUUID: DefaultVersionUUID,
		MaxRetries:  3,
		RetryDelay:  time.Second,
	}
}

func normalizeConfig(cfg Config) (Config, error) {
	if err := mergo.Merge(&cfg, defaultConfig()); err != nil {
		return cfg, fmt.Errorf("apply config defaults: %w", err)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file. ${VAR} references are expanded from
// the environment before parsing, so secrets can stay out of the file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigFromEnv builds a Config from LATITUDE_* variables. The given dotenv
// files (default ".env") are loaded first when present; variables already set
// in the environment win.
func ConfigFromEnv(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		APIKey:      os.Getenv("LATITUDE_API_KEY"),
		BaseURL:     os.Getenv("LATITUDE_BASE_URL"),
		APIVersion:  os.Getenv("LATITUDE_API_VERSION"),
		VersionUUID: os.Getenv("LATITUDE_VERSION_UUID"),
	}
	if v := os.Getenv("LATITUDE_PROJECT_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("LATITUDE_PROJECT_ID: %w", err)
		}
		cfg.ProjectID = id
	}
	if v := os.Getenv("LATITUDE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("LATITUDE_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
