// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envFiles are tried in order; the first one found wins.
var envFiles = []string{".env.local", ".env"}

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional overlay

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads .env.local if present, otherwise .env, from the working
// directory or the project root. Missing files are fine.
func loadEnvFile() {
	dirs := []string{"."}
	if rootDir := findProjectRoot(); rootDir != "" {
		dirs = append(dirs, rootDir)
	}

	for _, dir := range dirs {
		for _, name := range envFiles {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials from the conventional environment
// variables when the YAML left them empty.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.LiveKit.URL, "LIVEKIT_URL")
	setIfEmpty(&cfg.LiveKit.APIKey, "LIVEKIT_API_KEY")
	setIfEmpty(&cfg.LiveKit.APISecret, "LIVEKIT_API_SECRET")
	setIfEmpty(&cfg.Gemini.APIKey, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	setIfEmpty(&cfg.Dispatch.Redis.Address, "REDIS_ADDRESS")
	setIfEmpty(&cfg.Notifications.AWS.Region, "AWS_REGION")
}

func setIfEmpty(dst *string, envKeys ...string) {
	if *dst != "" {
		return
	}
	for _, k := range envKeys {
		if val := os.Getenv(k); val != "" {
			*dst = val
			return
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "rehmat-agent"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.LiveKit.AgentIdentity == "" {
		cfg.LiveKit.AgentIdentity = "rehmat-agent"
	}
	if cfg.LiveKit.RoomPrefix == "" {
		cfg.LiveKit.RoomPrefix = "rehmat-call-"
	}
	if cfg.LiveKit.TokenTTL == 0 {
		cfg.LiveKit.TokenTTL = 3600000
	}

	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.0-flash-live-001"
	}
	if cfg.Gemini.Voice == "" {
		cfg.Gemini.Voice = "Aoede"
	}
	if cfg.Gemini.Temperature == 0 {
		cfg.Gemini.Temperature = 0.45
	}
	if cfg.Gemini.Timeout == 0 {
		cfg.Gemini.Timeout = 30000
	}

	if cfg.Knowledge.Path == "" {
		cfg.Knowledge.Path = "src/rehmateshereen_kb_structured.json"
	}

	if cfg.Session.MaxConcurrentSessions == 0 {
		cfg.Session.MaxConcurrentSessions = 10
	}
	if cfg.Session.GreetingDelay == 0 {
		cfg.Session.GreetingDelay = 1000
	}
	if cfg.Session.FarewellDelay == 0 {
		cfg.Session.FarewellDelay = 2000
	}
	if cfg.Session.MinEndpointingDelay == 0 {
		cfg.Session.MinEndpointingDelay = 100
	}
	if cfg.Session.MaxEndpointingDelay == 0 {
		cfg.Session.MaxEndpointingDelay = 500
	}
	if len(cfg.Session.FarewellPhrases) == 0 {
		cfg.Session.FarewellPhrases = DefaultFarewellPhrases()
	}

	if cfg.VAD.StartSensitivity == "" {
		cfg.VAD.StartSensitivity = "high"
	}
	if cfg.VAD.EndSensitivity == "" {
		cfg.VAD.EndSensitivity = "high"
	}
	if cfg.VAD.PrefixPadding == 0 {
		cfg.VAD.PrefixPadding = cfg.Session.MinEndpointingDelay
	}
	if cfg.VAD.SilenceDuration == 0 {
		cfg.VAD.SilenceDuration = cfg.Session.MaxEndpointingDelay
	}

	if cfg.Dispatch.ClaimTTL == 0 {
		cfg.Dispatch.ClaimTTL = 3600000
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8081
	}

	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "none"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Workers == nil {
		cfg.Workers = map[string]WorkerConfig{}
	}
	for key, worker := range cfg.Workers {
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		cfg.Workers[key] = worker
	}
}

// DefaultFarewellPhrases returns the phrases that end a call when heard in
// a committed user utterance.
func DefaultFarewellPhrases() []string {
	return []string{"اللہ حافظ", "خدا حافظ", "بس شکریہ", "ٹھیک ہے شکریہ", "allah hafiz", "khuda hafiz"}
}

// validateConfig validates fields that would make every session fail.
// Credentials are checked separately by ValidateWorker so that the
// render and token commands work without a full setup.
func validateConfig(cfg *Config) error {
	if cfg.Session.MaxConcurrentSessions < 0 {
		return fmt.Errorf("session.max_concurrent_sessions must not be negative")
	}
	if cfg.Session.MinEndpointingDelay > cfg.Session.MaxEndpointingDelay {
		return fmt.Errorf("session.min_endpointing_delay must not exceed session.max_endpointing_delay")
	}
	if cfg.Gemini.Temperature < 0 || cfg.Gemini.Temperature > 2 {
		return fmt.Errorf("gemini.temperature must be within [0, 2]")
	}
	switch cfg.Tracing.Exporter {
	case "none", "stdout":
	case "otlp":
		if cfg.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("tracing.exporter must be none, stdout or otlp, got %q", cfg.Tracing.Exporter)
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	for _, s := range []string{cfg.VAD.StartSensitivity, cfg.VAD.EndSensitivity} {
		if s != "high" && s != "low" {
			return fmt.Errorf("vad sensitivity must be high or low, got %q", s)
		}
	}
	return nil
}

// ValidateWorker checks the credentials needed to run call sessions.
func ValidateWorker(cfg *Config) error {
	if cfg.LiveKit.URL == "" {
		return fmt.Errorf("livekit.url is required")
	}
	if cfg.LiveKit.APIKey == "" || cfg.LiveKit.APISecret == "" {
		return fmt.Errorf("livekit.api_key and livekit.api_secret are required")
	}
	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{Enabled: true, Timeout: 30000}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
