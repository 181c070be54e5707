// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	LiveKit       LiveKitConfig           `mapstructure:"livekit"`
	Gemini        GeminiConfig            `mapstructure:"gemini"`
	Knowledge     KnowledgeConfig         `mapstructure:"knowledge"`
	Session       SessionConfig           `mapstructure:"session"`
	VAD           VADConfig               `mapstructure:"vad"`
	Dispatch      DispatchConfig          `mapstructure:"dispatch"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// LiveKitConfig holds the credentials shared by the room adapter, the
// webhook receiver and the token endpoint.
type LiveKitConfig struct {
	URL           string `mapstructure:"url"`
	APIKey        string `mapstructure:"api_key"`
	APISecret     string `mapstructure:"api_secret"`
	AgentIdentity string `mapstructure:"agent_identity"`
	RoomPrefix    string `mapstructure:"room_prefix"`
	TokenTTL      int    `mapstructure:"token_ttl"` // milliseconds
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Voice       string  `mapstructure:"voice"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

type KnowledgeConfig struct {
	Path           string `mapstructure:"path"`
	ValidateSchema bool   `mapstructure:"validate_schema"`
}

// SessionConfig drives the order-taking call flow.
type SessionConfig struct {
	MaxConcurrentSessions int      `mapstructure:"max_concurrent_sessions"`
	GreetingDelay         int      `mapstructure:"greeting_delay"`           // milliseconds
	FarewellDelay         int      `mapstructure:"farewell_delay"`           // milliseconds
	MinEndpointingDelay   int      `mapstructure:"min_endpointing_delay"`    // milliseconds
	MaxEndpointingDelay   int      `mapstructure:"max_endpointing_delay"`    // milliseconds
	AllowInterruptions    *bool    `mapstructure:"allow_interruptions"`
	DeleteRoomOnHangup    bool     `mapstructure:"delete_room_on_hangup"`
	FarewellPhrases       []string `mapstructure:"farewell_phrases"`
}

// VADConfig is the voice-activity-detection profile loaded once per
// worker process.
type VADConfig struct {
	StartSensitivity string `mapstructure:"start_sensitivity"` // high | low
	EndSensitivity   string `mapstructure:"end_sensitivity"`   // high | low
	PrefixPadding    int    `mapstructure:"prefix_padding"`    // milliseconds
	SilenceDuration  int    `mapstructure:"silence_duration"`  // milliseconds
}

// DispatchConfig controls how webhook jobs are claimed. With an empty
// Redis address claims are kept in process memory.
type DispatchConfig struct {
	ClaimTTL int         `mapstructure:"claim_ttl"` // milliseconds
	Redis    RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds settings for the notify-order worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled     bool   `mapstructure:"enabled"`
		PhoneNumber string `mapstructure:"phone_number"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// TracingConfig selects where session spans are exported.
type TracingConfig struct {
	Exporter    string  `mapstructure:"exporter"` // none | stdout | otlp
	Endpoint    string  `mapstructure:"endpoint"` // host:port for otlp
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InterruptionsAllowed reports the effective allow_interruptions value.
func (s SessionConfig) InterruptionsAllowed() bool {
	return s.AllowInterruptions == nil || *s.AllowInterruptions
}
