// internal/workers/voice/order-session/config.go
package ordersession

import (
	"time"

	"rehmat-agent/internal/common/config"
)

type Config struct {
	Model               string
	Voice               string
	Temperature         float64
	GreetingDelay       time.Duration
	FarewellDelay       time.Duration
	MinEndpointingDelay time.Duration
	MaxEndpointingDelay time.Duration
	AllowInterruptions  bool
	FarewellPhrases     []string
	NotifyTimeout       time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Model:               cfg.Gemini.Model,
		Voice:               cfg.Gemini.Voice,
		Temperature:         cfg.Gemini.Temperature,
		GreetingDelay:       config.GetDuration(cfg.Session.GreetingDelay),
		FarewellDelay:       config.GetDuration(cfg.Session.FarewellDelay),
		MinEndpointingDelay: config.GetDuration(cfg.Session.MinEndpointingDelay),
		MaxEndpointingDelay: config.GetDuration(cfg.Session.MaxEndpointingDelay),
		AllowInterruptions:  cfg.Session.InterruptionsAllowed(),
		FarewellPhrases:     cfg.Session.FarewellPhrases,
		NotifyTimeout:       30 * time.Second,
	}
}
