// internal/workers/voice/confirm-order/config.go
package confirmorder

import (
	"time"

	"rehmat-agent/internal/common/config"
	"rehmat-agent/internal/urdu"
)

type Config struct {
	Rules   urdu.Rules
	Timeout time.Duration
}

// LoadConfig reads only the timeout. The tool is part of every session, so
// wc.Enabled does not apply.
func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		Rules:   urdu.DefaultRules(),
		Timeout: timeout,
	}
}
